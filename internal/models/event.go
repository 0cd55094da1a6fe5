package models

// BusUpdate is the wire record pushed to observers whenever a bus advances.
// The same shape is used for the snapshot sent on connect and for the MQTT
// bridge, so consumers only ever parse one message format.
type BusUpdate struct {
	ID         string  `json:"id"`
	Number     string  `json:"bus_number"`
	CurrentLat float64 `json:"current_lat"`
	CurrentLng float64 `json:"current_lng"`
	StepIndex  int     `json:"step_index"`
	Status     string  `json:"status"`
}

// UpdateFromBus builds the wire record for a bus's current state.
func UpdateFromBus(b Bus) BusUpdate {
	return BusUpdate{
		ID:         b.ID.Hex(),
		Number:     b.Number,
		CurrentLat: b.Current.Lat,
		CurrentLng: b.Current.Lng,
		StepIndex:  b.StepIndex,
		Status:     b.Status,
	}
}
