package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/safiridev/bus-tracking/internal/models"
)

// Publisher bridges bus updates onto an MQTT topic so non-websocket consumers
// (dashboards, downstream services) can follow the fleet. Delivery is QoS 0
// fire-and-forget, mirroring the best-effort websocket channel.
type Publisher struct {
	client paho.Client
	topic  string
}

// NewPublisher connects to the broker. A connect failure is returned to the
// caller, who logs it and runs without the bridge; it is never fatal.
func NewPublisher(brokerURL, clientID, topic string) (*Publisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timed out")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect failed: %w", err)
	}

	log.WithFields(log.Fields{"broker": brokerURL, "topic": topic}).Info("MQTT bridge connected")
	return &Publisher{client: client, topic: topic}, nil
}

// Publish sends a bus update to the topic. Errors are logged and dropped.
func (p *Publisher) Publish(ev models.BusUpdate) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).Error("Failed to marshal bus update for MQTT")
		return
	}
	p.client.Publish(p.topic, 0, false, data)
}

// Close disconnects from the broker, letting queued messages flush briefly.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
