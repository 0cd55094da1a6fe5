package routes

import (
	"errors"
	"strings"

	"github.com/safiridev/bus-tracking/internal/models"
)

// ErrUnknownRoute is returned when a bus number cannot be classified onto any
// registered route. The engine skips such buses instead of crashing.
var ErrUnknownRoute = errors.New("unknown route")

// Route is an immutable route definition: a key plus its start/end endpoints.
// The waypoints between them come from the route provider at runtime.
type Route struct {
	Key   string
	Start models.GeoPoint
	End   models.GeoPoint
}

type pair struct {
	marker   string
	outbound Route
	inbound  Route
}

// Catalog classifies bus numbers onto directional route pairs. Classification
// is deterministic: a number containing a pair's origin marker maps to that
// pair's outbound route; anything else maps to the first registered pair's
// inbound route.
type Catalog struct {
	pairs []pair
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Register adds a directional route pair. The marker is the origin token
// matched against bus numbers, e.g. "Juja" for buses departing Juja.
func (c *Catalog) Register(marker string, outbound, inbound Route) {
	c.pairs = append(c.pairs, pair{marker: marker, outbound: outbound, inbound: inbound})
}

// Resolve maps a bus number to its route. The result never changes for a
// given number while the catalog is unchanged.
func (c *Catalog) Resolve(busNumber string) (Route, error) {
	if len(c.pairs) == 0 {
		return Route{}, ErrUnknownRoute
	}
	for _, p := range c.pairs {
		if strings.Contains(busNumber, p.marker) {
			return p.outbound, nil
		}
	}
	return c.pairs[0].inbound, nil
}

// Default returns the catalog with the base Juja/Nairobi pair registered.
func Default() *Catalog {
	juja := models.GeoPoint{Lat: -1.1278, Lng: 36.9707}
	nairobi := models.GeoPoint{Lat: -1.286389, Lng: 36.817223}

	c := NewCatalog()
	c.Register("Juja",
		Route{Key: "Juja-Nairobi", Start: juja, End: nairobi},
		Route{Key: "Nairobi-Juja", Start: nairobi, End: juja},
	)
	return c
}
