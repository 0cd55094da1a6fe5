package sim

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/safiridev/bus-tracking/internal/db"
	"github.com/safiridev/bus-tracking/internal/metrics"
	"github.com/safiridev/bus-tracking/internal/models"
	"github.com/safiridev/bus-tracking/internal/ors"
	"github.com/safiridev/bus-tracking/internal/routes"
)

// EventSink receives a change event every time a bus advances. The websocket
// hub and the optional MQTT bridge both implement it.
type EventSink interface {
	Publish(ev models.BusUpdate)
}

// maxFetchBackoff caps the exponential route-fetch retry delay, in ticks.
const maxFetchBackoff = 8

// busRuntime is the in-memory per-bus state: the cached route geometry and the
// step cursor. It is never persisted; on restart the cursor is resumed from
// the store's step_index and the route is re-fetched.
type busRuntime struct {
	mu sync.Mutex

	route  []models.GeoPoint
	cursor int

	initialized   bool // cursor seeded from the stored step index
	fetchWait     int  // ticks to wait before the next fetch attempt
	fetchBackoff  int  // current backoff, in ticks
	unknownLogged bool
}

// Engine advances every active bus one waypoint per tick, persists the new
// position and publishes a change event. Buses are processed concurrently
// within a tick but each bus's runtime is advanced by at most one goroutine
// at a time.
type Engine struct {
	store    db.BusStore
	catalog  *routes.Catalog
	provider ors.RouteProvider
	sinks    []EventSink
	interval time.Duration

	mu       sync.Mutex
	runtimes map[string]*busRuntime

	inFlight atomic.Bool
}

// New creates an engine. Sinks may be empty; events are then dropped.
func New(store db.BusStore, catalog *routes.Catalog, provider ors.RouteProvider, interval time.Duration, sinks ...EventSink) *Engine {
	return &Engine{
		store:    store,
		catalog:  catalog,
		provider: provider,
		sinks:    sinks,
		interval: interval,
		runtimes: make(map[string]*busRuntime),
	}
}

// Run drives the tick loop until ctx is cancelled. In-flight per-bus work is
// allowed to finish; position writes are last-value-wins so an abandoned
// write cannot corrupt stored state.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	log.WithField("interval", e.interval).Info("Simulation engine started")
	for {
		select {
		case <-ctx.Done():
			log.Info("Simulation engine stopped")
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick runs one advance pass over all active buses. If the previous tick is
// still running the overlapping tick is skipped, which guarantees at most one
// in-flight advance per bus.
func (e *Engine) Tick(ctx context.Context) {
	if !e.inFlight.CompareAndSwap(false, true) {
		log.Warn("Previous tick still running, skipping")
		return
	}
	defer e.inFlight.Store(false)

	buses, err := e.store.FindActive(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to query active buses, skipping tick")
		metrics.StoreErrors.Inc()
		return
	}

	var wg sync.WaitGroup
	for _, bus := range buses {
		wg.Add(1)
		go func(bus models.Bus) {
			defer wg.Done()
			e.advance(ctx, bus)
		}(bus)
	}
	wg.Wait()
	metrics.Ticks.Inc()
}

// runtime returns the runtime state for a bus, creating it on first sight.
func (e *Engine) runtime(id string) *busRuntime {
	e.mu.Lock()
	defer e.mu.Unlock()
	rt, ok := e.runtimes[id]
	if !ok {
		rt = &busRuntime{}
		e.runtimes[id] = rt
	}
	return rt
}

// advance moves one bus one waypoint forward. Any failure here is isolated to
// this bus; other buses in the same tick are unaffected.
func (e *Engine) advance(ctx context.Context, bus models.Bus) {
	id := bus.ID.Hex()
	rt := e.runtime(id)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	route, err := e.catalog.Resolve(bus.Number)
	if err != nil {
		if errors.Is(err, routes.ErrUnknownRoute) && !rt.unknownLogged {
			log.WithField("bus_number", bus.Number).Warn("No route matches bus number, skipping bus")
			rt.unknownLogged = true
		}
		return
	}
	rt.unknownLogged = false

	if !rt.initialized {
		// Resume from the persisted step index (0 for new buses).
		rt.cursor = bus.StepIndex
		rt.initialized = true
	}

	if len(rt.route) == 0 {
		if rt.fetchWait > 0 {
			rt.fetchWait--
			return
		}
		pts, err := e.provider.Fetch(ctx, route.Start, route.End)
		if err != nil || len(pts) == 0 {
			rt.backoff()
			metrics.RouteFetchFailures.Inc()
			log.WithFields(log.Fields{
				"bus_number": bus.Number,
				"route":      route.Key,
				"retry_in":   rt.fetchWait,
			}).WithError(err).Warn("Route fetch failed, bus will not move this tick")
			return
		}
		rt.route = pts
		rt.fetchBackoff = 0
	}

	if rt.cursor < len(rt.route)-1 {
		rt.cursor++
		next := rt.route[rt.cursor]
		if err := e.store.UpdatePosition(ctx, id, next.Lat, next.Lng, rt.cursor); err != nil {
			// Roll back so store and memory stay consistent; retried next tick.
			rt.cursor--
			metrics.StoreErrors.Inc()
			log.WithField("bus_number", bus.Number).WithError(err).Error("Failed to persist position")
			return
		}
		metrics.Advances.Inc()
		e.publish(id, bus.Number, next, rt.cursor)
		return
	}

	// Arrival: reset to the route start and fetch a fresh traversal. The
	// cursor resets regardless of the fetch outcome.
	if err := e.store.UpdatePosition(ctx, id, route.Start.Lat, route.Start.Lng, 0); err != nil {
		metrics.StoreErrors.Inc()
		log.WithField("bus_number", bus.Number).WithError(err).Error("Failed to persist arrival reset")
		return
	}
	rt.cursor = 0
	rt.route = nil
	if pts, err := e.provider.Fetch(ctx, route.Start, route.End); err == nil && len(pts) > 0 {
		rt.route = pts
		rt.fetchBackoff = 0
	} else {
		rt.backoff()
		metrics.RouteFetchFailures.Inc()
	}
	e.publish(id, bus.Number, route.Start, 0)
}

func (e *Engine) publish(id, number string, pos models.GeoPoint, step int) {
	ev := models.BusUpdate{
		ID:         id,
		Number:     number,
		CurrentLat: pos.Lat,
		CurrentLng: pos.Lng,
		StepIndex:  step,
		Status:     models.StatusActive,
	}
	for _, sink := range e.sinks {
		sink.Publish(ev)
	}
}

// backoff schedules the next fetch attempt, doubling the wait up to the cap.
func (rt *busRuntime) backoff() {
	if rt.fetchBackoff == 0 {
		rt.fetchBackoff = 1
	} else if rt.fetchBackoff < maxFetchBackoff {
		rt.fetchBackoff *= 2
		if rt.fetchBackoff > maxFetchBackoff {
			rt.fetchBackoff = maxFetchBackoff
		}
	}
	rt.fetchWait = rt.fetchBackoff - 1
}
