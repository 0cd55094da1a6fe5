package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/safiridev/bus-tracking/internal/config"
	"github.com/safiridev/bus-tracking/internal/db"
	"github.com/safiridev/bus-tracking/internal/models"
	"github.com/safiridev/bus-tracking/internal/routes"
)

// Seeds the buses collection with a demo fleet so the tracker has vehicles to
// move. Numbers alternate between the two directions of the base route pair;
// each bus starts at its route's start point with a zero step cursor.
func main() {
	count := flag.Int("count", 6, "number of buses to seed")
	force := flag.Bool("force", false, "seed even if the collection is not empty")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	client, err := db.Connect(cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer client.Disconnect(ctx)

	store := &db.MongoBusStore{Collection: client.Database(cfg.MongoDB).Collection("buses")}

	existing, err := store.CountBuses(ctx)
	if err != nil {
		log.WithError(err).Fatal("Failed to count buses")
	}
	if existing > 0 && !*force {
		log.WithField("existing", existing).Info("Collection already seeded, use -force to add more")
		return
	}

	catalog := routes.Default()
	for i := 1; i <= *count; i++ {
		prefix := "Juja"
		if i%2 == 0 {
			prefix = "Nairobi"
		}
		number := fmt.Sprintf("%s-%d", prefix, i)

		route, err := catalog.Resolve(number)
		if err != nil {
			log.WithError(err).WithField("bus_number", number).Fatal("Cannot classify seeded bus")
		}

		bus := models.Bus{
			Number:    number,
			Status:    models.StatusActive,
			Current:   route.Start,
			StepIndex: 0,
		}
		if err := store.InsertBus(ctx, bus); err != nil {
			log.WithError(err).WithField("bus_number", number).Fatal("Failed to insert bus")
		}
		log.WithFields(log.Fields{"bus_number": number, "route": route.Key}).Info("Seeded bus")
	}

	log.WithField("count", *count).Info("Seeding complete")
}
