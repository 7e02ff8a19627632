// Command main runs the database seeder for the PAR tracker.
package main

import (
	"flag"
	"log"

	"partrack/internal/config"
	"partrack/internal/database"
	"partrack/internal/repository"
	"partrack/internal/seed"
	"partrack/internal/service"
)

func main() {
	numRequests := flag.Int("requests", 40, "Number of requests to create")
	numUsers := flag.Int("users", 10, "Number of regular users to create")
	rosterPath := flag.String("roster", "", "Path to an approvers YAML file (built-in roster when empty)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Println("===============")
	log.Printf("Target: %d requests, %d users, clean=%v", *numRequests, *numUsers, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db)
	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if err := s.SeedCatalog(); err != nil {
		log.Fatalf("Catalog seeding failed: %v", err)
	}
	if err := s.SeedRoster(*rosterPath); err != nil {
		log.Fatalf("Roster seeding failed: %v", err)
	}
	if _, err := s.SeedUsers(*numUsers); err != nil {
		log.Fatalf("User seeding failed: %v", err)
	}

	audit := service.NewAuditRecorder(repository.NewAuditRepository(db))
	workflow := service.NewWorkflowService(db, audit, nil)
	allocator := service.NewJobIDAllocator(db, cfg.JobIDPrefix)
	if err := s.SeedRequests(*numRequests, workflow, allocator); err != nil {
		log.Fatalf("Request seeding failed: %v", err)
	}

	log.Println("All done! The database is populated with test data.")
	log.Println("All test users have the password: password123")
}
