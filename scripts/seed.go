package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/slotcare/booking-backend/internal/infrastructure/clients/postgres"
	"github.com/slotcare/booking-backend/pkg/config"
)

// Seeds a local database with a couple of providers, their schedules and
// appointment types so the API has something to serve during development.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	ctx := context.Background()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				refund_records,
				webhook_events,
				settlements,
				appointments,
				appointment_types,
				provider_availability,
				provider_working_hours,
				providers,
				platform_settings
			CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	db := pgClient.DB()
	now := time.Now()

	// 1. Platform settings
	_, err = db.ExecContext(ctx, `
		INSERT INTO platform_settings (id, commission_percentage, created_at, updated_at)
		VALUES ($1, 5.0, $2, $2)
	`, uuid.New().String(), now)
	if err != nil {
		log.Printf("Failed to seed platform settings: %v", err)
	}

	// 2. Providers
	type seedProvider struct {
		id        string
		name      string
		specialty string
		account   string
	}
	providers := []seedProvider{
		{uuid.New().String(), "Dr. Adaeze Okonkwo", "General Practice", "acct_dev_gp"},
		{uuid.New().String(), "Dr. Tunde Bakare", "Dermatology", "acct_dev_derm"},
	}

	for _, p := range providers {
		_, err := db.ExecContext(ctx, `
			INSERT INTO providers (id, name, specialty, payout_account_id, payout_account_active, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, true, true, $5, $5)
		`, p.id, p.name, p.specialty, p.account, now)
		if err != nil {
			log.Printf("Failed to create provider %s: %v", p.name, err)
			continue
		}

		// Monday through Friday, 09:00-17:00.
		for day := 1; day <= 5; day++ {
			_, err := db.ExecContext(ctx, `
				INSERT INTO provider_working_hours (id, provider_id, day_of_week, start_time, end_time, is_working, created_at, updated_at)
				VALUES ($1, $2, $3, '09:00', '17:00', true, $4, $4)
			`, uuid.New().String(), p.id, day, now)
			if err != nil {
				log.Printf("Failed to create working hours for %s day %d: %v", p.name, day, err)
			}
		}

		_, err = db.ExecContext(ctx, `
			INSERT INTO provider_availability (id, provider_id, allowed_time_slots, slot_duration_minutes, booking_advance_days_max, min_booking_hours_ahead, created_at, updated_at)
			VALUES ($1, $2, '{}', 30, 30, 1, $3, $3)
		`, uuid.New().String(), p.id, now)
		if err != nil {
			log.Printf("Failed to create availability rules for %s: %v", p.name, err)
		}

		_, err = db.ExecContext(ctx, `
			INSERT INTO appointment_types (id, provider_id, name, duration_minutes, price, requires_payment, is_active, created_at, updated_at)
			VALUES ($1, $2, 'Consultation', 30, 100.00, true, true, $3, $3),
			       ($4, $2, 'Follow-up', 15, 0, false, true, $3, $3)
		`, uuid.New().String(), p.id, now, uuid.New().String())
		if err != nil {
			log.Printf("Failed to create appointment types for %s: %v", p.name, err)
		}
	}

	log.Printf("Seeded %d providers with schedules and appointment types", len(providers))
}
