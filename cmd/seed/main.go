package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/config"
	"github.com/hackgods/clinic-booking/internal/db"
	"github.com/hackgods/clinic-booking/internal/logging"
)

var slotTimes = []string{
	"9:00 AM", "9:30 AM", "10:00 AM", "10:30 AM", "11:00 AM", "11:30 AM",
	"1:00 PM", "1:30 PM", "2:00 PM", "2:30 PM", "3:00 PM", "3:30 PM", "4:00 PM",
}

func main() {
	patients := flag.Int("patients", 500, "patients to create")
	days := flag.Int("days", 14, "days of slots to open, starting today")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := logging.New(cfg.LogLevel, cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	faker := gofakeit.New(0)

	if err := seedPatients(ctx, pool, faker, *patients, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedSlots(ctx, pool, time.Now(), *days, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed slots")
	}

	logger.Info().Msg("seed complete")
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int, logger zerolog.Logger) error {
	logger.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		batch := &pgx.Batch{}
		for i := offset; i < end; i++ {
			dob := faker.DateRange(time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC))
			batch.Queue(`
				INSERT INTO patients (id, name, email, phone, dob, gender, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			`, uuid.New(), faker.Name(), faker.Email(), faker.Phone(), dob.Format("2006-01-02"),
				faker.RandomString([]string{"Male", "Female", "Other"}))
		}

		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert patients %d-%d: %w", offset, end, err)
		}
		logger.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}
	return nil
}

// seedSlots opens the standard day grid. Existing slots are left alone.
func seedSlots(ctx context.Context, pool *pgxpool.Pool, from time.Time, days int, logger zerolog.Logger) error {
	batch := &pgx.Batch{}
	for d := 0; d < days; d++ {
		day := from.AddDate(0, 0, d)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		for _, t := range slotTimes {
			batch.Queue(`
				INSERT INTO slots (id, slot_date, slot_time, is_booked, created_at)
				VALUES ($1, $2, $3, false, now())
				ON CONFLICT (slot_date, slot_time) DO NOTHING
			`, uuid.New(), day.Format("2006-01-02"), t)
		}
	}

	n := batch.Len()
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert slots: %w", err)
	}
	logger.Info().Int("queued", n).Int("days", days).Msg("slots seeded")
	return nil
}
