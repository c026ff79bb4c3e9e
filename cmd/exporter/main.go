package main

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"alpine_stay/internal/adapters/export"
	"alpine_stay/internal/adapters/observability"
	"alpine_stay/internal/domain"
	"alpine_stay/internal/shared"
	mysqlrepo "alpine_stay/internal/storage/mysql"
)

// exporter writes confirmation CSVs for every booking overlapping the
// EXPORT_START..EXPORT_END window, bounded by a worker semaphore.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	window, err := domain.ParseStay(cfg.ExportStart, cfg.ExportEnd)
	if err != nil {
		log.Fatal().Err(err).Msg("EXPORT_START/EXPORT_END invalid")
	}

	log.Info().
		Str("start", window.StartString()).
		Str("end", window.EndString()).
		Str("dir", cfg.ExportDir).
		Int("workers", cfg.ExportWorkers).
		Msg("exporter starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	writer := export.NewWriter(cfg.ExportDir)

	bookings, err := repo.ListBookings(ctx, window)
	if err != nil {
		log.Fatal().Err(err).Msg("list bookings failed")
	}
	log.Info().Int("count", len(bookings)).Msg("bookings in window")

	sem := semaphore.NewWeighted(int64(cfg.ExportWorkers))
	var wg sync.WaitGroup

	for _, bk := range bookings {
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(bk domain.Booking) {
			defer wg.Done()
			defer sem.Release(1)

			room, err := repo.GetRoom(ctx, bk.Room())
			if err != nil {
				log.Warn().Int64("id", bk.ID).Err(err).Msg("room lookup failed")
				return
			}
			path, err := writer.BookingConfirmation(domain.Confirmation{
				BookingID:      bk.ID,
				RoomHotelID:    bk.RoomHotelID,
				RoomNumber:     bk.RoomNumber,
				GuestID:        bk.GuestID,
				NumberOfGuests: bk.NumberOfGuests,
				Stay:           bk.Stay,
				Comment:        bk.Comment,
				NightlyPrice:   room.Price,
			})
			if err != nil {
				log.Warn().Int64("id", bk.ID).Err(err).Msg("export failed")
				return
			}
			log.Info().Int64("id", bk.ID).Str("path", path).Msg("export ok")
		}(bk)
	}

	wg.Wait()
	log.Info().Msg("export completed")
}
