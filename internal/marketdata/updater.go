package marketdata

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"portfoliolab/internal/store"
	"portfoliolab/internal/utils"
)

// Updater refreshes stored close prices for every known company on a cron
// schedule.
type Updater struct {
	store   *store.Store
	fetcher *Fetcher
	logger  utils.Logger
	cron    *cron.Cron

	lookbackDays int
}

func NewUpdater(st *store.Store, fetcher *Fetcher, logger utils.Logger, lookbackDays int) *Updater {
	return &Updater{
		store:        st,
		fetcher:      fetcher,
		logger:       logger,
		cron:         cron.New(),
		lookbackDays: lookbackDays,
	}
}

// Start runs one refresh in the background and schedules recurring ones.
func (u *Updater) Start(ctx context.Context, schedule string) error {
	go func() {
		u.logger.Info("Initial price refresh running...")
		if err := u.RefreshAll(ctx); err != nil {
			u.logger.Error("Initial price refresh failed: %v", err)
		} else {
			u.logger.Info("Initial price refresh completed")
		}
	}()

	_, err := u.cron.AddFunc(schedule, func() {
		u.logger.Info("Running scheduled price refresh")
		if err := u.RefreshAll(ctx); err != nil {
			u.logger.Error("Scheduled price refresh failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	u.cron.Start()
	return nil
}

// Stop halts the schedule; in-flight refreshes finish on their own.
func (u *Updater) Stop() {
	u.cron.Stop()
}

// RefreshAll upserts daily closes for every company. A failed symbol is
// logged and skipped so one delisted ticker cannot stall the rest.
func (u *Updater) RefreshAll(ctx context.Context) error {
	companies, err := u.store.ListCompanies()
	if err != nil {
		return err
	}

	for _, company := range companies {
		closes, err := u.fetcher.DailyCloses(ctx, company.Symbol, u.lookbackDays)
		if err != nil {
			u.logger.Warn("Price refresh skipped for %s: %v", company.Symbol, err)
			continue
		}
		for day, value := range closes {
			if err := u.store.UpsertClose(company.ID, day, value); err != nil {
				u.logger.Error("Failed to store close for %s on %s: %v",
					company.Symbol, day.Format("2006-01-02"), err)
			}
		}
		u.logger.Debug("Refreshed %d closes for %s", len(closes), company.Symbol)

		// Stay polite to the quote API.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(120 * time.Millisecond):
		}
	}
	return nil
}
