package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/talkincode/wacapture/internal/store"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	if _, err := a.sched.AddFunc("@daily", func() {
		a.purgeExpiredMessages()
	}); err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}
}

// StartBackgroundJobs starts the cron runner until the context is cancelled.
func (a *Application) StartBackgroundJobs(ctx context.Context) {
	a.sched.Start()
	go func() {
		<-ctx.Done()
		a.sched.Stop()
	}()
}

// purgeExpiredMessages enforces the configured message retention window.
// Contacts are kept so dedup history survives the purge.
func (a *Application) purgeExpiredMessages() {
	days := a.appConfig.Whatsapp.RetentionDays
	if days <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	messages := store.NewMessageStore(a.gormDB, store.NewContactStore(a.gormDB))
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	purged, err := messages.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		zap.L().Error("message retention purge failed", zap.Error(err))
		return
	}
	if purged > 0 {
		zap.L().Info("message retention purge complete",
			zap.Int64("purged", purged), zap.Time("cutoff", cutoff))
	}
}
