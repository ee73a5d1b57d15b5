package app

import (
	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/talkincode/wacapture/config"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// BusProvider provides the in-process event bus
type BusProvider interface {
	Bus() EventBus.Bus
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// AppContext combines all provider interfaces for full application context.
// Services should depend on specific providers or this combined interface.
type AppContext interface {
	DBProvider
	ConfigProvider
	BusProvider
	SchedulerProvider

	MigrateDB(track bool) error
	InitDb()
	DropAll()
}
