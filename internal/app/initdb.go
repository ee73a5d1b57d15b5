package app

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/talkincode/wacapture/config"
	"github.com/talkincode/wacapture/internal/domain"
	"github.com/talkincode/wacapture/pkg/common"
)

func getDatabase(cfg config.DBConfig, workdir string) *gorm.DB {
	logLevel := gormlogger.Silent
	if cfg.Debug {
		logLevel = gormlogger.Info
	}
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(logLevel)}

	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "sqlite", "sqlite3":
		dsn := filepath.Join(workdir, "data", cfg.Name+".db")
		dialector = sqlite.Open(dsn + "?_foreign_keys=on&_busy_timeout=5000")
	default:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
			cfg.Host, cfg.User, cfg.Passwd, cfg.Name, cfg.Port)
		dialector = postgres.Open(dsn)
	}

	gdb, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		zap.S().Panicf("failed to connect database: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err == nil {
		if cfg.MaxConn > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxConn)
		}
		if cfg.IdleConn > 0 {
			sqlDB.SetMaxIdleConns(cfg.IdleConn)
		}
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return gdb
}

// checkSuper makes sure at least one admin account exists so a fresh
// deployment can log in before any registration happened.
func (a *Application) checkSuper() {
	const superEmail = "admin@wacapture.local"
	const defaultPassword = "wacapture"

	var count int64
	if err := a.gormDB.Model(&domain.Admin{}).Count(&count).Error; err != nil {
		zap.L().Error("failed to count admin accounts", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
	if err != nil {
		zap.L().Error("failed to hash default admin password", zap.Error(err))
		return
	}
	if err := a.gormDB.Create(&domain.Admin{
		ID:           common.UUIDint64(),
		Email:        superEmail,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}).Error; err != nil {
		zap.L().Error("failed to create default admin", zap.Error(err))
		return
	}
	zap.L().Info("initialized default admin account", zap.String("email", superEmail))
}
