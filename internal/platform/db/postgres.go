package db

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fatflowers/lifecycle/internal/models"
	cfgpkg "github.com/fatflowers/lifecycle/pkg/config"
	gormzap "github.com/fatflowers/lifecycle/pkg/gormlog"
)

func NewDB(l *zap.SugaredLogger, cfg *cfgpkg.Config) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		l.Error("database DSN is empty")
		return nil, gorm.ErrInvalidDB
	}
	level := gormlogger.Warn
	if cfg.Env == cfgpkg.EnvDev {
		level = gormlogger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger: gormzap.New(l, level, cfg.Database.SlowThreshold),
		// unique violations surface as gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		l.Errorf("failed to connect database: %v", err)
		return nil, err
	}
	l.Infow("connected to postgres via DSN")
	return db, nil
}

var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Invoke(AutoMigrate),
	fx.Invoke(registerDBClose),
)

// reminderIndexSQL backs the reminder dedup key. Failed reminders are left
// out so a later run may retry the same billing event.
var reminderIndexSQL = fmt.Sprintf(
	`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (user_email, subscription_id, next_billing_date) WHERE status IN ('%s', '%s')`,
	models.ReminderIndexName, models.SubscriptionReminder{}.TableName(), models.ReminderStatusPending, models.ReminderStatusSent,
)

// AutoMigrate runs GORM migrations on startup
func AutoMigrate(l *zap.SugaredLogger, db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Subscription{},
		&models.User{},
		&models.Job{},
		&models.SubscriptionReminder{},
		&models.TransactionHistory{},
		&models.JobAdvertLimit{},
		&models.JobAlertNotification{},
	); err != nil {
		l.Errorf("automigrate failed: %v", err)
		return err
	}
	if err := db.Exec(reminderIndexSQL).Error; err != nil {
		l.Errorf("create reminder index failed: %v", err)
		return err
	}
	l.Infow("automigrate completed")
	return nil
}

// registerDBClose ensures the underlying *sql.DB is closed on shutdown
func registerDBClose(lc fx.Lifecycle, l *zap.SugaredLogger, gdb *gorm.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				l.Warnw("gorm: get sql.DB failed", "err", err)
				return nil
			}
			l.Infow("closing postgres connection pool")
			return sqlDB.Close()
		},
	})
}
