// database/database.go
package database

import (
	"fmt"
	"time"

	"snake-map-server/config"
	"snake-map-server/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const highscoreUniqueIndex = "idx_highscores_map_player"

// PoolConfig bounds the underlying sql.DB pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Connect opens the Postgres database named by DATABASE_URL.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	return Open(postgres.Open(cfg.DatabaseURL), PoolConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
}

// Open connects through any GORM dialector and configures the pool.
func Open(dialector gorm.Dialector, pool PoolConfig) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(logrus.StandardLogger(), logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)

	logrus.WithFields(logrus.Fields{
		"max_open": pool.MaxOpenConns,
		"max_idle": pool.MaxIdleConns,
	}).Info("✅ Database connection established and pool configured")
	return db, nil
}

// Migrate brings the highscores table to the current shape. Tables written
// by the old read-then-write code may hold several rows per (map, player);
// those are collapsed to the best row before the unique index is created.
func Migrate(db *gorm.DB) error {
	m := db.Migrator()
	if m.HasTable(&models.Highscore{}) && !m.HasIndex(&models.Highscore{}, highscoreUniqueIndex) {
		removed, err := collapseDuplicateHighscores(db)
		if err != nil {
			return fmt.Errorf("failed to collapse duplicate highscores: %w", err)
		}
		if removed > 0 {
			logrus.Warnf("🧹 [MIGRATE] Removed %d duplicate highscore row(s)", removed)
		}
	}

	if err := db.AutoMigrate(&models.Highscore{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logrus.Info("✅ Database migration completed")
	return nil
}

func collapseDuplicateHighscores(db *gorm.DB) (int64, error) {
	var removed int64
	err := db.Transaction(func(tx *gorm.DB) error {
		type pair struct {
			Map    string
			Player string
		}
		var dups []pair
		if err := tx.Model(&models.Highscore{}).
			Select("map, player").
			Group("map, player").
			Having("COUNT(*) > 1").
			Scan(&dups).Error; err != nil {
			return err
		}

		for _, d := range dups {
			var best models.Highscore
			if err := tx.Select("id").
				Where("map = ? AND player = ?", d.Map, d.Player).
				Order("score ASC, id ASC").
				First(&best).Error; err != nil {
				return err
			}

			res := tx.Where("map = ? AND player = ? AND id <> ?", d.Map, d.Player, best.ID).
				Delete(&models.Highscore{})
			if res.Error != nil {
				return res.Error
			}
			removed += res.RowsAffected
		}
		return nil
	})
	return removed, err
}
