// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/bingoserver/models"
)

// GormPostgreSQL stores game results through GORM.
type GormPostgreSQL struct {
	db *gorm.DB
}

func NewGormPostgreSQL(dsn string) (*GormPostgreSQL, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormGameResult{}); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (p *GormPostgreSQL) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	rows, err := models.ResultRows(record)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return p.db.WithContext(ctx).Create(&rows).Error
}

func (p *GormPostgreSQL) GetPlayerStats(ctx context.Context, name string) (models.PlayerStats, error) {
	var counts []struct {
		Result string
		N      int
	}
	err := p.db.WithContext(ctx).
		Model(&models.GormGameResult{}).
		Select("result, COUNT(*) AS n").
		Where("player_name = ?", name).
		Group("result").
		Scan(&counts).Error
	if err != nil {
		return models.PlayerStats{}, err
	}

	var total, wins, losses, draws int
	for _, c := range counts {
		total += c.N
		switch c.Result {
		case models.ResultWin:
			wins += c.N
		case models.ResultLose:
			losses += c.N
		case models.ResultDraw:
			draws += c.N
		}
	}
	return statsFromCounts(name, total, wins, losses, draws)
}

func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
