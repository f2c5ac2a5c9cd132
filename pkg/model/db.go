package model

import (
	"fmt"
	"time"

	"hybrix/pkg/config"
	"hybrix/pkg/model/xgorm"
	"hybrix/pkg/xlog"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var logger = xlog.GetLogger()

func DSN(cfg config.MySQLServer) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User, cfg.Pass, cfg.Host, cfg.Port, cfg.DB,
	)
}

func OpenMySQL(cfg config.MySQLServer, debug bool) (db *gorm.DB, err error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("empty mysql host")
	}

	logger.Infof("mysql connecting tcp(%s:%d)/%s", cfg.Host, cfg.Port, cfg.DB)
	db, err = OpenMySQLDSN(DSN(cfg), debug)
	if err != nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(10 * time.Hour)
	sqlDB.SetMaxIdleConns(20)

	logger.Infof("mysql connected tcp(%s:%d)/%s", cfg.Host, cfg.Port, cfg.DB)
	return
}

func OpenMySQLDSN(dsn string, debug bool) (*gorm.DB, error) {
	logMode := gormLogger.Warn
	if debug {
		logMode = gormLogger.Info
	}

	return gorm.Open(mysql.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true, // writes go through CommitPass transactions
		Logger:                 xgorm.New(logMode, time.Second),
	})
}

func OpenRedis(cfg config.RedisServer) *redis.Client {
	logger.Infof("redis connecting %s[%d]", cfg.Addr, cfg.DB)

	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Pass,
		DB:       cfg.DB,
	})
}
