// Package database 提供数据库连接和管理
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paiban/shiftplan/internal/config"
	"github.com/paiban/shiftplan/pkg/logger"

	_ "github.com/lib/pq" // PostgreSQL 驱动
)

const (
	defaultSlowThreshold = 100 * time.Millisecond
	pingTimeout          = 5 * time.Second
)

// DB 数据库连接封装，记录慢查询和慢事务
type DB struct {
	*sql.DB
	slow time.Duration
}

// New 打开连接池并确认数据库可达
func New(cfg *config.DatabaseConfig) (*DB, error) {
	raw, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}

	raw.SetMaxOpenConns(cfg.MaxOpenConns)
	raw.SetMaxIdleConns(cfg.MaxIdleConns)
	raw.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	db := Wrap(raw)
	if cfg.SlowQueryThreshold > 0 {
		db.slow = cfg.SlowQueryThreshold
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.Health(ctx); err != nil {
		raw.Close()
		return nil, err
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Dur("slow_threshold", db.slow).
		Msg("数据库连接成功")

	return db, nil
}

// Wrap 包装已打开的连接，用于测试或外部管理的连接池
func Wrap(raw *sql.DB) *DB {
	return &DB{DB: raw, slow: defaultSlowThreshold}
}

// Close 关闭数据库连接
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	logger.Info().Msg("关闭数据库连接")
	return db.DB.Close()
}

// Health 检查数据库是否可达
func (db *DB) Health(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("数据库连接测试失败: %w", err)
	}
	return nil
}

// Transaction 执行事务，opts 为 nil 时使用默认隔离级别
// fn 返回错误或 panic 时回滚，panic 回滚后继续抛出
func (db *DB) Transaction(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	defer db.observe("transaction", time.Now())

	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("事务回滚失败: %v (原始错误: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("事务提交失败: %w", err)
	}
	return nil
}

// QueryContext 执行查询
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	defer db.observe(query, time.Now())
	return db.DB.QueryContext(ctx, query, args...)
}

// QueryRowContext 执行单行查询，耗时包含扫描前的等待
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	defer db.observe(query, time.Now())
	return db.DB.QueryRowContext(ctx, query, args...)
}

// observe 超过阈值时记录慢SQL
func (db *DB) observe(query string, start time.Time) {
	elapsed := time.Since(start)
	if db.slow <= 0 || elapsed <= db.slow {
		return
	}
	logger.Warn().
		Str("query", truncateQuery(query)).
		Dur("duration", elapsed).
		Dur("threshold", db.slow).
		Msg("慢SQL查询")
}

// truncateQuery 截断长查询
func truncateQuery(query string) string {
	if len(query) > 200 {
		return query[:200] + "..."
	}
	return query
}
