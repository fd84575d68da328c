// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/paiban/shiftplan/pkg/scheduler/optimizer"
	"github.com/paiban/shiftplan/pkg/scheduler/solver"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Solver   SolverConfig   `yaml:"solver"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `yaml:"name"`
	Env       string `yaml:"env"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json/console
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	Name               string        `yaml:"name"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"conn_max_lifetime"`
	// 超过该耗时的查询和事务记录告警日志
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// SolverConfig 求解配置
type SolverConfig struct {
	Workers          int           `yaml:"workers"`
	QueueSize        int           `yaml:"queue_size"`
	TimeBudget       time.Duration `yaml:"time_budget"`
	MaxIterations    int           `yaml:"max_iterations"`
	PlateauThreshold int           `yaml:"plateau_threshold"`
	Acceptor         string        `yaml:"acceptor"`
	InitialTemp      float64       `yaml:"initial_temp"`
	HardWeight       int           `yaml:"hard_weight"`
	TabuSize         int           `yaml:"tabu_size"`
	SwapProbability  float64       `yaml:"swap_probability"`
	AwaitTimeout     time.Duration `yaml:"await_timeout"`
	JobRetention     time.Duration `yaml:"job_retention"`
	CapRules         bool          `yaml:"cap_rules"`
	OneShiftPerDay   bool          `yaml:"one_shift_per_day"`
	Seed             int64         `yaml:"seed"`
}

// EngineConfig 转换为局部搜索配置
func (c *SolverConfig) EngineConfig() *optimizer.Config {
	return &optimizer.Config{
		MaxIterations:    c.MaxIterations,
		MaxTime:          c.TimeBudget,
		PlateauThreshold: c.PlateauThreshold,
		Acceptor:         c.Acceptor,
		InitialTemp:      c.InitialTemp,
		HardWeight:       c.HardWeight,
		TabuSize:         c.TabuSize,
		SwapProbability:  c.SwapProbability,
		Seed:             c.Seed,
	}
}

// ManagerConfig 转换为任务管理器配置
func (c *SolverConfig) ManagerConfig() solver.ManagerConfig {
	return solver.ManagerConfig{
		Workers:   c.Workers,
		QueueSize: c.QueueSize,
		Retention: c.JobRetention,
	}
}

// ServiceConfig 转换为求解服务配置
func (c *SolverConfig) ServiceConfig() solver.ServiceConfig {
	return solver.ServiceConfig{
		AwaitTimeout: c.AwaitTimeout,
		Seed:         c.Seed,
	}
}

// ConstraintConfig 约束注册参数
func (c *SolverConfig) ConstraintConfig() map[string]interface{} {
	return map[string]interface{}{
		"cap_rules":         c.CapRules,
		"one_shift_per_day": c.OneShiftPerDay,
	}
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// Load 从环境变量加载配置，存在 .env 文件时先加载
func Load() (*Config, error) {
	_ = godotenv.Load()

	def := optimizer.DefaultConfig()
	cfg := &Config{
		App: AppConfig{
			Name:      getEnv("APP_NAME", "shiftplan"),
			Env:       getEnv("APP_ENV", "development"),
			LogLevel:  getEnv("APP_LOG_LEVEL", "info"),
			LogFormat: getEnv("APP_LOG_FORMAT", "console"),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			Name:               getEnv("DB_NAME", "shiftplan"),
			User:               getEnv("DB_USER", "shiftplan"),
			Password:           getEnv("DB_PASSWORD", ""),
			SSLMode:            getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:    getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			SlowQueryThreshold: getEnvDuration("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
		},
		Solver: SolverConfig{
			Workers:          getEnvInt("SOLVER_WORKERS", 2),
			QueueSize:        getEnvInt("SOLVER_QUEUE_SIZE", 16),
			TimeBudget:       getEnvDuration("SOLVER_TIME_BUDGET", def.MaxTime),
			MaxIterations:    getEnvInt("SOLVER_MAX_ITERATIONS", def.MaxIterations),
			PlateauThreshold: getEnvInt("SOLVER_PLATEAU_THRESHOLD", def.PlateauThreshold),
			Acceptor:         getEnv("SOLVER_ACCEPTOR", def.Acceptor),
			InitialTemp:      getEnvFloat("SOLVER_INITIAL_TEMP", def.InitialTemp),
			HardWeight:       getEnvInt("SOLVER_HARD_WEIGHT", def.HardWeight),
			TabuSize:         getEnvInt("SOLVER_TABU_SIZE", def.TabuSize),
			SwapProbability:  getEnvFloat("SOLVER_SWAP_PROBABILITY", def.SwapProbability),
			AwaitTimeout:     getEnvDuration("SOLVER_AWAIT_TIMEOUT", time.Minute),
			JobRetention:     getEnvDuration("SOLVER_JOB_RETENTION", 10*time.Minute),
			CapRules:         getEnvBool("SOLVER_CAP_RULES", false),
			OneShiftPerDay:   getEnvBool("SOLVER_ONE_SHIFT_PER_DAY", true),
			Seed:             getEnvInt64("SOLVER_SEED", 0),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", false),
			Addr:    getEnv("METRICS_ADDR", ":9090"),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Solver.Workers <= 0 {
		return fmt.Errorf("SOLVER_WORKERS 必须大于0: %d", c.Solver.Workers)
	}
	if c.Solver.QueueSize <= 0 {
		return fmt.Errorf("SOLVER_QUEUE_SIZE 必须大于0: %d", c.Solver.QueueSize)
	}
	if c.Solver.AwaitTimeout <= 0 {
		return fmt.Errorf("SOLVER_AWAIT_TIMEOUT 必须大于0: %s", c.Solver.AwaitTimeout)
	}
	if c.Solver.TimeBudget < 0 || c.Solver.MaxIterations < 0 {
		return fmt.Errorf("求解预算不能为负数")
	}
	if err := c.Solver.EngineConfig().Validate(); err != nil {
		return fmt.Errorf("求解配置无效: %w", err)
	}
	return nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
