// shiftplan 排班求解命令行
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/paiban/shiftplan/internal/config"
	"github.com/paiban/shiftplan/internal/database"
	"github.com/paiban/shiftplan/internal/metrics"
	"github.com/paiban/shiftplan/internal/repository"
	"github.com/paiban/shiftplan/pkg/assignment"
	"github.com/paiban/shiftplan/pkg/logger"
	"github.com/paiban/shiftplan/pkg/scheduler/constraint/builtin"
	"github.com/paiban/shiftplan/pkg/scheduler/optimizer"
	"github.com/paiban/shiftplan/pkg/scheduler/planning"
	"github.com/paiban/shiftplan/pkg/scheduler/solver"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// backend 规划数据读取与分配写入
type backend interface {
	planning.Source
	assignment.Store
}

// App 命令共享的依赖
type App struct {
	cfg      *config.Config
	log      *logger.SchedulerLogger
	registry *prometheus.Registry
	metrics  *metrics.SolverMetrics
	server   *http.Server
	closers  []func() error
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	app := &App{}

	rootCmd := &cobra.Command{
		Use:          "shiftplan",
		Short:        "排班求解引擎",
		Long:         `为排班计划求解员工分配，或校验并整体替换已有分配。`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return app.init()
		},
	}

	rootCmd.PersistentFlags().String("fixture", "", "从 YAML 数据文件加载规划数据（不连接数据库）")

	rootCmd.AddCommand(solveCmd(app))
	rootCmd.AddCommand(replaceCmd(app))
	rootCmd.AddCommand(constraintsCmd(app))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// init 加载配置，初始化日志和指标
func (a *App) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	a.cfg = cfg

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		Output: "stderr",
	})
	a.log = logger.NewSchedulerLogger()

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.NewSolverMetrics(a.registry)

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler(a.registry))
		a.server = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Msg("指标服务异常退出")
			}
		}()
		logger.Info().Str("addr", cfg.Metrics.Addr).Str("path", cfg.Metrics.Path).Msg("指标服务已启动")
	}
	return nil
}

// close 停止指标服务，按打开的逆序释放资源
func (a *App) close() error {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			logger.WithError(err).Msg("关闭指标服务失败")
		}
		a.server = nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// openStore 指定 --fixture 时使用内存存储，否则连接 PostgreSQL
func (a *App) openStore(cmd *cobra.Command) (backend, error) {
	fixture, _ := cmd.Flags().GetString("fixture")
	if fixture != "" {
		store, err := repository.LoadFixtureFile(fixture)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("fixture", fixture).Msg("已加载规划数据文件")
		return store, nil
	}

	db, err := database.New(&a.cfg.Database)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	return repository.NewStore(db), nil
}

// newService 组装求解服务并启动任务管理器
func (a *App) newService(ctx context.Context, store backend, resume bool) *solver.Service {
	constraints := builtin.NewDefaultManager(a.cfg.Solver.ConstraintConfig())
	engine := optimizer.NewEngine(a.cfg.Solver.EngineConfig(), constraints).WithLogger(a.log)

	jobs := solver.NewManager(engine, a.cfg.Solver.ManagerConfig(),
		solver.WithObserver(a.metrics),
		solver.WithLogger(a.log),
	)
	jobs.Start(ctx)
	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return jobs.Shutdown(shutdownCtx)
	})

	svcCfg := a.cfg.Solver.ServiceConfig()
	svcCfg.Resume = resume
	replacer := assignment.NewReplacer(store, nil, a.log)
	return solver.NewService(planning.NewBuilder(store), jobs, replacer, svcCfg)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shiftplan %s\nBuild: %s (%s)\n", Version, BuildTime, GitCommit)
		},
	}
}
