package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/shiftplan/pkg/scheduler/optimizer"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "shiftplan", cfg.App.Name)
	assert.Equal(t, 2, cfg.Solver.Workers)
	assert.Equal(t, optimizer.AcceptorSimulatedAnnealing, cfg.Solver.Acceptor)
	assert.False(t, cfg.Solver.CapRules)
	assert.True(t, cfg.Solver.OneShiftPerDay)
	assert.Equal(t, time.Minute, cfg.Solver.AwaitTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Database.SlowQueryThreshold)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("SOLVER_WORKERS", "4")
	t.Setenv("SOLVER_ACCEPTOR", "tabu")
	t.Setenv("SOLVER_TIME_BUDGET", "5s")
	t.Setenv("SOLVER_CAP_RULES", "true")
	t.Setenv("SOLVER_ONE_SHIFT_PER_DAY", "false")
	t.Setenv("SOLVER_SEED", "42")
	t.Setenv("DB_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Solver.Workers)
	assert.Equal(t, 5432, cfg.Database.Port, "invalid value falls back to default")

	engine := cfg.Solver.EngineConfig()
	assert.Equal(t, optimizer.AcceptorTabu, engine.Acceptor)
	assert.Equal(t, 5*time.Second, engine.MaxTime)
	assert.Equal(t, int64(42), engine.Seed)

	assert.Equal(t, true, cfg.Solver.ConstraintConfig()["cap_rules"])
	assert.Equal(t, false, cfg.Solver.ConstraintConfig()["one_shift_per_day"])
	assert.Equal(t, 4, cfg.Solver.ManagerConfig().Workers)
	assert.Equal(t, int64(42), cfg.Solver.ServiceConfig().Seed)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"workers", "SOLVER_WORKERS", "0"},
		{"queue", "SOLVER_QUEUE_SIZE", "-1"},
		{"acceptor", "SOLVER_ACCEPTOR", "great_deluge"},
		{"swap", "SOLVER_SWAP_PROBABILITY", "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=require", c.DSN())
}
