package mockdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-resilience/internal/domain"
)

func TestGenerate_Shape(t *testing.T) {
	cfg := DefaultConfig()

	table, err := Generate(cfg)
	require.NoError(t, err)
	assert.Len(t, table, cfg.Units*cfg.Days*cfg.OriginsPerUnit)

	parts := domain.PartitionByUnit(table)
	require.Len(t, parts, cfg.Units)
	assert.Equal(t, UnitID(0), parts[0].Unit)
	assert.Len(t, parts[0].Rows, cfg.Days*cfg.OriginsPerUnit)

	first := table[0]
	assert.Equal(t, cfg.Start, first.Date)
	assert.Equal(t, domain.UIDFromDate(cfg.Start), first.UID)
	assert.Equal(t, 2019, first.Year)
}

func TestGenerate_DipAndRecovery(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FlatUnits = 1

	table, err := Generate(cfg)
	require.NoError(t, err)

	flat, err := domain.AggregateDaily(domain.FilterToUnit(table, UnitID(0)))
	require.NoError(t, err)
	for _, p := range flat.Points {
		assert.InDelta(t, cfg.Level, p.Value, 1e-9)
	}

	dip, err := domain.AggregateDaily(domain.FilterToUnit(table, UnitID(1)))
	require.NoError(t, err)
	byDate := make(map[time.Time]float64, dip.Len())
	for _, p := range dip.Points {
		byDate[p.Date] = p.Value
	}
	low := cfg.Level * (1 - cfg.DipDepth)
	assert.InDelta(t, cfg.Level, byDate[cfg.DisasterStart.AddDate(0, 0, -1)], 1e-9)
	assert.InDelta(t, low, byDate[cfg.DisasterStart], 1e-9)
	assert.InDelta(t, low, byDate[cfg.DisasterEnd], 1e-9)
	assert.InDelta(t, (low+cfg.Level)/2, byDate[cfg.DisasterEnd.AddDate(0, 0, cfg.RecoveryDays/2)], 1e-9)
	assert.InDelta(t, cfg.Level, byDate[cfg.DisasterEnd.AddDate(0, 0, cfg.RecoveryDays)], 1e-9)
}

func TestGenerate_SeededNoiseIsReproducible(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Noise = 0.1

	a, err := Generate(cfg)
	require.NoError(t, err)
	b, err := Generate(cfg)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	cfg.Seed = 2
	c, err := Generate(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no units", func(c *Config) { c.Units = 0 }},
		{"too many flat units", func(c *Config) { c.FlatUnits = c.Units + 1 }},
		{"no origins", func(c *Config) { c.OriginsPerUnit = 0 }},
		{"no days", func(c *Config) { c.Days = 0 }},
		{"before epoch", func(c *Config) { c.Start = time.Date(2018, 12, 31, 0, 0, 0, 0, time.UTC) }},
		{"end before start", func(c *Config) { c.DisasterEnd = c.DisasterStart.AddDate(0, 0, -1) }},
		{"dip too deep", func(c *Config) { c.DipDepth = 1.5 }},
		{"zero level", func(c *Config) { c.Level = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := Generate(cfg)
			assert.Error(t, err)
		})
	}
}

func TestUnitID(t *testing.T) {
	assert.Equal(t, "483610001001", UnitID(0))
	assert.Equal(t, "483610001003", UnitID(2))
	assert.Equal(t, "483610001011", UnitID(3))
	assert.Len(t, UnitID(999), 12)
}
