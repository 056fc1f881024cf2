// Package mockdata generates synthetic mobility tables with a disaster-shaped
// dip, for local runs and test fixtures.
package mockdata

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/storm-resilience/internal/domain"
)

// Config describes the synthetic table.
type Config struct {
	Units          int       // destination units to generate
	FlatUnits      int       // leading units that show no dip at all
	OriginsPerUnit int       // origin rows per unit and day
	Start          time.Time // first observed day
	Days           int
	DisasterStart  time.Time
	DisasterEnd    time.Time
	Level          float64 // pre-disaster daily in-degree
	DipDepth       float64 // fraction of Level lost during the disaster, 0..1
	RecoveryDays   int     // days after DisasterEnd to climb back to Level
	Noise          float64 // uniform relative noise amplitude, 0 for none
	Seed           uint64
}

// DefaultConfig is a 90-day table around a ten-day event in mid-September 2019.
func DefaultConfig() Config {
	return Config{
		Units:          10,
		FlatUnits:      2,
		OriginsPerUnit: 3,
		Start:          time.Date(2019, 8, 1, 0, 0, 0, 0, time.UTC),
		Days:           90,
		DisasterStart:  time.Date(2019, 9, 17, 0, 0, 0, 0, time.UTC),
		DisasterEnd:    time.Date(2019, 9, 27, 0, 0, 0, 0, time.UTC),
		Level:          120,
		DipDepth:       0.6,
		RecoveryDays:   10,
		Seed:           1,
	}
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch {
	case c.Units < 1:
		return errors.New("units must be at least 1")
	case c.FlatUnits < 0 || c.FlatUnits > c.Units:
		return errors.New("flat units must be between 0 and units")
	case c.OriginsPerUnit < 1:
		return errors.New("origins per unit must be at least 1")
	case c.Days < 1:
		return errors.New("days must be at least 1")
	case c.Start.Before(domain.Epoch):
		return fmt.Errorf("start must not precede %s", domain.Epoch.Format(time.DateOnly))
	case c.DisasterEnd.Before(c.DisasterStart):
		return errors.New("disaster end precedes disaster start")
	case c.DipDepth < 0 || c.DipDepth > 1:
		return errors.New("dip depth must be between 0 and 1")
	case c.Level <= 0:
		return errors.New("level must be positive")
	}
	return nil
}

// UnitID returns the synthetic 12-digit block group id for unit i.
func UnitID(i int) string {
	return fmt.Sprintf("48361%06d%d", 100+i/3, i%3+1)
}

// Generate builds the table unit by unit, day by day.
func Generate(cfg Config) (domain.Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	firstUID := domain.UIDFromDate(domain.Day(cfg.Start))

	table := make(domain.Table, 0, cfg.Units*cfg.Days*cfg.OriginsPerUnit)
	for u := range cfg.Units {
		dest := UnitID(u)
		flat := u < cfg.FlatUnits
		for d := range cfg.Days {
			uid := firstUID + d
			date, err := domain.DateFromUID(uid)
			if err != nil {
				return nil, err
			}
			level := cfg.Level
			if !flat {
				level = cfg.levelOn(date)
			}
			share := level / float64(cfg.OriginsPerUnit)
			for o := range cfg.OriginsPerUnit {
				count := share
				if cfg.Noise > 0 {
					count *= 1 + cfg.Noise*(2*rng.Float64()-1)
				}
				table = append(table, domain.MobilityRecord{
					OriginUnit:             UnitID(1000 + u*cfg.OriginsPerUnit + o),
					DestinationUnit:        dest,
					DeviceCount:            float64(1 + rng.IntN(20)),
					DestinationDeviceCount: count,
					Year:                   date.Year(),
					UID:                    uid,
					Date:                   date,
				})
			}
		}
	}
	return table, nil
}

// levelOn is the noiseless in-degree of a dipping unit on date.
func (c Config) levelOn(date time.Time) float64 {
	low := c.Level * (1 - c.DipDepth)
	switch {
	case date.Before(c.DisasterStart):
		return c.Level
	case !date.After(c.DisasterEnd):
		return low
	case c.RecoveryDays <= 0:
		return c.Level
	}
	since := date.Sub(c.DisasterEnd).Hours() / 24
	if since >= float64(c.RecoveryDays) {
		return c.Level
	}
	return low + (c.Level-low)*since/float64(c.RecoveryDays)
}
