// Package report renders human-readable resilience summaries for a single unit.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/couchcryptid/storm-resilience/internal/domain"
)

const width = 70

// TriangleSummary writes the triangle model report for unit.
func TriangleSummary(w io.Writer, unit, disasterName string, baseline float64, res domain.TriangleResult, disasterStart, disasterEnd time.Time) error {
	p := &printer{w: w}
	p.rule("=")
	p.line("Community Resilience Summary for CBG - %s%s", unit, suffix(disasterName))
	p.rule("=")

	p.line("Disaster Timeline:")
	p.line("   Start: %s", day(pointDate(res.T0, disasterStart)))
	p.line("   End  : %s", day(pointDate(res.Inactive, disasterEnd)))
	p.rule("-")

	p.line("Key Resilience Markers:")
	p.line("   t0         (Disaster Start)    : %s", point(res.T0))
	p.line("   t_inactive (Disaster End)      : %s", point(res.Inactive))
	p.line("   tD         (Systematic Impact) : %s", point(res.TD))
	p.line("   t1         (Recovery Detected) : %s", point(res.T1))
	p.rule("-")

	p.line("Baseline Value         : %.4f", baseline)
	p.rule("-")

	p.line("Resilience Metrics:")
	p.line("   Robustness     : %.4f", res.Robustness)
	p.line("   Vulnerability  : %.4f", res.Vulnerability)
	p.line("   Resilience     : %.4f %%", res.Resilience)
	p.rule("-")

	p.line("Recovery Status: %s", res.Status)
	if res.IsSpecialCase {
		p.line("Special Case - %s", res.Message)
	}
	p.rule("=")
	return p.err
}

// AUCSummary writes the AUC model report for unit.
func AUCSummary(w io.Writer, unit, disasterName string, res domain.AUCResult) error {
	p := &printer{w: w}
	p.line("Community Resilience Summary for %s%s", unit, suffix(disasterName))
	p.line("-----------------------------")
	p.line("Disaster Start Date    : %s", day(res.DisasterStart))
	p.line("Disaster End Date      : %s", day(res.DisasterEnd))
	if res.RecoveryPoint != nil {
		p.line("Recovery Point         : %s", day(*res.RecoveryPoint))
		p.line("Time to Recovery       : %d days", res.DaysToRecovery())
	} else {
		p.line("Recovery Point         : n/a")
		p.line("Time to Recovery       : n/a")
	}
	p.line("Resilience Capacity    : %.3f (area under normalized curve)", res.Resilience)
	p.line("Recovery Status        : %s", res.Status())
	if res.IsSpecialCase {
		p.line("Special Case - %s", res.Message)
	}
	return p.err
}

// printer stops writing after the first error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) rule(ch string) {
	p.line("%s", strings.Repeat(ch, width))
}

func suffix(name string) string {
	if name == "" {
		return ""
	}
	return " - " + name
}

func day(t time.Time) string {
	return t.Format(time.DateOnly)
}

func pointDate(p *domain.Point, fallback time.Time) time.Time {
	if p == nil {
		return fallback
	}
	return p.Date
}

func point(p *domain.Point) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%s (%.4f)", day(p.Date), p.Value)
}
