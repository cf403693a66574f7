package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"VitalPulse/internal/domain/models"
	"VitalPulse/internal/services/catalog"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func severityColor(s models.Severity) func(a ...interface{}) string {
	switch s {
	case models.SeverityCritical:
		return red
	case models.SeverityHigh:
		return yellow
	case models.SeverityMedium:
		return cyan
	default:
		return gray
	}
}

func healthColor(h models.OverallHealth) func(a ...interface{}) string {
	switch h {
	case models.HealthCritical:
		return red
	case models.HealthConcern:
		return yellow
	case models.HealthAttention:
		return cyan
	default:
		return green
	}
}

func formatRange(min, max *float64) string {
	lo, hi := "-", "-"
	if min != nil {
		lo = fmt.Sprintf("%g", *min)
	}
	if max != nil {
		hi = fmt.Sprintf("%g", *max)
	}
	return lo + ".." + hi
}

func (a *app) printCatalog(entries []catalog.Entry) {
	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tLABEL\tUNIT\tALERT%\tCRITICAL%\tRANGE\tHIGHER IS BETTER")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%s\t%t\n",
			e.Type, e.Label, e.Unit, e.AlertThresholdPct, e.CriticalThresholdPct,
			formatRange(e.NormalRangeMin, e.NormalRangeMax), e.HigherIsBetter)
	}
	_ = w.Flush()
}

func (a *app) printBaseline(b models.Baseline) error {
	if a.jsonOut {
		return a.printJSON(b)
	}
	a.printBaselineText(b)
	return nil
}

func (a *app) printBaselineText(b models.Baseline) {
	fmt.Fprintf(a.stdout, "%s %s\n", cyan(string(b.MetricType)), gray("v"+fmt.Sprint(b.Version)))
	fmt.Fprintf(a.stdout, "  mean:       %.2f ± %.2f (%d samples, %d day window)\n", b.Value, b.StdDev, b.SampleCount, b.WindowDays)
	fmt.Fprintf(a.stdout, "  thresholds: alert %g%%, critical %g%%\n", b.AlertThresholdPct, b.CriticalThresholdPct)
	fmt.Fprintf(a.stdout, "  range:      %s\n", formatRange(b.NormalRangeMin, b.NormalRangeMax))
	fmt.Fprintf(a.stdout, "  trend:      %s for %d days\n", b.TrendDirection, b.TrendDurationDays)
	if !b.LastUpdated.IsZero() {
		fmt.Fprintf(a.stdout, "  updated:    %s\n", b.LastUpdated.Format("2006-01-02 15:04:05 MST"))
	}
}

func (a *app) printAnomaly(r models.AnomalyResult) {
	if r.Baseline == nil {
		fmt.Fprintf(a.stdout, "%s %s\n", gray("○"), gray("not enough history to judge "+string(r.MetricType)))
		return
	}
	if !r.IsAnomaly {
		fmt.Fprintf(a.stdout, "%s %s within baseline (%.1f%% off, z=%.2f)\n", green("●"), r.MetricType, r.DeviationPct, r.ZScore)
		return
	}
	sev := r.SeverityOrNone()
	paint := severityColor(sev)
	fmt.Fprintf(a.stdout, "%s %s (z=%.2f)\n", paint("▲ "+strings.ToUpper(string(sev))), bold(deref(r.Message)), r.ZScore)
	if rec := deref(r.Recommendation); rec != "" {
		fmt.Fprintf(a.stdout, "  %s\n", rec)
	}
}

func (a *app) printBreaks(breaks []models.PatternBreak) {
	if len(breaks) == 0 {
		fmt.Fprintf(a.stdout, "%s %s\n", green("●"), "no pattern breaks")
		return
	}
	for _, pb := range breaks {
		paint := severityColor(pb.Severity)
		fmt.Fprintf(a.stdout, "%s %s: %s\n", paint("▲ "+strings.ToUpper(string(pb.Severity))), pb.PatternType, pb.Description)
	}
}

func (a *app) printSnapshot(s *models.HealthSnapshot) {
	paint := healthColor(s.OverallHealth)
	fmt.Fprintf(a.stdout, "\n%s\n", cyan("=== Health snapshot for "+s.UserID+" ==="))
	fmt.Fprintf(a.stdout, "Overall: %s", paint(strings.ToUpper(string(s.OverallHealth))))
	if s.Partial {
		fmt.Fprintf(a.stdout, " %s", yellow("(partial: "+strings.Join(s.Failures, ", ")+")"))
	}
	fmt.Fprintln(a.stdout)

	if len(s.Metrics) > 0 {
		fmt.Fprintf(a.stdout, "\n%s\n", bold("Latest values"))
		keys := make([]string, 0, len(s.Metrics))
		for k := range s.Metrics {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(a.stdout, "  %-22s %g\n", k, s.Metrics[models.MetricType(k)])
		}
	}
	if len(s.Anomalies) > 0 {
		fmt.Fprintf(a.stdout, "\n%s\n", bold("Anomalies"))
		for _, r := range s.Anomalies {
			a.printAnomaly(r)
		}
	}
	if len(s.PatternBreaks) > 0 {
		fmt.Fprintf(a.stdout, "\n%s\n", bold("Pattern breaks"))
		a.printBreaks(s.PatternBreaks)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
