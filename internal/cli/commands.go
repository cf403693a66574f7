package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"VitalPulse/internal/di"
	"VitalPulse/internal/domain/models"
	"VitalPulse/internal/services/catalog"
)

// withEngine opens the engine, runs fn under the command timeout and closes it.
func (a *app) withEngine(cmd *cobra.Command, fn func(ctx context.Context, t *di.Tooling) error) error {
	t, err := a.open()
	if err != nil {
		return err
	}
	defer t.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	defer cancel()
	return fn(ctx, t)
}

func newCatalogCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List supported metrics and their default thresholds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries := catalog.All()
			if a.jsonOut {
				return a.printJSON(entries)
			}
			a.printCatalog(entries)
			return nil
		},
	}
}

func newObserveCmd(a *app) *cobra.Command {
	var windowDays int
	var source string
	cmd := &cobra.Command{
		Use:   "observe <user> <metric> <value>",
		Short: "Record one observation and update its baseline",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(args[2])
			if err != nil {
				return err
			}
			return a.withEngine(cmd, func(ctx context.Context, t *di.Tooling) error {
				b, err := t.Engine.Baselines.Ingest(ctx, models.Observation{
					UserID:     args[0],
					MetricType: models.MetricType(args[1]),
					Value:      value,
					Source:     source,
					WindowDays: windowDays,
				})
				if err != nil {
					return err
				}
				return a.printBaseline(b)
			})
		},
	}
	cmd.Flags().IntVar(&windowDays, "window", 0, "rolling window in days (0 uses the configured window)")
	cmd.Flags().StringVar(&source, "source", "cli", "observation source tag")
	return cmd
}

func newBaselineCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Read or adjust baselines",
	}
	cmd.AddCommand(newBaselineGetCmd(a), newBaselineThresholdsCmd(a))
	return cmd
}

func newBaselineGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <user> [metric]",
		Short: "Show one baseline, or every baseline of a user",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, func(ctx context.Context, t *di.Tooling) error {
				if len(args) == 1 {
					list, err := t.Engine.Baselines.List(ctx, args[0])
					if err != nil {
						return err
					}
					if a.jsonOut {
						return a.printJSON(list)
					}
					if len(list) == 0 {
						fmt.Fprintf(a.stdout, "%s\n", gray("no baselines for "+args[0]))
					}
					for _, b := range list {
						a.printBaselineText(b)
					}
					return nil
				}

				b, err := t.Engine.Baselines.Get(ctx, args[0], models.MetricType(args[1]))
				if err != nil {
					return err
				}
				if b == nil {
					return fmt.Errorf("%w: %s/%s", models.ErrBaselineNotFound, args[0], args[1])
				}
				return a.printBaseline(*b)
			})
		},
	}
}

func newBaselineThresholdsCmd(a *app) *cobra.Command {
	var alert, critical, rangeMin, rangeMax float64
	cmd := &cobra.Command{
		Use:   "thresholds <user> <metric>",
		Short: "Override alert and critical thresholds or the normal range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var o models.ThresholdOverride
			if cmd.Flags().Changed("alert") {
				o.AlertThresholdPct = &alert
			}
			if cmd.Flags().Changed("critical") {
				o.CriticalThresholdPct = &critical
			}
			if cmd.Flags().Changed("min") {
				o.NormalRangeMin = &rangeMin
			}
			if cmd.Flags().Changed("max") {
				o.NormalRangeMax = &rangeMax
			}
			if o == (models.ThresholdOverride{}) {
				return fmt.Errorf("nothing to change: set at least one of --alert, --critical, --min, --max")
			}
			return a.withEngine(cmd, func(ctx context.Context, t *di.Tooling) error {
				b, err := t.Engine.Baselines.OverrideThresholds(ctx, args[0], models.MetricType(args[1]), o)
				if err != nil {
					return err
				}
				return a.printBaseline(b)
			})
		},
	}
	cmd.Flags().Float64Var(&alert, "alert", 0, "alert threshold, percent deviation")
	cmd.Flags().Float64Var(&critical, "critical", 0, "critical threshold, percent deviation")
	cmd.Flags().Float64Var(&rangeMin, "min", 0, "normal range lower bound")
	cmd.Flags().Float64Var(&rangeMax, "max", 0, "normal range upper bound")
	return cmd
}

func newClassifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <user> <metric> <value>",
		Short: "Grade a value against the stored baseline without updating it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(args[2])
			if err != nil {
				return err
			}
			return a.withEngine(cmd, func(ctx context.Context, t *di.Tooling) error {
				res, err := t.Engine.Classify(ctx, args[0], models.MetricType(args[1]), value)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return a.printJSON(res)
				}
				a.printAnomaly(res)
				return nil
			})
		},
	}
}

func newPatternsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "patterns <user>",
		Short: "Run the absence checks for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, func(ctx context.Context, t *di.Tooling) error {
				breaks, err := t.Engine.DetectPatternBreaks(ctx, args[0])
				if err != nil {
					return err
				}
				if a.jsonOut {
					return a.printJSON(breaks)
				}
				a.printBreaks(breaks)
				return nil
			})
		},
	}
}

func newSnapshotCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <user>",
		Short: "Build a health snapshot for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, func(ctx context.Context, t *di.Tooling) error {
				snap, err := t.Engine.BuildSnapshot(ctx, args[0])
				if err != nil {
					return err
				}
				if a.jsonOut {
					return a.printJSON(snap)
				}
				a.printSnapshot(snap)
				return nil
			})
		},
	}
}

func parseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not a number", s)
	}
	return v, nil
}
