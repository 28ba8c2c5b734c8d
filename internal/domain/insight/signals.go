package insight

import "fmt"

const (
	baselineHighRatio = 1.15
	baselineLowRatio  = 0.85

	longSurfaceIntervalDays = 90
)

// ExtractSignals compares the dive's metrics against whichever baselines are
// available. Fewer baselines simply mean fewer signals; nothing is guessed.
func ExtractSignals(ctx DiveContext, profile DiverProfile, m DiveMetrics, baselines BaselinesBundle) []Signal {
	signals := make([]Signal, 0, 4)

	if ctx.MaxDepthMeters != nil && baselines.Global != nil && baselines.Global.AvgDepth != nil && *baselines.Global.AvgDepth > 0 {
		ratio := *ctx.MaxDepthMeters / *baselines.Global.AvgDepth
		switch {
		case ratio > baselineHighRatio:
			signals = append(signals, Signal{
				Tag:  "depth_above_global_avg",
				Text: fmt.Sprintf("Max depth %.1f m is above the diver's overall average of %.1f m.", *ctx.MaxDepthMeters, *baselines.Global.AvgDepth),
			})
		case ratio < baselineLowRatio:
			signals = append(signals, Signal{
				Tag:  "depth_below_global_avg",
				Text: fmt.Sprintf("Max depth %.1f m is below the diver's overall average of %.1f m.", *ctx.MaxDepthMeters, *baselines.Global.AvgDepth),
			})
		}
	}

	if ctx.DurationMinutes != nil && baselines.Recent != nil && baselines.Recent.AvgDuration != nil && *baselines.Recent.AvgDuration > 0 {
		ratio := *ctx.DurationMinutes / *baselines.Recent.AvgDuration
		switch {
		case ratio > baselineHighRatio:
			signals = append(signals, Signal{
				Tag:  "duration_above_recent_avg",
				Text: fmt.Sprintf("Bottom time of %.0f min is longer than the recent average of %.0f min.", *ctx.DurationMinutes, *baselines.Recent.AvgDuration),
			})
		case ratio < baselineLowRatio:
			signals = append(signals, Signal{
				Tag:  "duration_below_recent_avg",
				Text: fmt.Sprintf("Bottom time of %.0f min is shorter than the recent average of %.0f min.", *ctx.DurationMinutes, *baselines.Recent.AvgDuration),
			})
		}
	}

	if m.RMVLitersPerMin != nil && baselines.Global != nil && baselines.Global.AvgRMV != nil && *baselines.Global.AvgRMV > 0 {
		ratio := *m.RMVLitersPerMin / *baselines.Global.AvgRMV
		switch {
		case ratio > baselineHighRatio:
			signals = append(signals, Signal{
				Tag:  "rmv_above_baseline",
				Text: fmt.Sprintf("Gas consumption of %.1f L/min is higher than the usual %.1f L/min.", *m.RMVLitersPerMin, *baselines.Global.AvgRMV),
			})
		case ratio < baselineLowRatio:
			signals = append(signals, Signal{
				Tag:  "rmv_below_baseline",
				Text: fmt.Sprintf("Gas consumption of %.1f L/min is lower than the usual %.1f L/min.", *m.RMVLitersPerMin, *baselines.Global.AvgRMV),
			})
		}
	}

	if baselines.Availability.HasGlobalBaseline && !baselines.Availability.HasLocationBaseline {
		signals = append(signals, Signal{
			Tag:  "few_dives_at_location",
			Text: fmt.Sprintf("The diver has little or no logged history at %s.", ctx.Location),
		})
	}

	if m.DaysSinceLastDive != nil && *m.DaysSinceLastDive > longSurfaceIntervalDays {
		signals = append(signals, Signal{
			Tag:  "long_surface_interval",
			Text: fmt.Sprintf("First logged dive in %d days.", *m.DaysSinceLastDive),
		})
	}

	return signals
}
