package insight

import (
	"math"
	"time"
)

// ComputeDiveMetrics derives physiological figures from the normalized dive
// context. It is pure and total: absent inputs yield nil metrics, never errors.
func ComputeDiveMetrics(ctx DiveContext, profile DiverProfile, baselines BaselinesBundle) DiveMetrics {
	var m DiveMetrics

	if ctx.MaxDepthMeters != nil {
		ata := 1 + *ctx.MaxDepthMeters/10
		m.PressureATA = round1(ata)
	}

	if ctx.StartPressureBar != nil && ctx.EndPressureBar != nil && *ctx.StartPressureBar > *ctx.EndPressureBar {
		used := *ctx.StartPressureBar - *ctx.EndPressureBar
		m.GasUsedBar = round1(used)
	}

	// RMV assumes the average depth of a recreational profile sits near half
	// the maximum depth.
	if m.GasUsedBar != nil && ctx.TankVolumeL != nil && ctx.DurationMinutes != nil && ctx.MaxDepthMeters != nil {
		avgATA := 1 + (*ctx.MaxDepthMeters/2)/10
		liters := *m.GasUsedBar * *ctx.TankVolumeL
		rmv := liters / *ctx.DurationMinutes / avgATA
		if !math.IsNaN(rmv) && !math.IsInf(rmv, 0) && rmv > 0 {
			m.RMVLitersPerMin = round1(rmv)
		}
	}

	if ctx.MaxDepthMeters != nil && ctx.DurationMinutes != nil {
		score := *ctx.MaxDepthMeters * math.Sqrt(*ctx.DurationMinutes) / 10
		m.IntensityScore = round1(score)
	}

	if days, ok := daysSinceLastDive(ctx, baselines); ok {
		m.DaysSinceLastDive = &days
	}

	return m
}

// daysSinceLastDive uses the most recent lastDiveDate carried by any available
// baseline scope. Dives logged out of order can yield a negative gap, which is
// treated as unknown.
func daysSinceLastDive(ctx DiveContext, baselines BaselinesBundle) (int, bool) {
	diveDate, err := time.Parse("2006-01-02", ctx.Date)
	if err != nil {
		return 0, false
	}
	var latest time.Time
	for _, record := range []*BaselineRecord{baselines.Global, baselines.Location, baselines.Recent} {
		if record == nil || record.LastDiveDate == nil {
			continue
		}
		parsed, perr := time.Parse("2006-01-02", *record.LastDiveDate)
		if perr != nil {
			continue
		}
		if parsed.After(latest) {
			latest = parsed
		}
	}
	if latest.IsZero() || latest.After(diveDate) {
		return 0, false
	}
	return int(diveDate.Sub(latest).Hours() / 24), true
}

func round1(v float64) *float64 {
	rounded := math.Round(v*10) / 10
	return &rounded
}
