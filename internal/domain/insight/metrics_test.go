package insight

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeDiveMetrics_FullInputs(t *testing.T) {
	ctx := DiveContext{
		Location:         "Sesimbra",
		Date:             "2025-03-02",
		MaxDepthMeters:   fp(30),
		DurationMinutes:  fp(45),
		StartPressureBar: fp(200),
		EndPressureBar:   fp(50),
		TankVolumeL:      fp(12),
	}

	m := ComputeDiveMetrics(ctx, DiverProfile{}, BaselinesBundle{})

	require.Equal(t, 4.0, *m.PressureATA)
	require.Equal(t, 150.0, *m.GasUsedBar)
	// 150 bar * 12 L / 45 min / 2.5 ATA = 16.0 L/min
	require.Equal(t, 16.0, *m.RMVLitersPerMin)
	require.InDelta(t, 20.1, *m.IntensityScore, 0.01)
	require.Nil(t, m.DaysSinceLastDive)
}

func TestComputeDiveMetrics_MissingInputsYieldNil(t *testing.T) {
	ctx := DiveContext{Location: "Sesimbra", Date: "2025-03-02", MaxDepthMeters: fp(18)}

	m := ComputeDiveMetrics(ctx, DiverProfile{}, BaselinesBundle{})

	require.NotNil(t, m.PressureATA)
	require.Nil(t, m.GasUsedBar)
	require.Nil(t, m.RMVLitersPerMin)
	require.Nil(t, m.IntensityScore)
}

func TestComputeDiveMetrics_NoGasUsedWhenEndExceedsStart(t *testing.T) {
	ctx := DiveContext{
		Location:         "Sesimbra",
		Date:             "2025-03-02",
		StartPressureBar: fp(90),
		EndPressureBar:   fp(120),
	}

	m := ComputeDiveMetrics(ctx, DiverProfile{}, BaselinesBundle{})
	require.Nil(t, m.GasUsedBar)
}

func TestComputeDiveMetrics_DaysSinceLastDive(t *testing.T) {
	ctx := DiveContext{Location: "Sesimbra", Date: "2025-03-02"}
	bundle := BaselinesBundle{
		Global: &BaselineRecord{Scope: ScopeGlobal, SampleSize: 8, LastDiveDate: sp("2025-01-01")},
		Recent: &BaselineRecord{Scope: ScopeRecent, SampleSize: 3, LastDiveDate: sp("2025-02-20")},
	}

	m := ComputeDiveMetrics(ctx, DiverProfile{}, bundle)

	require.NotNil(t, m.DaysSinceLastDive)
	require.Equal(t, 10, *m.DaysSinceLastDive)
}

func TestComputeDiveMetrics_FutureLastDiveIsUnknown(t *testing.T) {
	ctx := DiveContext{Location: "Sesimbra", Date: "2025-03-02"}
	bundle := BaselinesBundle{
		Global: &BaselineRecord{Scope: ScopeGlobal, SampleSize: 8, LastDiveDate: sp("2025-04-01")},
	}

	m := ComputeDiveMetrics(ctx, DiverProfile{}, bundle)
	require.Nil(t, m.DaysSinceLastDive)
}
