package diverepo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 {
	return &v
}

func seedDives(repo *MemoryRepository, userID string, dates ...string) {
	for i, date := range dates {
		repo.AddDive(Dive{
			ID:               string(rune('a'+i)) + "-dive",
			UserID:           userID,
			LocationKey:      "sesimbra",
			Location:         "Sesimbra",
			Date:             date,
			MaxDepthM:        fp(20),
			DurationMin:      fp(40),
			StartPressureBar: fp(200),
			EndPressureBar:   fp(80),
			TankVolumeL:      fp(12),
		})
	}
}

func TestMemoryRepository_GlobalBaseline(t *testing.T) {
	repo := NewMemoryRepository()
	seedDives(repo, "user-1", "2025-01-10", "2025-02-01", "2025-02-15")
	seedDives(repo, "someone-else", "2025-01-01")

	row, found, err := repo.GlobalBaseline(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 3, row.SampleSize)
	require.Equal(t, 20.0, *row.AvgDepth)
	require.Equal(t, 40.0, *row.AvgDuration)
	require.NotNil(t, row.AvgRMV)
	require.Equal(t, "2025-02-15", *row.LastDiveDate)
}

func TestMemoryRepository_GlobalBaselineNoDives(t *testing.T) {
	repo := NewMemoryRepository()

	_, found, err := repo.GlobalBaseline(context.Background(), "user-1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemoryRepository_LocationBaselineFiltersByKey(t *testing.T) {
	repo := NewMemoryRepository()
	seedDives(repo, "user-1", "2025-01-10", "2025-02-01")
	repo.AddDive(Dive{ID: "x-dive", UserID: "user-1", LocationKey: "blue hole", Date: "2025-02-20", MaxDepthM: fp(40)})

	row, found, err := repo.LocationBaseline(context.Background(), "user-1", "sesimbra")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 2, row.SampleSize)

	row, found, err = repo.LocationBaseline(context.Background(), "user-1", "blue hole")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 1, row.SampleSize)
}

func TestMemoryRepository_RecentBaselineWindow(t *testing.T) {
	repo := NewMemoryRepository()
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	seedDives(repo, "user-1", "2025-02-20", "2025-02-25", "2024-11-01")

	row, found, err := repo.RecentBaseline(context.Background(), "user-1", 30)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 2, row.SampleSize, "the november dive is outside the 30 day window")

	row, found, err = repo.RecentBaseline(context.Background(), "user-1", 180)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 3, row.SampleSize)
}

func TestMemoryRepository_InsightPayloadRoundTrip(t *testing.T) {
	repo := NewMemoryRepository()
	repo.AddDive(Dive{ID: "dive-1", UserID: "user-1", Date: "2025-03-02"})

	_, found, err := repo.ReadInsightPayload(context.Background(), "user-1", "dive-1")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, repo.WriteInsightPayload(context.Background(), "user-1", "dive-1", []byte(`{"cached":true}`)))

	payload, found, err := repo.ReadInsightPayload(context.Background(), "user-1", "dive-1")
	require.NoError(t, err)
	require.True(t, found)
	require.JSONEq(t, `{"cached":true}`, string(payload))
}

func TestMemoryRepository_InsightPayloadEnforcesOwnership(t *testing.T) {
	repo := NewMemoryRepository()
	repo.AddDive(Dive{ID: "dive-1", UserID: "user-1", Date: "2025-03-02"})

	require.NoError(t, repo.WriteInsightPayload(context.Background(), "intruder", "dive-1", []byte(`{}`)))

	_, found, err := repo.ReadInsightPayload(context.Background(), "user-1", "dive-1")
	require.NoError(t, err)
	require.False(t, found, "a write under the wrong user must not land")

	require.NoError(t, repo.WriteInsightPayload(context.Background(), "user-1", "dive-1", []byte(`{}`)))
	_, found, err = repo.ReadInsightPayload(context.Background(), "intruder", "dive-1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemoryRepository_ConsumeGenerationCredit(t *testing.T) {
	repo := NewMemoryRepository()
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		decision, err := repo.ConsumeGenerationCredit(context.Background(), "user-1", 3, 24*time.Hour)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
		require.Equal(t, 2-i, decision.Remaining)
	}

	decision, err := repo.ConsumeGenerationCredit(context.Background(), "user-1", 3, 24*time.Hour)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Zero(t, decision.Remaining)
	require.Equal(t, now.Add(24*time.Hour), *decision.ResetAt)
}

func TestMemoryRepository_CreditWindowResets(t *testing.T) {
	repo := NewMemoryRepository()
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	decision, err := repo.ConsumeGenerationCredit(context.Background(), "user-1", 1, 24*time.Hour)
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	decision, err = repo.ConsumeGenerationCredit(context.Background(), "user-1", 1, 24*time.Hour)
	require.NoError(t, err)
	require.False(t, decision.Allowed)

	now = now.Add(25 * time.Hour)
	decision, err = repo.ConsumeGenerationCredit(context.Background(), "user-1", 1, 24*time.Hour)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
}

func TestMemoryRepository_ListDivesSortedNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	seedDives(repo, "user-1", "2025-01-10", "2025-02-15", "2025-02-01")

	records, err := repo.ListDives(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "2025-02-15", records[0].Date)
	require.Equal(t, "2025-02-01", records[1].Date)
	require.Equal(t, "2025-01-10", records[2].Date)
}
