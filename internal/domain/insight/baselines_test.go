package insight

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubBaselineRepo struct {
	globalFn   func(ctx context.Context, userID string) (BaselineRow, bool, error)
	locationFn func(ctx context.Context, userID, locationKey string) (BaselineRow, bool, error)
	recentFn   func(ctx context.Context, userID string, windowDays int) (BaselineRow, bool, error)
}

func (s *stubBaselineRepo) GlobalBaseline(ctx context.Context, userID string) (BaselineRow, bool, error) {
	if s.globalFn != nil {
		return s.globalFn(ctx, userID)
	}
	return BaselineRow{}, false, nil
}

func (s *stubBaselineRepo) LocationBaseline(ctx context.Context, userID, locationKey string) (BaselineRow, bool, error) {
	if s.locationFn != nil {
		return s.locationFn(ctx, userID, locationKey)
	}
	return BaselineRow{}, false, nil
}

func (s *stubBaselineRepo) RecentBaseline(ctx context.Context, userID string, windowDays int) (BaselineRow, bool, error) {
	if s.recentFn != nil {
		return s.recentFn(ctx, userID, windowDays)
	}
	return BaselineRow{}, false, nil
}

func testQuery() BaselineQuery {
	return BaselineQuery{UserID: "user-1", LocationKey: "sesimbra", Now: time.Now().UTC()}
}

func TestFetchBaselines_SampleGates(t *testing.T) {
	repo := &stubBaselineRepo{
		globalFn: func(ctx context.Context, userID string) (BaselineRow, bool, error) {
			return BaselineRow{SampleSize: 4, AvgDepth: fp(20)}, true, nil
		},
		locationFn: func(ctx context.Context, userID, locationKey string) (BaselineRow, bool, error) {
			return BaselineRow{SampleSize: 3, AvgDepth: fp(22)}, true, nil
		},
		recentFn: func(ctx context.Context, userID string, windowDays int) (BaselineRow, bool, error) {
			return BaselineRow{SampleSize: 2}, true, nil
		},
	}
	fetcher := NewBaselineFetcher(repo, newTestLogger())

	bundle := fetcher.FetchBaselines(context.Background(), testQuery())

	require.Nil(t, bundle.Global, "4 dives must not clear the global minimum of 5")
	require.NotNil(t, bundle.Location, "3 dives clears the location minimum")
	require.Nil(t, bundle.Recent)
	require.Equal(t, BaselineAvailability{HasLocationBaseline: true}, bundle.Availability)
	require.Equal(t, "sesimbra", bundle.Location.LocationKey)
}

func TestFetchBaselines_ScopeFailureIsIsolated(t *testing.T) {
	repo := &stubBaselineRepo{
		globalFn: func(ctx context.Context, userID string) (BaselineRow, bool, error) {
			return BaselineRow{}, false, errors.New("connection reset")
		},
		locationFn: func(ctx context.Context, userID, locationKey string) (BaselineRow, bool, error) {
			return BaselineRow{SampleSize: 5, AvgDepth: fp(18)}, true, nil
		},
		recentFn: func(ctx context.Context, userID string, windowDays int) (BaselineRow, bool, error) {
			return BaselineRow{SampleSize: 3, AvgDuration: fp(40)}, true, nil
		},
	}
	fetcher := NewBaselineFetcher(repo, newTestLogger())

	bundle := fetcher.FetchBaselines(context.Background(), testQuery())

	require.Nil(t, bundle.Global)
	require.NotNil(t, bundle.Location)
	require.NotNil(t, bundle.Recent)
}

func TestFetchBaselines_AllScopesFailingYieldsEmptyBundle(t *testing.T) {
	boom := errors.New("store down")
	repo := &stubBaselineRepo{
		globalFn: func(ctx context.Context, userID string) (BaselineRow, bool, error) {
			return BaselineRow{}, false, boom
		},
		locationFn: func(ctx context.Context, userID, locationKey string) (BaselineRow, bool, error) {
			return BaselineRow{}, false, boom
		},
		recentFn: func(ctx context.Context, userID string, windowDays int) (BaselineRow, bool, error) {
			return BaselineRow{}, false, boom
		},
	}
	fetcher := NewBaselineFetcher(repo, newTestLogger())

	bundle := fetcher.FetchBaselines(context.Background(), testQuery())

	require.Equal(t, CreateEmptyBaselinesBundle(), bundle)
	require.False(t, bundle.AnyAvailable())
}

func TestFetchBaselines_RecentWindowWidens(t *testing.T) {
	var windows []int
	repo := &stubBaselineRepo{
		recentFn: func(ctx context.Context, userID string, windowDays int) (BaselineRow, bool, error) {
			windows = append(windows, windowDays)
			if windowDays == recentWindowDays {
				return BaselineRow{SampleSize: 1}, true, nil
			}
			return BaselineRow{SampleSize: 4, AvgDuration: fp(38)}, true, nil
		},
	}
	fetcher := NewBaselineFetcher(repo, newTestLogger())

	bundle := fetcher.FetchBaselines(context.Background(), BaselineQuery{UserID: "user-1", Now: time.Now().UTC()})

	require.Equal(t, []int{recentWindowDays, recentWindowWideDays}, windows)
	require.NotNil(t, bundle.Recent)
	require.Equal(t, recentWindowWideDays, bundle.Recent.WindowDays)
}

func TestFetchBaselines_RecentWindowStaysNarrowWhenSampleSuffices(t *testing.T) {
	repo := &stubBaselineRepo{
		recentFn: func(ctx context.Context, userID string, windowDays int) (BaselineRow, bool, error) {
			require.Equal(t, recentWindowDays, windowDays)
			return BaselineRow{SampleSize: 3, AvgDuration: fp(44)}, true, nil
		},
	}
	fetcher := NewBaselineFetcher(repo, newTestLogger())

	bundle := fetcher.FetchBaselines(context.Background(), BaselineQuery{UserID: "user-1", Now: time.Now().UTC()})

	require.NotNil(t, bundle.Recent)
	require.Equal(t, recentWindowDays, bundle.Recent.WindowDays)
}

func TestFetchBaselines_EmptyLocationKeySkipsLocationScope(t *testing.T) {
	locationCalled := false
	repo := &stubBaselineRepo{
		locationFn: func(ctx context.Context, userID, locationKey string) (BaselineRow, bool, error) {
			locationCalled = true
			return BaselineRow{SampleSize: 9}, true, nil
		},
	}
	fetcher := NewBaselineFetcher(repo, newTestLogger())

	bundle := fetcher.FetchBaselines(context.Background(), BaselineQuery{UserID: "user-1", Now: time.Now().UTC()})

	require.False(t, locationCalled)
	require.Nil(t, bundle.Location)
}
