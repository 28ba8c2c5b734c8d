package insight

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scope-specific minimum sample sizes. A baseline built on fewer dives is
// statistically meaningless and must not reach the narrative.
const (
	minGlobalSample   = 5
	minLocationSample = 3
	minRecentSample   = 3

	recentWindowDays     = 30
	recentWindowWideDays = 90
)

// BaselineRow is the raw aggregation result before gating.
type BaselineRow struct {
	SampleSize   int
	AvgDepth     *float64
	AvgDuration  *float64
	AvgRMV       *float64
	LastDiveDate *string
}

// BaselineRepository runs the historical aggregation queries.
type BaselineRepository interface {
	GlobalBaseline(ctx context.Context, userID string) (BaselineRow, bool, error)
	LocationBaseline(ctx context.Context, userID, locationKey string) (BaselineRow, bool, error)
	RecentBaseline(ctx context.Context, userID string, windowDays int) (BaselineRow, bool, error)
}

// BaselineQuery identifies whose history to aggregate.
type BaselineQuery struct {
	UserID      string
	LocationKey string
	Now         time.Time
}

// BaselineFetcher assembles a gated BaselinesBundle from the repository.
type BaselineFetcher struct {
	repo   BaselineRepository
	logger *slog.Logger
}

// NewBaselineFetcher constructs the adapter.
func NewBaselineFetcher(repo BaselineRepository, logger *slog.Logger) *BaselineFetcher {
	return &BaselineFetcher{repo: repo, logger: logger.With("component", "insight.baselines")}
}

// FetchBaselines issues the per-scope aggregation queries concurrently. A
// failure in one scope nulls that scope only; the worst case is an empty
// bundle. It never returns an error.
func (f *BaselineFetcher) FetchBaselines(ctx context.Context, q BaselineQuery) BaselinesBundle {
	if q.UserID == "" {
		return CreateEmptyBaselinesBundle()
	}

	var (
		wg       sync.WaitGroup
		global   *BaselineRecord
		location *BaselineRecord
		recent   *BaselineRecord
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		row, found, err := f.repo.GlobalBaseline(ctx, q.UserID)
		if err != nil {
			f.logger.Warn("global baseline query failed", "error", err)
			return
		}
		if found && row.SampleSize >= minGlobalSample {
			global = recordFromRow(row, ScopeGlobal)
		}
	}()

	if q.LocationKey != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			row, found, err := f.repo.LocationBaseline(ctx, q.UserID, q.LocationKey)
			if err != nil {
				f.logger.Warn("location baseline query failed", "locationKey", q.LocationKey, "error", err)
				return
			}
			if found && row.SampleSize >= minLocationSample {
				record := recordFromRow(row, ScopeLocation)
				record.LocationKey = q.LocationKey
				location = record
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		recent = f.fetchRecent(ctx, q.UserID)
	}()

	wg.Wait()

	bundle := BaselinesBundle{
		Global:   global,
		Location: location,
		Recent:   recent,
		Availability: BaselineAvailability{
			HasGlobalBaseline:   global != nil,
			HasLocationBaseline: location != nil,
			HasRecentBaseline:   recent != nil,
		},
	}
	return bundle
}

// fetchRecent tries the 30 day window first and widens to 90 days only when
// the narrow sample is too small.
func (f *BaselineFetcher) fetchRecent(ctx context.Context, userID string) *BaselineRecord {
	for _, window := range []int{recentWindowDays, recentWindowWideDays} {
		row, found, err := f.repo.RecentBaseline(ctx, userID, window)
		if err != nil {
			f.logger.Warn("recent baseline query failed", "windowDays", window, "error", err)
			return nil
		}
		if found && row.SampleSize >= minRecentSample {
			record := recordFromRow(row, ScopeRecent)
			record.WindowDays = window
			return record
		}
	}
	return nil
}

func recordFromRow(row BaselineRow, scope string) *BaselineRecord {
	return &BaselineRecord{
		Scope:        scope,
		SampleSize:   row.SampleSize,
		AvgDepth:     row.AvgDepth,
		AvgDuration:  row.AvgDuration,
		AvgRMV:       row.AvgRMV,
		LastDiveDate: row.LastDiveDate,
	}
}
