package diverepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/seadrift/dive-insights/internal/domain/export"
	"github.com/seadrift/dive-insights/internal/domain/insight"
)

// Dive is the in-memory dive row used by the fallback repository.
type Dive struct {
	ID               string
	UserID           string
	LocationKey      string
	Location         string
	Country          string
	Date             string
	MaxDepthM        *float64
	DurationMin      *float64
	WaterTempC       *float64
	StartPressureBar *float64
	EndPressureBar   *float64
	TankVolumeL      *float64
	GasMix           string
	PhotoKeys        []string
	InsightCache     []byte
}

type creditState struct {
	used        int
	windowStart time.Time
}

// MemoryRepository keeps everything in process. It backs local development
// when no Postgres DSN is configured, and the test suite.
type MemoryRepository struct {
	mu      sync.RWMutex
	dives   map[string]*Dive
	credits map[string]*creditState
	now     func() time.Time
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		dives:   make(map[string]*Dive),
		credits: make(map[string]*creditState),
		now:     time.Now,
	}
}

// AddDive seeds a dive row.
func (r *MemoryRepository) AddDive(dive Dive) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := dive
	r.dives[dive.ID] = &copied
}

func (r *MemoryRepository) GlobalBaseline(ctx context.Context, userID string) (insight.BaselineRow, bool, error) {
	return r.aggregate(userID, func(d *Dive) bool { return true })
}

func (r *MemoryRepository) LocationBaseline(ctx context.Context, userID, locationKey string) (insight.BaselineRow, bool, error) {
	return r.aggregate(userID, func(d *Dive) bool { return d.LocationKey == locationKey })
}

func (r *MemoryRepository) RecentBaseline(ctx context.Context, userID string, windowDays int) (insight.BaselineRow, bool, error) {
	cutoff := r.now().UTC().AddDate(0, 0, -windowDays).Format("2006-01-02")
	return r.aggregate(userID, func(d *Dive) bool { return d.Date >= cutoff })
}

func (r *MemoryRepository) aggregate(userID string, keep func(*Dive) bool) (insight.BaselineRow, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		count                  int
		depthSum, depthN       float64
		durationSum, durationN float64
		rmvSum, rmvN           float64
		lastDive               string
	)
	for _, dive := range r.dives {
		if dive.UserID != userID || !keep(dive) {
			continue
		}
		count++
		if dive.MaxDepthM != nil {
			depthSum += *dive.MaxDepthM
			depthN++
		}
		if dive.DurationMin != nil {
			durationSum += *dive.DurationMin
			durationN++
		}
		if rmv, ok := diveRMV(dive); ok {
			rmvSum += rmv
			rmvN++
		}
		if dive.Date > lastDive {
			lastDive = dive.Date
		}
	}
	if count == 0 {
		return insight.BaselineRow{}, false, nil
	}

	row := insight.BaselineRow{SampleSize: count}
	if depthN > 0 {
		avg := depthSum / depthN
		row.AvgDepth = &avg
	}
	if durationN > 0 {
		avg := durationSum / durationN
		row.AvgDuration = &avg
	}
	if rmvN > 0 {
		avg := rmvSum / rmvN
		row.AvgRMV = &avg
	}
	if lastDive != "" {
		row.LastDiveDate = &lastDive
	}
	return row, true, nil
}

func diveRMV(d *Dive) (float64, bool) {
	if d.StartPressureBar == nil || d.EndPressureBar == nil || d.TankVolumeL == nil || d.DurationMin == nil || d.MaxDepthM == nil {
		return 0, false
	}
	used := *d.StartPressureBar - *d.EndPressureBar
	if used <= 0 || *d.DurationMin <= 0 {
		return 0, false
	}
	avgATA := 1 + (*d.MaxDepthM/2)/10
	return used * *d.TankVolumeL / *d.DurationMin / avgATA, true
}

func (r *MemoryRepository) ReadInsightPayload(ctx context.Context, userID, diveID string) ([]byte, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dive, ok := r.dives[diveID]
	if !ok || dive.UserID != userID || len(dive.InsightCache) == 0 {
		return nil, false, nil
	}
	payload := make([]byte, len(dive.InsightCache))
	copy(payload, dive.InsightCache)
	return payload, true, nil
}

func (r *MemoryRepository) WriteInsightPayload(ctx context.Context, userID, diveID string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dive, ok := r.dives[diveID]
	if !ok || dive.UserID != userID {
		// Mirrors the SQL UPDATE matching zero rows: not an error.
		return nil
	}
	dive.InsightCache = make([]byte, len(payload))
	copy(dive.InsightCache, payload)
	return nil
}

func (r *MemoryRepository) ConsumeGenerationCredit(ctx context.Context, userID string, limit int, window time.Duration) (insight.CreditDecision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	state, ok := r.credits[userID]
	if !ok || now.Sub(state.windowStart) >= window {
		state = &creditState{windowStart: now}
		r.credits[userID] = state
	}
	state.used++

	resetAt := state.windowStart.Add(window)
	decision := insight.CreditDecision{
		Allowed:   state.used <= limit,
		Remaining: limit - state.used,
		ResetAt:   &resetAt,
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	return decision, nil
}

func (r *MemoryRepository) ListDives(ctx context.Context, userID string) ([]export.DiveRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []export.DiveRecord
	for _, dive := range r.dives {
		if dive.UserID != userID {
			continue
		}
		records = append(records, export.DiveRecord{
			ID:          dive.ID,
			Date:        dive.Date,
			Location:    dive.Location,
			Country:     dive.Country,
			MaxDepthM:   dive.MaxDepthM,
			DurationMin: dive.DurationMin,
			WaterTempC:  dive.WaterTempC,
			GasMix:      dive.GasMix,
			PhotoKeys:   dive.PhotoKeys,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date > records[j].Date
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

var (
	_ insight.BaselineRepository = (*MemoryRepository)(nil)
	_ insight.CacheRepository    = (*MemoryRepository)(nil)
	_ insight.CreditRepository   = (*MemoryRepository)(nil)
	_ export.Repository          = (*MemoryRepository)(nil)
)
