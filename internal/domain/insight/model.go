package insight

import (
	"time"

	"github.com/seadrift/dive-insights/pkg/metrics"
)

// DivePayload is the raw dive record submitted by the client. Every numeric
// field is optional; absence means unknown, never zero.
type DivePayload struct {
	ID               string   `json:"id,omitempty"`
	LocationID       string   `json:"location_id,omitempty"`
	Location         string   `json:"location"`
	Country          string   `json:"country,omitempty"`
	Date             string   `json:"date"`
	MaxDepthMeters   *float64 `json:"max_depth_meters,omitempty"`
	DurationMinutes  *float64 `json:"duration_minutes,omitempty"`
	WaterTempC       *float64 `json:"water_temp_c,omitempty"`
	StartPressureBar *float64 `json:"start_pressure_bar,omitempty"`
	EndPressureBar   *float64 `json:"end_pressure_bar,omitempty"`
	TankVolumeL      *float64 `json:"tank_volume_l,omitempty"`
	GasMix           string   `json:"gas_mix,omitempty"`
}

// DiverProfilePayload carries optional context about the diver.
type DiverProfilePayload struct {
	CertificationLevel string   `json:"certification_level,omitempty"`
	TotalDives         *int     `json:"total_dives,omitempty"`
	YearsDiving        *float64 `json:"years_diving,omitempty"`
}

// DiveContext is the normalized, immutable pipeline input derived from a
// DivePayload. Location and Date are always present after normalization.
type DiveContext struct {
	ID               string   `json:"id,omitempty"`
	Location         string   `json:"location"`
	Country          string   `json:"country,omitempty"`
	Date             string   `json:"date"`
	MaxDepthMeters   *float64 `json:"maxDepthMeters"`
	DurationMinutes  *float64 `json:"durationMinutes"`
	WaterTempC       *float64 `json:"waterTempC"`
	StartPressureBar *float64 `json:"startPressureBar"`
	EndPressureBar   *float64 `json:"endPressureBar"`
	TankVolumeL      *float64 `json:"tankVolumeL"`
	GasMix           string   `json:"gasMix,omitempty"`
}

// DiverProfile is the normalized form of DiverProfilePayload.
type DiverProfile struct {
	CertificationLevel string   `json:"certificationLevel,omitempty"`
	TotalDives         *int     `json:"totalDives"`
	YearsDiving        *float64 `json:"yearsDiving"`
}

// Baseline scopes.
const (
	ScopeGlobal   = "global"
	ScopeLocation = "location"
	ScopeRecent   = "recent"
)

// BaselineRecord is a historical aggregate over a qualifying sample of dives.
type BaselineRecord struct {
	Scope        string   `json:"scope"`
	SampleSize   int      `json:"sampleSize"`
	AvgDepth     *float64 `json:"avgDepth"`
	AvgDuration  *float64 `json:"avgDuration"`
	AvgRMV       *float64 `json:"avgRMV"`
	LastDiveDate *string  `json:"lastDiveDate"`
	LocationKey  string   `json:"locationKey,omitempty"`
	WindowDays   int      `json:"windowDays,omitempty"`
}

// BaselineAvailability records which scopes passed the sample-size gate.
type BaselineAvailability struct {
	HasGlobalBaseline   bool `json:"hasGlobalBaseline"`
	HasLocationBaseline bool `json:"hasLocationBaseline"`
	HasRecentBaseline   bool `json:"hasRecentBaseline"`
}

// BaselinesBundle groups the per-scope baselines for one request. A scope is
// non-nil only when its sample size met the scope minimum.
type BaselinesBundle struct {
	Global       *BaselineRecord      `json:"global"`
	Location     *BaselineRecord      `json:"location"`
	Recent       *BaselineRecord      `json:"recent"`
	Availability BaselineAvailability `json:"availability"`
}

// AnyAvailable reports whether at least one scope survived gating.
func (b BaselinesBundle) AnyAvailable() bool {
	return b.Availability.HasGlobalBaseline || b.Availability.HasLocationBaseline || b.Availability.HasRecentBaseline
}

// CreateEmptyBaselinesBundle is the worst-case fetch result: all scopes null.
func CreateEmptyBaselinesBundle() BaselinesBundle {
	return BaselinesBundle{}
}

// DiveMetrics holds derived physiological figures. Nil means the inputs
// required to compute the figure were absent.
type DiveMetrics struct {
	PressureATA       *float64 `json:"pressureATA"`
	GasUsedBar        *float64 `json:"gasUsedBar"`
	RMVLitersPerMin   *float64 `json:"rmvLitersPerMin"`
	IntensityScore    *float64 `json:"intensityScore"`
	DaysSinceLastDive *int     `json:"daysSinceLastDive"`
}

// Signal is a short qualitative observation derived from metrics and baselines.
type Signal struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

// InsightBody is the analysis section of a DiveInsight.
type InsightBody struct {
	Text               string   `json:"text"`
	BaselineComparison string   `json:"baseline_comparison"`
	Evidence           []string `json:"evidence"`
}

// DiveInsight is the structured narrative payload. Every field must be present
// and correctly typed for the payload to be considered valid.
type DiveInsight struct {
	Recap       string      `json:"recap"`
	DiveInsight InsightBody `json:"dive_insight"`
}

// StoredDiveInsight is the cache record persisted into the dive row.
type StoredDiveInsight struct {
	PromptVersion string          `json:"promptVersion"`
	Model         string          `json:"model"`
	InputHash     string          `json:"inputHash"`
	GeneratedAt   string          `json:"generatedAt"`
	Insight       DiveInsight     `json:"insight"`
	Metrics       DiveMetrics     `json:"metrics"`
	Signals       []Signal        `json:"signals"`
	Baselines     BaselinesBundle `json:"baselines"`
}

// Config tunes the insight pipeline.
type Config struct {
	Model          string
	Temperature    float32
	MaxTokens      int
	Seed           int
	RequestTimeout time.Duration
	CacheTTL       time.Duration
	CreditLimit    int
	CreditWindow   time.Duration
}

// GenerateRequest is the orchestrator input. UserID is a verified identity,
// established upstream.
type GenerateRequest struct {
	UserID     string
	Dive       DivePayload
	Profile    *DiverProfilePayload
	Regenerate bool
}

// Meta describes how the returned insight was produced.
type Meta struct {
	Cached        bool   `json:"cached"`
	Model         string `json:"model"`
	PromptVersion string `json:"promptVersion"`
	GeneratedAt   string `json:"generatedAt"`
}

// GenerateResponse is returned to the HTTP transport.
type GenerateResponse struct {
	Summary    string              `json:"summary"`
	Insight    DiveInsight         `json:"insight"`
	Meta       Meta                `json:"meta"`
	TokenUsage *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}
