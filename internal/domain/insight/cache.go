package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ParsedStoredInsight is the result of structurally validating a raw cache
// payload. HadBaselines distinguishes genuine records from legacy ones that
// predate the baselines field; legacy records parse but never count as hits.
type ParsedStoredInsight struct {
	Stored       StoredDiveInsight
	HadBaselines bool
}

// ParseStoredDiveInsight validates a raw cache payload. It returns false for
// anything missing a required field or carrying an insight of the wrong
// shape; there is no partial acceptance.
func ParseStoredDiveInsight(raw []byte) (ParsedStoredInsight, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ParsedStoredInsight{}, false
	}

	var out ParsedStoredInsight
	for _, required := range []struct {
		key  string
		dest *string
	}{
		{"promptVersion", &out.Stored.PromptVersion},
		{"model", &out.Stored.Model},
		{"inputHash", &out.Stored.InputHash},
		{"generatedAt", &out.Stored.GeneratedAt},
	} {
		value, ok := decodeNonEmptyString(fields[required.key])
		if !ok {
			return ParsedStoredInsight{}, false
		}
		*required.dest = value
	}

	insightRaw, ok := fields["insight"]
	if !ok {
		return ParsedStoredInsight{}, false
	}
	parsedInsight, ok := decodeInsightShape(insightRaw)
	if !ok {
		return ParsedStoredInsight{}, false
	}
	out.Stored.Insight = parsedInsight

	if metricsRaw, found := fields["metrics"]; found {
		if err := json.Unmarshal(metricsRaw, &out.Stored.Metrics); err != nil {
			return ParsedStoredInsight{}, false
		}
	}
	if signalsRaw, found := fields["signals"]; found {
		if err := json.Unmarshal(signalsRaw, &out.Stored.Signals); err != nil {
			return ParsedStoredInsight{}, false
		}
	}

	if baselinesRaw, found := fields["baselines"]; found {
		if err := json.Unmarshal(baselinesRaw, &out.Stored.Baselines); err != nil {
			return ParsedStoredInsight{}, false
		}
		out.HadBaselines = true
	} else {
		// Legacy record: accept structurally, assign an empty bundle, but the
		// missing key keeps it from ever matching as a cache hit.
		out.Stored.Baselines = CreateEmptyBaselinesBundle()
	}

	return out, true
}

func decodeNonEmptyString(raw json.RawMessage) (string, bool) {
	if raw == nil {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	if strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

// decodeInsightShape enforces the exact DiveInsight shape: every field must
// be present and correctly typed.
func decodeInsightShape(raw json.RawMessage) (DiveInsight, bool) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return DiveInsight{}, false
	}
	recapRaw, ok := top["recap"]
	if !ok {
		return DiveInsight{}, false
	}
	var recap string
	if err := json.Unmarshal(recapRaw, &recap); err != nil {
		return DiveInsight{}, false
	}

	bodyRaw, ok := top["dive_insight"]
	if !ok {
		return DiveInsight{}, false
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(bodyRaw, &body); err != nil {
		return DiveInsight{}, false
	}

	textRaw, ok := body["text"]
	if !ok {
		return DiveInsight{}, false
	}
	var text string
	if err := json.Unmarshal(textRaw, &text); err != nil {
		return DiveInsight{}, false
	}

	comparisonRaw, ok := body["baseline_comparison"]
	if !ok {
		return DiveInsight{}, false
	}
	var comparison string
	if err := json.Unmarshal(comparisonRaw, &comparison); err != nil {
		return DiveInsight{}, false
	}

	evidenceRaw, ok := body["evidence"]
	if !ok {
		return DiveInsight{}, false
	}
	var evidence []string
	if err := json.Unmarshal(evidenceRaw, &evidence); err != nil {
		return DiveInsight{}, false
	}
	if evidence == nil {
		evidence = []string{}
	}

	return DiveInsight{
		Recap: recap,
		DiveInsight: InsightBody{
			Text:               text,
			BaselineComparison: comparison,
			Evidence:           evidence,
		},
	}, true
}

// CacheRepository reads and writes the dive row's insight-cache column. Both
// keys must match, which enforces tenant isolation at the query level.
type CacheRepository interface {
	ReadInsightPayload(ctx context.Context, userID, diveID string) ([]byte, bool, error)
	WriteInsightPayload(ctx context.Context, userID, diveID string, payload []byte) error
}

// KVStore is an optional read-through layer in front of the row-store.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// InsightCache reads and writes StoredDiveInsight records. Every failure is
// logged and degrades to a miss; a cache problem must never fail a request.
type InsightCache struct {
	repo   CacheRepository
	kv     KVStore
	ttl    time.Duration
	logger *slog.Logger
}

// NewInsightCache constructs the cache layer. kv may be nil.
func NewInsightCache(repo CacheRepository, kv KVStore, ttl time.Duration, logger *slog.Logger) *InsightCache {
	return &InsightCache{repo: repo, kv: kv, ttl: ttl, logger: logger.With("component", "insight.cache")}
}

// Read returns the stored insight for the dive when its inputHash matches the
// freshly computed one. Anything else is a miss.
func (c *InsightCache) Read(ctx context.Context, userID, diveID, inputHash string) (StoredDiveInsight, bool) {
	if diveID == "" {
		return StoredDiveInsight{}, false
	}

	if c.kv != nil {
		payload, found, err := c.kv.Get(ctx, c.cacheKey(userID, diveID))
		if err != nil {
			c.logger.Warn("valkey read failed", "diveId", diveID, "error", err)
		} else if found {
			if stored, ok := c.validate(payload, inputHash); ok {
				return stored, true
			}
		}
	}

	payload, found, err := c.repo.ReadInsightPayload(ctx, userID, diveID)
	if err != nil {
		c.logger.Warn("insight cache read failed", "diveId", diveID, "error", err)
		return StoredDiveInsight{}, false
	}
	if !found || len(payload) == 0 {
		return StoredDiveInsight{}, false
	}

	stored, ok := c.validate(payload, inputHash)
	if !ok {
		return StoredDiveInsight{}, false
	}
	if c.kv != nil {
		if err := c.kv.Set(ctx, c.cacheKey(userID, diveID), payload, c.ttl); err != nil {
			c.logger.Warn("valkey backfill failed", "diveId", diveID, "error", err)
		}
	}
	return stored, true
}

func (c *InsightCache) validate(payload []byte, inputHash string) (StoredDiveInsight, bool) {
	parsed, ok := ParseStoredDiveInsight(payload)
	if !ok {
		c.logger.Warn("stored insight payload malformed, treating as miss")
		return StoredDiveInsight{}, false
	}
	if !parsed.HadBaselines {
		// Legacy entry without a baselines field: structurally fine, but it
		// must not be served as a hit.
		return StoredDiveInsight{}, false
	}
	if parsed.Stored.InputHash != inputHash {
		return StoredDiveInsight{}, false
	}
	return parsed.Stored, true
}

// Write persists the stored insight best-effort. Failures are logged and
// swallowed: the caller already holds a generated insight.
func (c *InsightCache) Write(ctx context.Context, userID, diveID string, stored StoredDiveInsight) {
	if diveID == "" {
		return
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		c.logger.Warn("encode stored insight failed", "diveId", diveID, "error", err)
		return
	}
	if err := c.repo.WriteInsightPayload(ctx, userID, diveID, payload); err != nil {
		c.logger.Warn("insight cache write failed", "diveId", diveID, "error", err)
	}
	if c.kv != nil {
		if err := c.kv.Set(ctx, c.cacheKey(userID, diveID), payload, c.ttl); err != nil {
			c.logger.Warn("valkey write failed", "diveId", diveID, "error", err)
		}
	}
}

func (c *InsightCache) cacheKey(userID, diveID string) string {
	return fmt.Sprintf("insight:%s:%s", userID, diveID)
}
