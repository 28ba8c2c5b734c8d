package diverepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seadrift/dive-insights/internal/domain/export"
	"github.com/seadrift/dive-insights/internal/domain/insight"
)

// PostgresRepository implements the row-store contracts of the insight
// pipeline and the export service using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// rmvExpr mirrors the metric engine's RMV formula so SQL baselines and
// per-request metrics stay comparable.
const rmvExpr = `(start_pressure_bar - end_pressure_bar) * tank_volume_l / NULLIF(duration_min, 0) / (1 + (max_depth_m / 2) / 10)`

const baselineSelect = `
	SELECT COUNT(*),
	       AVG(max_depth_m),
	       AVG(duration_min),
	       AVG(` + rmvExpr + `),
	       MAX(dive_date)::text
	FROM dives
`

// GlobalBaseline aggregates the user's full dive history.
func (r *PostgresRepository) GlobalBaseline(ctx context.Context, userID string) (insight.BaselineRow, bool, error) {
	row := r.pool.QueryRow(ctx, baselineSelect+`WHERE user_id = $1`, userID)
	return scanBaselineRow(row)
}

// LocationBaseline aggregates the user's history at one location key.
func (r *PostgresRepository) LocationBaseline(ctx context.Context, userID, locationKey string) (insight.BaselineRow, bool, error) {
	row := r.pool.QueryRow(ctx, baselineSelect+`WHERE user_id = $1 AND location_key = $2`, userID, locationKey)
	return scanBaselineRow(row)
}

// RecentBaseline aggregates dives inside a trailing window of days.
func (r *PostgresRepository) RecentBaseline(ctx context.Context, userID string, windowDays int) (insight.BaselineRow, bool, error) {
	row := r.pool.QueryRow(ctx, baselineSelect+`WHERE user_id = $1 AND dive_date >= CURRENT_DATE - $2::int`, userID, windowDays)
	return scanBaselineRow(row)
}

// ReadInsightPayload fetches the dive row's cached insight column. Both keys
// must match, which keeps one tenant from reading another's cache.
func (r *PostgresRepository) ReadInsightPayload(ctx context.Context, userID, diveID string) ([]byte, bool, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `
		SELECT insight_cache
		FROM dives
		WHERE id = $1 AND user_id = $2
	`, diveID, userID).Scan(&payload)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(payload) == 0 {
		return nil, false, nil
	}
	return payload, true, nil
}

// WriteInsightPayload overwrites the dive row's cached insight column.
func (r *PostgresRepository) WriteInsightPayload(ctx context.Context, userID, diveID string, payload []byte) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE dives
		SET insight_cache = $3, insight_cached_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, diveID, userID, payload)
	return err
}

// ConsumeGenerationCredit atomically consumes one credit, resetting the
// window when it has lapsed. A single upsert keeps concurrent requests from
// double-spending.
func (r *PostgresRepository) ConsumeGenerationCredit(ctx context.Context, userID string, limit int, window time.Duration) (insight.CreditDecision, error) {
	var (
		used        int
		windowStart time.Time
	)
	err := r.pool.QueryRow(ctx, `
		INSERT INTO generation_credits (user_id, used, window_start)
		VALUES ($1, 1, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			used = CASE
				WHEN generation_credits.window_start <= NOW() - make_interval(secs => $2)
				THEN 1
				ELSE generation_credits.used + 1
			END,
			window_start = CASE
				WHEN generation_credits.window_start <= NOW() - make_interval(secs => $2)
				THEN NOW()
				ELSE generation_credits.window_start
			END
		RETURNING used, window_start
	`, userID, window.Seconds()).Scan(&used, &windowStart)
	if err != nil {
		return insight.CreditDecision{}, err
	}

	resetAt := windowStart.Add(window)
	decision := insight.CreditDecision{
		Allowed:   used <= limit,
		Remaining: limit - used,
		ResetAt:   &resetAt,
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	return decision, nil
}

// ListDives returns the user's dives newest first for CSV export.
func (r *PostgresRepository) ListDives(ctx context.Context, userID string) ([]export.DiveRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, dive_date::text, location, country, max_depth_m, duration_min, water_temp_c, gas_mix, photo_keys
		FROM dives
		WHERE user_id = $1
		ORDER BY dive_date DESC, id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []export.DiveRecord
	for rows.Next() {
		var (
			record    export.DiveRecord
			country   sql.NullString
			depth     sql.NullFloat64
			duration  sql.NullFloat64
			waterTemp sql.NullFloat64
			gasMix    sql.NullString
			photoKeys []string
		)
		if err := rows.Scan(&record.ID, &record.Date, &record.Location, &country, &depth, &duration, &waterTemp, &gasMix, &photoKeys); err != nil {
			return nil, err
		}
		record.Country = country.String
		record.GasMix = gasMix.String
		record.PhotoKeys = photoKeys
		if depth.Valid {
			record.MaxDepthM = &depth.Float64
		}
		if duration.Valid {
			record.DurationMin = &duration.Float64
		}
		if waterTemp.Valid {
			record.WaterTempC = &waterTemp.Float64
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBaselineRow(row rowScanner) (insight.BaselineRow, bool, error) {
	var (
		count    int64
		depth    sql.NullFloat64
		duration sql.NullFloat64
		rmv      sql.NullFloat64
		lastDive sql.NullString
	)
	if err := row.Scan(&count, &depth, &duration, &rmv, &lastDive); err != nil {
		if isNoRows(err) {
			return insight.BaselineRow{}, false, nil
		}
		return insight.BaselineRow{}, false, err
	}
	if count == 0 {
		return insight.BaselineRow{}, false, nil
	}

	out := insight.BaselineRow{SampleSize: int(count)}
	if depth.Valid {
		out.AvgDepth = &depth.Float64
	}
	if duration.Valid {
		out.AvgDuration = &duration.Float64
	}
	if rmv.Valid {
		out.AvgRMV = &rmv.Float64
	}
	if lastDive.Valid && lastDive.String != "" {
		out.LastDiveDate = &lastDive.String
	}
	return out, true, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

var (
	_ insight.BaselineRepository = (*PostgresRepository)(nil)
	_ insight.CacheRepository    = (*PostgresRepository)(nil)
	_ insight.CreditRepository   = (*PostgresRepository)(nil)
	_ export.Repository          = (*PostgresRepository)(nil)
)
