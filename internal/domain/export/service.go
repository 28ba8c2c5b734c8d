package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	apperrors "github.com/seadrift/dive-insights/pkg/errors"
)

// DiveRecord is one exportable dive row.
type DiveRecord struct {
	ID          string
	Date        string
	Location    string
	Country     string
	MaxDepthM   *float64
	DurationMin *float64
	WaterTempC  *float64
	GasMix      string
	PhotoKeys   []string
}

// Repository lists a user's dives.
type Repository interface {
	ListDives(ctx context.Context, userID string) ([]DiveRecord, error)
}

// PhotoSigner resolves a stored photo key to a downloadable URL.
type PhotoSigner interface {
	SignedURL(ctx context.Context, key string) (string, error)
}

// Service renders a user's dive log as CSV.
type Service interface {
	ExportCSV(ctx context.Context, userID string) ([]byte, string, error)
}

type service struct {
	repo   Repository
	photos PhotoSigner
	logger *slog.Logger
}

// NewService wires up the export domain. photos may be nil, in which case raw
// object keys are emitted.
func NewService(repo Repository, photos PhotoSigner, logger *slog.Logger) Service {
	return &service{repo: repo, photos: photos, logger: logger.With("component", "export.service")}
}

var csvHeader = []string{"date", "location", "country", "max_depth_m", "duration_min", "water_temp_c", "gas_mix", "photos"}

func (s *service) ExportCSV(ctx context.Context, userID string) ([]byte, string, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, "", apperrors.Wrap("invalid_input", "user id is required", nil)
	}

	dives, err := s.repo.ListDives(ctx, userID)
	if err != nil {
		return nil, "", apperrors.Wrap("store_error", "failed to list dives", err)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(csvHeader); err != nil {
		return nil, "", apperrors.Wrap("export_error", "failed to write csv header", err)
	}
	for _, dive := range dives {
		record := []string{
			dive.Date,
			dive.Location,
			dive.Country,
			formatFloat(dive.MaxDepthM),
			formatFloat(dive.DurationMin),
			formatFloat(dive.WaterTempC),
			dive.GasMix,
			s.photoColumn(ctx, dive.PhotoKeys),
		}
		if err := writer.Write(record); err != nil {
			return nil, "", apperrors.Wrap("export_error", "failed to write csv row", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", apperrors.Wrap("export_error", "failed to flush csv", err)
	}

	filename := fmt.Sprintf("dives-%s.csv", userID)
	return buf.Bytes(), filename, nil
}

// photoColumn joins resolvable photo URLs with a semicolon. A signing failure
// falls back to the raw key so the export still completes.
func (s *service) photoColumn(ctx context.Context, keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		if s.photos == nil {
			urls = append(urls, key)
			continue
		}
		url, err := s.photos.SignedURL(ctx, key)
		if err != nil {
			s.logger.Warn("photo url signing failed", "key", key, "error", err)
			urls = append(urls, key)
			continue
		}
		urls = append(urls, url)
	}
	return strings.Join(urls, ";")
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
