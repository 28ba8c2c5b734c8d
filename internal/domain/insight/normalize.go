package insight

import (
	"errors"
	"math"
	"strings"
	"time"
	"unicode"
)

const maxLocationKeyLen = 80

// NormalizeDiveContext converts a raw payload into the immutable pipeline
// input. Location and date are the only required fields; everything else is
// sanitized and kept optional.
func NormalizeDiveContext(p DivePayload) (DiveContext, error) {
	location := strings.TrimSpace(p.Location)
	if location == "" {
		return DiveContext{}, errors.New("dive location is required")
	}
	date := strings.TrimSpace(p.Date)
	if date == "" {
		return DiveContext{}, errors.New("dive date is required")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return DiveContext{}, errors.New("dive date must be formatted as YYYY-MM-DD")
	}

	return DiveContext{
		ID:               strings.TrimSpace(p.ID),
		Location:         location,
		Country:          strings.TrimSpace(p.Country),
		Date:             date,
		MaxDepthMeters:   positiveOrNil(p.MaxDepthMeters),
		DurationMinutes:  positiveOrNil(p.DurationMinutes),
		WaterTempC:       finiteOrNil(p.WaterTempC),
		StartPressureBar: positiveOrNil(p.StartPressureBar),
		EndPressureBar:   nonNegativeOrNil(p.EndPressureBar),
		TankVolumeL:      positiveOrNil(p.TankVolumeL),
		GasMix:           strings.ToUpper(strings.TrimSpace(p.GasMix)),
	}, nil
}

// NormalizeDiverProfile tolerates a nil payload and cleans up each field.
func NormalizeDiverProfile(p *DiverProfilePayload) DiverProfile {
	if p == nil {
		return DiverProfile{}
	}
	profile := DiverProfile{
		CertificationLevel: strings.TrimSpace(p.CertificationLevel),
		YearsDiving:        nonNegativeOrNil(p.YearsDiving),
	}
	if p.TotalDives != nil && *p.TotalDives >= 0 {
		count := *p.TotalDives
		profile.TotalDives = &count
	}
	return profile
}

// DeriveLocationKey prefers an explicit location identifier and otherwise
// reduces a free-text location name to a stable lookup key. An empty result
// means location-scoped baselines are skipped.
func DeriveLocationKey(locationID, locationName string) string {
	if id := strings.TrimSpace(locationID); id != "" {
		return id
	}
	key := normalizeLocationName(locationName)
	if len(key) > maxLocationKeyLen {
		key = strings.TrimSpace(key[:maxLocationKeyLen])
	}
	return key
}

func normalizeLocationName(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	var builder strings.Builder
	builder.Grow(len(lowered))
	lastSpace := true
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
			lastSpace = false
			continue
		}
		// punctuation and whitespace both collapse to a single space
		if !lastSpace {
			builder.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}

func positiveOrNil(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
		return nil
	}
	val := *v
	return &val
}

func nonNegativeOrNil(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return nil
	}
	val := *v
	return &val
}

func finiteOrNil(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	val := *v
	return &val
}
