package insight

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const noBaselineSentence = "Not enough logged dives yet to compare this dive against personal baselines."

// parseInsightContent decodes the text backend's reply into a DiveInsight,
// tolerating markdown fences but nothing else: the shape must match exactly.
func parseInsightContent(raw string) (DiveInsight, error) {
	sanitized := strings.TrimSpace(raw)
	sanitized = strings.TrimPrefix(sanitized, "```json")
	sanitized = strings.TrimSuffix(sanitized, "```")
	sanitized = strings.Trim(sanitized, "`")
	sanitized = strings.TrimSpace(strings.TrimPrefix(sanitized, "json"))
	if sanitized == "" {
		return DiveInsight{}, errors.New("empty insight content")
	}
	parsed, ok := decodeInsightShape([]byte(sanitized))
	if !ok {
		return DiveInsight{}, errors.New("insight content does not match the expected shape")
	}
	return parsed, nil
}

// buildFallbackInsight assembles a guaranteed-safe insight from the
// deterministic recap and the locally derived signals.
func buildFallbackInsight(recap string, signals []Signal, baselines BaselinesBundle) DiveInsight {
	text := recap
	evidence := make([]string, 0, len(signals))
	for _, signal := range signals {
		evidence = append(evidence, signal.Text)
	}
	if len(signals) > 0 {
		text += " " + signals[0].Text
	}

	comparison := noBaselineSentence
	if baselines.AnyAvailable() {
		comparison = "This dive was compared against the diver's available baselines; see the evidence for specifics."
	}

	return DiveInsight{
		Recap: recap,
		DiveInsight: InsightBody{
			Text:               text,
			BaselineComparison: comparison,
			Evidence:           evidence,
		},
	}
}

// enforceDiveInsightPolicy is the backstop between the generative backend and
// the caller. The returned insight is never empty, never fabricates a
// baseline comparison, and never contradicts the deterministic recap's
// factual claims; any field that fails falls back to recap-derived text.
func enforceDiveInsightPolicy(in DiveInsight, recap string, ctx DiveContext, baselines BaselinesBundle, signals []Signal) DiveInsight {
	out := in

	if strings.TrimSpace(out.Recap) == "" {
		out.Recap = recap
	}
	if strings.TrimSpace(out.DiveInsight.Text) == "" || contradictsContext(out.DiveInsight.Text, ctx, baselines) {
		out.DiveInsight.Text = recap
	}

	comparison := strings.TrimSpace(out.DiveInsight.BaselineComparison)
	if !baselines.AnyAvailable() {
		if comparison == "" || !acknowledgesMissingBaselines(comparison) {
			out.DiveInsight.BaselineComparison = noBaselineSentence
		}
	} else if comparison == "" {
		out.DiveInsight.BaselineComparison = "See the evidence entries for how this dive compares to the diver's history."
	}

	evidence := make([]string, 0, len(out.DiveInsight.Evidence))
	for _, item := range out.DiveInsight.Evidence {
		if clean := strings.TrimSpace(item); clean != "" {
			evidence = append(evidence, clean)
		}
	}
	if len(evidence) == 0 {
		for _, signal := range signals {
			evidence = append(evidence, signal.Text)
		}
	}
	out.DiveInsight.Evidence = evidence

	return out
}

var (
	depthMentionPattern    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:m\b|meters?\b|metres?\b)`)
	durationMentionPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:min\b|minutes?\b)`)
)

// contradictsContext flags generated text whose depth or duration claims match
// neither the dive itself nor any baseline average. Mentioning a baseline
// figure is legitimate; inventing a third number is not.
func contradictsContext(text string, ctx DiveContext, baselines BaselinesBundle) bool {
	lowered := strings.ToLower(text)

	if ctx.MaxDepthMeters != nil {
		accepted := acceptedValues(*ctx.MaxDepthMeters, baselines, func(r *BaselineRecord) *float64 { return r.AvgDepth })
		if mentionsOnlyForeignValues(depthMentionPattern, lowered, accepted) {
			return true
		}
	}
	if ctx.DurationMinutes != nil {
		accepted := acceptedValues(*ctx.DurationMinutes, baselines, func(r *BaselineRecord) *float64 { return r.AvgDuration })
		if mentionsOnlyForeignValues(durationMentionPattern, lowered, accepted) {
			return true
		}
	}
	return false
}

func acceptedValues(actual float64, baselines BaselinesBundle, pick func(*BaselineRecord) *float64) []float64 {
	accepted := []float64{actual}
	for _, record := range []*BaselineRecord{baselines.Global, baselines.Location, baselines.Recent} {
		if record == nil {
			continue
		}
		if v := pick(record); v != nil {
			accepted = append(accepted, *v)
		}
	}
	return accepted
}

func mentionsOnlyForeignValues(pattern *regexp.Regexp, text string, accepted []float64) bool {
	matches := pattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return false
	}
	for _, match := range matches {
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		for _, ok := range accepted {
			if math.Abs(value-ok) <= 1.0 {
				return false
			}
		}
	}
	return true
}

func acknowledgesMissingBaselines(comparison string) bool {
	lowered := strings.ToLower(comparison)
	for _, marker := range []string{"no baseline", "not enough", "no personal", "insufficient", "too few", "not available", "unavailable", "no prior", "no logged"} {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
