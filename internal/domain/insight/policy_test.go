package insight

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const wellFormedContent = `{"recap":"Dive at Sesimbra on 2025-03-02.","dive_insight":{"text":"The dive reached 30.0 m and lasted 45 minutes.","baseline_comparison":"Deeper than the overall average of 20.0 m.","evidence":["Max depth 30.0 m"]}}`

func TestParseInsightContent_PlainJSON(t *testing.T) {
	parsed, err := parseInsightContent(wellFormedContent)
	require.NoError(t, err)
	require.Equal(t, "Dive at Sesimbra on 2025-03-02.", parsed.Recap)
	require.Len(t, parsed.DiveInsight.Evidence, 1)
}

func TestParseInsightContent_StripsMarkdownFence(t *testing.T) {
	fenced := "```json\n" + wellFormedContent + "\n```"
	parsed, err := parseInsightContent(fenced)
	require.NoError(t, err)
	require.Equal(t, "Dive at Sesimbra on 2025-03-02.", parsed.Recap)
}

func TestParseInsightContent_RejectsMalformed(t *testing.T) {
	for name, content := range map[string]string{
		"not json":        "the dive was great!",
		"empty":           "   ",
		"wrong shape":     `{"summary":"nope"}`,
		"missing section": `{"recap":"r"}`,
	} {
		_, err := parseInsightContent(content)
		require.Error(t, err, "%s must fail parsing", name)
	}
}

func TestBuildFallbackInsight_NoBaselines(t *testing.T) {
	recap := "Dive at Sesimbra on 2025-03-02."
	fallback := buildFallbackInsight(recap, nil, BaselinesBundle{})

	require.Equal(t, recap, fallback.Recap)
	require.Equal(t, recap, fallback.DiveInsight.Text)
	require.Equal(t, noBaselineSentence, fallback.DiveInsight.BaselineComparison)
	require.Empty(t, fallback.DiveInsight.Evidence)
}

func TestBuildFallbackInsight_UsesSignals(t *testing.T) {
	recap := "Dive at Sesimbra on 2025-03-02."
	signals := []Signal{
		{Tag: "depth_above_global_avg", Text: "Max depth 30.0 m is above the diver's overall average of 20.0 m."},
		{Tag: "few_dives_at_location", Text: "The diver has little or no logged history at Sesimbra."},
	}
	bundle := BaselinesBundle{Availability: BaselineAvailability{HasGlobalBaseline: true}}

	fallback := buildFallbackInsight(recap, signals, bundle)

	require.Contains(t, fallback.DiveInsight.Text, signals[0].Text)
	require.Len(t, fallback.DiveInsight.Evidence, 2)
	require.NotEqual(t, noBaselineSentence, fallback.DiveInsight.BaselineComparison)
}

func TestEnforcePolicy_EmptyFieldsFallBackToRecap(t *testing.T) {
	recap := "Dive at Sesimbra on 2025-03-02."
	ctx := DiveContext{Location: "Sesimbra", Date: "2025-03-02"}

	out := enforceDiveInsightPolicy(DiveInsight{}, recap, ctx, BaselinesBundle{}, nil)

	require.Equal(t, recap, out.Recap)
	require.Equal(t, recap, out.DiveInsight.Text)
	require.Equal(t, noBaselineSentence, out.DiveInsight.BaselineComparison)
}

func TestEnforcePolicy_ContradictoryDepthIsReplaced(t *testing.T) {
	recap := "Dive at Sesimbra on 2025-03-02."
	ctx := DiveContext{Location: "Sesimbra", Date: "2025-03-02", MaxDepthMeters: fp(30)}
	in := DiveInsight{
		Recap: recap,
		DiveInsight: InsightBody{
			Text:               "An impressive dive down to 55 meters.",
			BaselineComparison: "No baselines available for comparison.",
			Evidence:           []string{"55 m"},
		},
	}

	out := enforceDiveInsightPolicy(in, recap, ctx, BaselinesBundle{}, nil)
	require.Equal(t, recap, out.DiveInsight.Text)
}

func TestEnforcePolicy_BaselineFigureIsNotAContradiction(t *testing.T) {
	recap := "Dive at Sesimbra on 2025-03-02."
	ctx := DiveContext{Location: "Sesimbra", Date: "2025-03-02", MaxDepthMeters: fp(30)}
	bundle := BaselinesBundle{
		Global:       &BaselineRecord{Scope: ScopeGlobal, SampleSize: 10, AvgDepth: fp(20)},
		Availability: BaselineAvailability{HasGlobalBaseline: true},
	}
	text := "At 30.0 m this dive went well past the usual 20.0 meters."
	in := DiveInsight{
		Recap: recap,
		DiveInsight: InsightBody{
			Text:               text,
			BaselineComparison: "Deeper than the overall average.",
			Evidence:           []string{"Max depth 30.0 m"},
		},
	}

	out := enforceDiveInsightPolicy(in, recap, ctx, bundle, nil)
	require.Equal(t, text, out.DiveInsight.Text)
}

func TestEnforcePolicy_FabricatedComparisonWithoutBaselines(t *testing.T) {
	recap := "Dive at Sesimbra on 2025-03-02."
	ctx := DiveContext{Location: "Sesimbra", Date: "2025-03-02"}
	in := DiveInsight{
		Recap: recap,
		DiveInsight: InsightBody{
			Text:               "A calm dive overall.",
			BaselineComparison: "This dive was deeper than your average dive.",
			Evidence:           []string{"calm conditions"},
		},
	}

	out := enforceDiveInsightPolicy(in, recap, ctx, BaselinesBundle{}, nil)
	require.Equal(t, noBaselineSentence, out.DiveInsight.BaselineComparison)
}

func TestEnforcePolicy_AcknowledgedAbsenceIsKept(t *testing.T) {
	recap := "Dive at Sesimbra on 2025-03-02."
	ctx := DiveContext{Location: "Sesimbra", Date: "2025-03-02"}
	comparison := "Not enough logged history for a comparison."
	in := DiveInsight{
		Recap: recap,
		DiveInsight: InsightBody{
			Text:               "A calm dive overall.",
			BaselineComparison: comparison,
			Evidence:           []string{"calm conditions"},
		},
	}

	out := enforceDiveInsightPolicy(in, recap, ctx, BaselinesBundle{}, nil)
	require.Equal(t, comparison, out.DiveInsight.BaselineComparison)
}

func TestEnforcePolicy_EmptyEvidenceFallsBackToSignals(t *testing.T) {
	recap := "Dive at Sesimbra on 2025-03-02."
	ctx := DiveContext{Location: "Sesimbra", Date: "2025-03-02"}
	signals := []Signal{{Tag: "long_surface_interval", Text: "First logged dive in 120 days."}}
	in := DiveInsight{
		Recap: recap,
		DiveInsight: InsightBody{
			Text:               "Welcome back to the water.",
			BaselineComparison: "No baselines available yet.",
			Evidence:           []string{"  ", ""},
		},
	}

	out := enforceDiveInsightPolicy(in, recap, ctx, BaselinesBundle{}, signals)
	require.Equal(t, []string{"First logged dive in 120 days."}, out.DiveInsight.Evidence)
}
