package insight

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// PromptVersion participates in the input hash: bumping it invalidates every
// cached insight generated under the old instructions.
const PromptVersion = "v3"

const systemPrompt = `You are a dive log assistant that writes short, factual insight summaries for recreational scuba dives.
Respond with strict JSON only, matching exactly this shape:
{"recap": string, "dive_insight": {"text": string, "baseline_comparison": string, "evidence": [string]}}
Rules:
- recap: one factual sentence restating location, date and, when known, depth and duration.
- text: two to four sentences of analysis grounded only in the provided data.
- baseline_comparison: compare this dive against the provided baselines. When a baseline is marked unavailable you must say so plainly instead of inventing a comparison.
- evidence: short strings, each citing a concrete number or signal from the input.
- Never invent numbers, locations or history that are not in the input.`

// PromptInput bundles everything the prompt serializes.
type PromptInput struct {
	Context   DiveContext     `json:"dive"`
	Profile   DiverProfile    `json:"diver_profile"`
	Metrics   DiveMetrics     `json:"metrics"`
	Signals   []Signal        `json:"signals"`
	Baselines BaselinesBundle `json:"baselines"`
}

// BuildDiveInsightPrompt assembles the system and user messages for the text
// backend. Pure; the same input always yields the same prompt.
func BuildDiveInsightPrompt(in PromptInput) (string, string) {
	payload, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		// Marshalling these value types cannot fail in practice; keep the
		// builder total regardless.
		payload = []byte("{}")
	}

	var builder strings.Builder
	builder.WriteString("Structured dive data:\n")
	builder.Write(payload)
	builder.WriteString("\n\nBaseline availability: ")
	builder.WriteString(describeAvailability(in.Baselines.Availability))
	builder.WriteString("\nAll numeric fields that are null were not recorded; treat them as unknown, never as zero.")
	builder.WriteString("\nReturn the JSON object now.")
	return systemPrompt, builder.String()
}

func describeAvailability(a BaselineAvailability) string {
	parts := []string{
		fmt.Sprintf("global=%s", availabilityWord(a.HasGlobalBaseline)),
		fmt.Sprintf("location=%s", availabilityWord(a.HasLocationBaseline)),
		fmt.Sprintf("recent=%s", availabilityWord(a.HasRecentBaseline)),
	}
	return strings.Join(parts, ", ")
}

func availabilityWord(available bool) string {
	if available {
		return "available"
	}
	return "unavailable"
}

// EstimatePromptTokens approximates the token cost of the assembled prompt.
// Used for logging and usage reporting only, so a rough fallback is fine.
func EstimatePromptTokens(model, system, user string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return (len(system) + len(user)) / 4
		}
	}
	return len(enc.Encode(system, nil, nil)) + len(enc.Encode(user, nil, nil))
}
