package insight

import (
	"fmt"
	"strings"
)

// BuildDeterministicRecap produces the templated, guaranteed-safe one
// paragraph recap. It depends only on the normalized context and is the
// fallback whenever the text backend fails or misbehaves.
func BuildDeterministicRecap(ctx DiveContext) string {
	place := ctx.Location
	if ctx.Country != "" {
		place = fmt.Sprintf("%s, %s", ctx.Location, ctx.Country)
	}
	recap := fmt.Sprintf("Dive at %s on %s.", place, ctx.Date)

	var profile []string
	if ctx.MaxDepthMeters != nil {
		profile = append(profile, fmt.Sprintf("reached a max depth of %.1f m", *ctx.MaxDepthMeters))
	}
	if ctx.DurationMinutes != nil {
		profile = append(profile, fmt.Sprintf("lasted %.0f minutes", *ctx.DurationMinutes))
	}
	if len(profile) > 0 {
		recap += " The dive " + strings.Join(profile, " and ") + "."
	}
	return recap
}
