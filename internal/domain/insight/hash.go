package insight

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashInput is the full tuple the cache key is derived from. Any change to
// any constituent must change the hash.
type hashInput struct {
	Context       DiveContext     `json:"context"`
	Profile       DiverProfile    `json:"profile"`
	Metrics       DiveMetrics     `json:"metrics"`
	Signals       []Signal        `json:"signals"`
	Baselines     BaselinesBundle `json:"baselines"`
	PromptVersion string          `json:"promptVersion"`
	Model         string          `json:"model"`
}

// BuildInputHash returns a deterministic content hash of the given value.
// encoding/json emits struct fields in declaration order and map keys sorted,
// so identical logical inputs always serialize identically.
func BuildInputHash(v any) string {
	payload, err := json.Marshal(v)
	if err != nil {
		payload = []byte(fmt.Sprintf("%#v", v))
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
