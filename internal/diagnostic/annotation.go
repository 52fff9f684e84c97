package diagnostic

// Source is the source label attached to every annotation.
const Source = "scalastyle"

// Tier is the two-level severity classification of an annotation.
type Tier int

const (
	TierError Tier = iota
	TierWarning
)

// TierOf maps a reported severity to a tier.
// Only "warning" maps to TierWarning; anything else, including unknown or
// missing severities, is an error so it stays visible.
func TierOf(severity string) Tier {
	if severity == "warning" {
		return TierWarning
	}
	return TierError
}

func (t Tier) String() string {
	if t == TierWarning {
		return "warning"
	}
	return "error"
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Annotation is an editor-visible marker derived from an issue.
type Annotation struct {
	Range   Range  `json:"range"`
	Message string `json:"message"`
	Tier    Tier   `json:"severity"`
	Source  string `json:"source"`
	Code    string `json:"code,omitempty"`
}
