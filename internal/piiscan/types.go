package piiscan

// Severity classifies how damaging a leaked value is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns a comparable ordering value; higher means more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Finding is one detected sensitive value. Findings returned from a single
// scan never overlap in [Offset, Offset+Length).
type Finding struct {
	// Kind is the rule identifier, e.g. "email" or "credit_card_visa".
	Kind string `json:"kind"`

	// Severity classifies the finding.
	Severity Severity `json:"severity"`

	// MaskedValue is a partially redacted display value. The raw matched
	// substring is never exposed.
	MaskedValue string `json:"masked_value"`

	// Offset is the byte offset of the match in the scanned text.
	Offset int `json:"offset"`

	// Length is the byte length of the match.
	Length int `json:"length"`
}

// End returns the exclusive end offset of the finding.
func (f Finding) End() int { return f.Offset + f.Length }
