package diag

// Severity ranks a diagnostic. Any SevError in a unit's bag fails the unit.
type Severity uint8

const (
	// SevInfo reports what lowering did: removed accessors, timings.
	SevInfo Severity = iota
	// SevWarning marks operations left unchanged or metadata that looks wrong.
	SevWarning
	SevError
)

// AtLeast reports whether s is as severe as floor.
func (s Severity) AtLeast(floor Severity) bool { return s >= floor }

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
