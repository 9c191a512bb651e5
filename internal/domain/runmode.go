package domain

// RunMode selects the fetch strategy and whether anything is delivered.
type RunMode int

const (
	// ModeIncremental diffs a timestamp-filtered fetch (falling back to a
	// full fetch) against the known set and delivers the new companies.
	ModeIncremental RunMode = iota
	// ModeSeed fetches the whole directory and records it as the baseline.
	// Nothing is delivered.
	ModeSeed
	// ModeFullFetch is ModeIncremental without the count short-circuit and
	// the timestamp shortcut.
	ModeFullFetch
	// ModeDryRun detects and reports new companies but neither delivers
	// nor touches persisted state.
	ModeDryRun
)

func (m RunMode) String() string {
	switch m {
	case ModeIncremental:
		return "incremental"
	case ModeSeed:
		return "seed"
	case ModeFullFetch:
		return "full-fetch"
	case ModeDryRun:
		return "dry-run"
	default:
		return "unknown"
	}
}
