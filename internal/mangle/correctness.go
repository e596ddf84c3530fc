package mangle

// Correctness describes how a reported result relates to the fixpoint of the
// current knowledge base.
type Correctness int

const (
	// SoundAndComplete results contain exactly the answers of the fixpoint.
	SoundAndComplete Correctness = iota
	// SoundButIncomplete results are valid answers but some may be missing.
	SoundButIncomplete
	// Incorrect results may contain answers that no longer follow.
	Incorrect
)

// String returns the human-readable name of the correctness value.
func (c Correctness) String() string {
	switch c {
	case SoundAndComplete:
		return "sound and complete"
	case SoundButIncomplete:
		return "sound but incomplete"
	case Incorrect:
		return "possibly incorrect"
	default:
		return "unknown"
	}
}

// Weaker returns the less reliable of two correctness values.
func (c Correctness) Weaker(other Correctness) Correctness {
	if other > c {
		return other
	}
	return c
}
