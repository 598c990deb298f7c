package enums

// CandidateSource flags where an assignment candidate currently lives.
type CandidateSource string

const (
	// CandidateSourceQueued means the candidate is still an intake request
	// embedded in the establishment's queue.
	CandidateSourceQueued CandidateSource = "queued"
	// CandidateSourcePersisted means the candidate is a delivery row sitting
	// in awaiting_pool.
	CandidateSourcePersisted CandidateSource = "persisted"
)

// IsValid reports whether the value is a known CandidateSource.
func (s CandidateSource) IsValid() bool {
	return s == CandidateSourceQueued || s == CandidateSourcePersisted
}
