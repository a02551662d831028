package fn

// LazyState is the per-call protocol object threaded through every entry of
// a lazy invocation. It is owned by the driver, never shared between calls,
// and not safe for concurrent use.
type LazyState struct {
	entryCount int
	done       bool
	requested  []int
	scratch    []byte
}

// NewLazyState allocates state for one logical lazy call, with a scratch
// buffer of the body's declared size.
func NewLazyState(scratchSize int) *LazyState {
	return &LazyState{scratch: make([]byte, scratchSize)}
}

// beginEntry starts the next entry: the counter advances and the requested
// set from the previous entry is discarded. The done flag is monotonic and
// survives entries.
func (s *LazyState) beginEntry() {
	s.entryCount++
	s.requested = s.requested[:0]
}

// RequestInput records that the body needs the input at index before it can
// make further progress.
func (s *LazyState) RequestInput(index int) {
	s.requested = append(s.requested, index)
}

// Done marks the logical call as finished. The body will not be re-entered.
func (s *LazyState) Done() {
	s.done = true
}

// IsDone reports whether the call has been marked finished.
func (s *LazyState) IsDone() bool {
	return s.done
}

// IsFirstEntry reports whether the current entry is the first one.
func (s *LazyState) IsFirstEntry() bool {
	return s.entryCount == 1
}

// EntryCount returns the number of entries started so far.
func (s *LazyState) EntryCount() int {
	return s.entryCount
}

// Requested returns the input indices requested during the current entry.
func (s *LazyState) Requested() []int {
	return s.requested
}

// Scratch returns the caller-owned scratch buffer. Its contents persist
// across entries of the same logical call.
func (s *LazyState) Scratch() []byte {
	return s.scratch
}
