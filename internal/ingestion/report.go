package ingestion

// Overall ingestion statuses.
const (
	StatusSuccess        = "success"
	StatusPartialSuccess = "partial_success"
)

// BatchResult records the outcome of one batch write.
type BatchResult struct {
	// Index is the zero-based batch position.
	Index int
	// Size is the number of documents in the batch.
	Size int
	// Err is nil when the write succeeded.
	Err error
}

// Report summarises an ingestion run.
type Report struct {
	// Collection is the target vector collection.
	Collection string
	// Documents is the number of documents submitted.
	Documents int
	// Batches lists every batch in submission order.
	Batches []BatchResult
}

// Failed returns the number of failed batches.
func (r *Report) Failed() int {
	n := 0
	for _, b := range r.Batches {
		if b.Err != nil {
			n++
		}
	}
	return n
}

// Written returns the number of documents in successful batches.
func (r *Report) Written() int {
	n := 0
	for _, b := range r.Batches {
		if b.Err == nil {
			n += b.Size
		}
	}
	return n
}

// PartialSuccess reports whether at least one batch failed.
func (r *Report) PartialSuccess() bool {
	return r.Failed() > 0
}

// Status returns StatusPartialSuccess when any batch failed and
// StatusSuccess otherwise.
func (r *Report) Status() string {
	if r.PartialSuccess() {
		return StatusPartialSuccess
	}
	return StatusSuccess
}
