package model

// ModelJob is the queue payload for one 3D reconstruction attempt
type ModelJob struct {
	ListingID    string   `json:"listingId"`
	SourceAssets []string `json:"sourceAssets"`
	IsVideo      bool     `json:"isVideo"`
	RetryCount   int      `json:"retryCount"`
	// Lineage is shared by every attempt started from the same create or
	// retry request. Together with RetryCount it names a single attempt.
	Lineage string `json:"lineage"`
}

// Next returns the payload for the following attempt of the same lineage
func (j ModelJob) Next() ModelJob {
	next := j
	next.SourceAssets = append([]string(nil), j.SourceAssets...)
	next.RetryCount = j.RetryCount + 1
	return next
}
