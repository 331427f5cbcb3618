package models

// --- Entry point results ---

// JobResult is the per-video outcome of a transcode run.
type JobResult struct {
	PoolVideoID   string `json:"poolVideoId"`
	Success       bool   `json:"success"`
	TranscodedURL string `json:"transcodedUrl,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ResultSet groups run outcomes.
type ResultSet struct {
	Successful []JobResult `json:"successful"`
	Failed     []JobResult `json:"failed"`
	Total      int         `json:"total"`
}

// RunSummary is returned by a full scan -> submit -> monitor cycle.
type RunSummary struct {
	Success bool      `json:"success"`
	Results ResultSet `json:"results"`
	Message string    `json:"message,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// RecheckSummary is returned by the out-of-band reconciliation pass.
type RecheckSummary struct {
	Success         bool   `json:"success"`
	Message         string `json:"message,omitempty"`
	Error           string `json:"error,omitempty"`
	Checked         int    `json:"checked"`
	Completed       int    `json:"completed"`
	Failed          int    `json:"failed"`
	StillProcessing int    `json:"stillProcessing"`
	Orphaned        int    `json:"orphaned"`
}

// PoolStats counts a project's pool videos by state.
type PoolStats struct {
	Total            int `json:"total"`
	Ready            int `json:"ready"`
	Processing       int `json:"processing"`
	Error            int `json:"error"`
	NeedsTranscoding int `json:"needsTranscoding"`
}

// StatusSnapshot is the read-only health view of a project's pool.
type StatusSnapshot struct {
	Success bool      `json:"success"`
	Stats   PoolStats `json:"stats"`
	Error   string    `json:"error,omitempty"`
}
