package models

import "time"

// Stage is a step of the run state machine.
type Stage string

const (
	StageFetching    Stage = "fetching"
	StageFiltering   Stage = "filtering"
	StageExtracting  Stage = "extracting"
	StageClassifying Stage = "classifying"
	StageDone        Stage = "done"
)

// RunStatus is the run-level outcome reported next to the result list, so an
// empty list can be told apart from an upstream failure.
type RunStatus string

const (
	StatusOK                RunStatus = "ok"
	StatusSourceUnavailable RunStatus = "source-unavailable"
	StatusSourceDecodeError RunStatus = "source-decode-error"
	StatusCancelled         RunStatus = "cancelled"
)

// RunStats counts articles at each step of the funnel.
type RunStats struct {
	Fetched   int `json:"fetched"`
	Relevant  int `json:"relevant"`
	Extracted int `json:"extracted"` // relevant articles with non-empty text
	Scored    int `json:"scored"`
	Negative  int `json:"negative"`
	Excluded  int `json:"excluded"` // relevant articles dropped by extraction or classification failures
}

// PipelineResult is the deliverable of one run. Articles holds only NEGATIVE
// entries, in the order the search service returned them.
type PipelineResult struct {
	RunID      string             `json:"run_id"`
	Keyword    string             `json:"keyword"`
	StartDate  string             `json:"start_date"` // YYYY-MM-DD
	EndDate    string             `json:"end_date"`   // YYYY-MM-DD
	Status     RunStatus          `json:"status"`
	Error      string             `json:"error,omitempty"`
	Stages     []Stage            `json:"stages"`
	Articles   []ScoredArticle    `json:"articles"`
	Verdicts   []RelevanceVerdict `json:"verdicts,omitempty"`
	Stats      RunStats           `json:"stats"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

// OK reports whether the run completed without a run-level failure.
func (r *PipelineResult) OK() bool { return r.Status == StatusOK }

// URLs returns the URLs of the result articles in order.
func (r *PipelineResult) URLs() []string {
	urls := make([]string, len(r.Articles))
	for i, a := range r.Articles {
		urls[i] = a.URL
	}
	return urls
}
