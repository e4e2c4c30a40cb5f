package domain

import "time"

// Outcome is the result of one ingestion run
type Outcome string

// run outcomes
const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Stage is a step of the per-source ingestion pipeline
type Stage string

// pipeline stages, in execution order
const (
	StageIdle        Stage = "idle"
	StageFetchGated  Stage = "fetch_gated"
	StageFetching    Stage = "fetching"
	StageParsing     Stage = "parsing"
	StageReconciling Stage = "reconciling"
	StagePersisting  Stage = "persisting"
	StageIndexing    Stage = "indexing"
	StageCompleted   Stage = "completed"
	StageFailed      Stage = "failed"
)

// IngestionRun records one pass of the pipeline for one source
type IngestionRun struct {
	ID                string    `json:"id"`
	Source            string    `json:"source"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	ArticlesFetched   int       `json:"articles_fetched"`
	ArticlesNew       int       `json:"articles_new"`
	ArticlesUpdated   int       `json:"articles_updated"`
	ArticlesUnchanged int       `json:"articles_unchanged"`
	ArticlesFailed    int       `json:"articles_failed"`
	Outcome           Outcome   `json:"outcome"`
	FailedStage       Stage     `json:"failed_stage,omitempty"`
	ErrorKind         string    `json:"error_kind,omitempty"`
	Error             string    `json:"error,omitempty"`
	IndexError        string    `json:"index_error,omitempty"`
}

// Duration returns how long the run took
func (r IngestionRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
