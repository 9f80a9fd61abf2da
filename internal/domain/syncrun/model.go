package syncrun

import "time"

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

type Trigger string

const (
	TriggerExternal Trigger = "external"
	TriggerInterval Trigger = "interval"
	TriggerCron     Trigger = "cron"
	TriggerQueue    Trigger = "queue"
	TriggerManual   Trigger = "manual"
)

// Run is the audit record of one reconciliation cycle.
type Run struct {
	ID                string
	Trigger           Trigger
	ChampionshipID    string
	Status            Status
	ActiveMatches     int
	FeedMatches       int
	Diffs             int
	Updates           int
	Batches           int
	PredictionsScored int
	Diagnostics       []string
	Log               string
	ErrorMessage      string
	StartedAt         time.Time
	FinishedAt        time.Time
	TraceID           string
	SpanID            string
}
