package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a generation job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusScripting  Status = "scripting"
	StatusScripted   Status = "scripted"
	StatusGathering  Status = "gathering"
	StatusGathered   Status = "gathered"
	StatusAligning   Status = "aligning"
	StatusAligned    Status = "aligned"
	StatusComposing  Status = "composing"
	StatusComposed   Status = "composed"
	StatusPublishing Status = "publishing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusScripting,
	StatusScripted,
	StatusGathering,
	StatusGathered,
	StatusAligning,
	StatusAligned,
	StatusComposing,
	StatusComposed,
	StatusPublishing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusScripting:  {},
	StatusGathering:  {},
	StatusAligning:   {},
	StatusComposing:  {},
	StatusPublishing: {},
}

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions return interrupted in-flight jobs to the checkpoint
// preceding the stage that was running.
var stageRollbackTransitions = []statusTransition{
	{from: StatusScripting, to: StatusPending},
	{from: StatusGathering, to: StatusScripted},
	{from: StatusAligning, to: StatusGathered},
	{from: StatusComposing, to: StatusAligned},
	{from: StatusPublishing, to: StatusComposed},
}

// TerminalStatuses returns the set of statuses a job can never leave.
func TerminalStatuses() []Status {
	return []Status{StatusCompleted, StatusFailed, StatusCancelled}
}

// IsTerminal reports whether a status is terminal.
func IsTerminal(status Status) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Cancelled  int
	Completed  int
}

// Item represents a generation job persisted in SQLite.
type Item struct {
	ID                int64
	Topic             string
	Voice             string
	Model             string
	ParagraphCount    int
	DownloadThreads   int
	UseMusic          bool
	MusicSource       string
	Upload            bool
	SubtitlesPosition string
	SubtitlesColor    string
	ExtraPrompt       string
	Status            Status
	WorkspacePath     string
	ScriptJSON        string
	NarrationJSON     string
	AssetsJSON        string
	CuesJSON          string
	MetadataJSON      string
	OutputFile        string
	RemoteID          string
	ErrorMessage      string
	ErrorKind         string
	ErrorStage        string
	CancelRequested   bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ProgressStage     string
	ProgressPercent   float64
	ProgressMessage   string
	LastHeartbeat     *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (i Item) IsProcessing() bool {
	_, ok := processingStatuses[i.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// InitProgress resets progress fields for a new stage.
// If ProgressStage is currently empty, it is set to the provided stage value;
// otherwise the existing stage is preserved (to support resume scenarios).
func (i *Item) InitProgress(stage, message string) {
	if i.ProgressStage == "" {
		i.ProgressStage = stage
	}
	i.ProgressMessage = message
	i.ProgressPercent = 0
	i.ErrorMessage = ""
}

// SetProgress updates all three progress fields atomically.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (i *Item) SetProgressComplete(stage, message string) {
	i.SetProgress(stage, message, 100)
}

// SetFailed marks the job as failed, retaining the originating stage and error
// kind for diagnostics.
func (i *Item) SetFailed(stage, kind, message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ErrorKind = kind
	i.ErrorStage = stage
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.LastHeartbeat = nil
	i.ProgressStage = "Failed"
}

// SetCancelled marks the job as cancelled.
func (i *Item) SetCancelled() {
	i.Status = StatusCancelled
	i.ProgressPercent = 0
	i.ProgressMessage = "Cancelled"
	i.ProgressStage = "Cancelled"
	i.LastHeartbeat = nil
}
