package daemon

import (
	"time"

	"shortreel/internal/deps"
	"shortreel/internal/queue"
)

// SubmitJobRequest is the POST /api/jobs payload.
type SubmitJobRequest struct {
	Topic             string `json:"topic"`
	Voice             string `json:"voice,omitempty"`
	Model             string `json:"model,omitempty"`
	ParagraphCount    int    `json:"paragraph_count,omitempty"`
	Threads           int    `json:"threads,omitempty"`
	UseMusic          bool   `json:"use_music,omitempty"`
	MusicSource       string `json:"music_source,omitempty"`
	Upload            bool   `json:"upload,omitempty"`
	SubtitlesPosition string `json:"subtitles_position,omitempty"`
	SubtitlesColor    string `json:"subtitles_color,omitempty"`
	ExtraPrompt       string `json:"extra_prompt,omitempty"`
}

// JobView describes a queue entry in a transport-friendly format.
type JobView struct {
	ID              int64       `json:"id"`
	Topic           string      `json:"topic"`
	Voice           string      `json:"voice,omitempty"`
	Status          string      `json:"status"`
	Progress        JobProgress `json:"progress"`
	Upload          bool        `json:"upload"`
	UseMusic        bool        `json:"use_music"`
	OutputFile      string      `json:"output_file,omitempty"`
	RemoteID        string      `json:"remote_id,omitempty"`
	ErrorStage      string      `json:"error_stage,omitempty"`
	ErrorKind       string      `json:"error_kind,omitempty"`
	ErrorMessage    string      `json:"error_message,omitempty"`
	CancelRequested bool        `json:"cancel_requested,omitempty"`
	CreatedAt       string      `json:"created_at,omitempty"`
	UpdatedAt       string      `json:"updated_at,omitempty"`
}

// JobProgress captures stage progress information for a queue entry.
type JobProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job JobView `json:"job"`
}

// QueueListResponse wraps a collection of jobs.
type QueueListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// CountResponse reports how many rows an operation affected.
type CountResponse struct {
	Count int64 `json:"count"`
}

// StageHealthView mirrors readiness reporting for pipeline stages.
type StageHealthView struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyView captures availability of an external binary.
type DependencyView struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// HealthResponse aggregates daemon diagnostics for GET /api/health.
type HealthResponse struct {
	Running      bool              `json:"running"`
	PID          int               `json:"pid"`
	QueueStats   map[string]int    `json:"queue_stats"`
	StageHealth  []StageHealthView `json:"stage_health"`
	Dependencies []DependencyView  `json:"dependencies"`
	LastError    string            `json:"last_error,omitempty"`
}

func jobView(item *queue.Item) JobView {
	view := JobView{
		ID:     item.ID,
		Topic:  item.Topic,
		Voice:  item.Voice,
		Status: string(item.Status),
		Progress: JobProgress{
			Stage:   item.ProgressStage,
			Percent: item.ProgressPercent,
			Message: item.ProgressMessage,
		},
		Upload:          item.Upload,
		UseMusic:        item.UseMusic,
		OutputFile:      item.OutputFile,
		RemoteID:        item.RemoteID,
		ErrorStage:      item.ErrorStage,
		ErrorKind:       item.ErrorKind,
		ErrorMessage:    item.ErrorMessage,
		CancelRequested: item.CancelRequested,
	}
	if !item.CreatedAt.IsZero() {
		view.CreatedAt = item.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !item.UpdatedAt.IsZero() {
		view.UpdatedAt = item.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return view
}

func jobViews(items []*queue.Item) []JobView {
	if len(items) == 0 {
		return nil
	}
	views := make([]JobView, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		views = append(views, jobView(item))
	}
	return views
}

func healthResponse(status Status) HealthResponse {
	stats := make(map[string]int, len(status.Workflow.QueueStats))
	for key, count := range status.Workflow.QueueStats {
		stats[string(key)] = count
	}

	stages := make([]StageHealthView, 0, len(status.Workflow.StageHealth))
	for _, health := range status.Workflow.StageHealth {
		stages = append(stages, StageHealthView{
			Name:   health.Name,
			Ready:  health.Ready,
			Detail: health.Detail,
		})
	}

	dependencies := make([]DependencyView, 0, len(status.Dependencies))
	for _, dep := range status.Dependencies {
		dependencies = append(dependencies, dependencyView(dep))
	}

	return HealthResponse{
		Running:      status.Running,
		PID:          status.PID,
		QueueStats:   stats,
		StageHealth:  stages,
		Dependencies: dependencies,
		LastError:    status.Workflow.LastError,
	}
}

func dependencyView(dep deps.Status) DependencyView {
	return DependencyView{
		Name:      dep.Name,
		Command:   dep.Command,
		Optional:  dep.Optional,
		Available: dep.Available,
		Detail:    dep.Detail,
	}
}

func jobRequest(req SubmitJobRequest) queue.JobRequest {
	return queue.JobRequest{
		Topic:             req.Topic,
		Voice:             req.Voice,
		Model:             req.Model,
		ParagraphCount:    req.ParagraphCount,
		DownloadThreads:   req.Threads,
		UseMusic:          req.UseMusic,
		MusicSource:       req.MusicSource,
		Upload:            req.Upload,
		SubtitlesPosition: req.SubtitlesPosition,
		SubtitlesColor:    req.SubtitlesColor,
		ExtraPrompt:       req.ExtraPrompt,
	}
}
