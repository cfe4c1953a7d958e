package services

import (
	"errors"
	"fmt"
	"strings"

	"shortreel/internal/queue"
)

var (
	// ErrUpstreamUnavailable marks transient upstream failures worth a bounded retry.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrMalformedResponse marks upstream output that cannot be parsed.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrVoiceNotFound marks an unknown speech synthesis voice.
	ErrVoiceNotFound = errors.New("voice not found")
	// ErrEncodingFailure marks a fatal media encoding error.
	ErrEncodingFailure = errors.New("encoding failure")
	// ErrAssetUnreadable marks a footage file that failed to decode.
	ErrAssetUnreadable = errors.New("asset unreadable")
	// ErrDurationShortfall marks acquired footage falling short of the narration duration.
	ErrDurationShortfall = errors.New("duration shortfall")
	// ErrCancelled marks user-initiated cancellation. Not a failure.
	ErrCancelled = errors.New("cancelled")
	// ErrConfiguration marks unusable configuration detected at stage time.
	ErrConfiguration = errors.New("configuration error")
	// ErrAuth marks credential failures that require operator intervention.
	ErrAuth = errors.New("authentication error")
)

var kindNames = map[error]string{
	ErrUpstreamUnavailable: "upstream_unavailable",
	ErrMalformedResponse:   "malformed_response",
	ErrVoiceNotFound:       "voice_not_found",
	ErrEncodingFailure:     "encoding_failure",
	ErrAssetUnreadable:     "asset_unreadable",
	ErrDurationShortfall:   "duration_shortfall",
	ErrCancelled:           "cancelled",
	ErrConfiguration:       "configuration",
	ErrAuth:                "auth",
}

type serviceError struct {
	marker    error
	stage     string
	operation string
	message   string
	err       error
}

func (e *serviceError) Error() string {
	detail := buildDetail(e.stage, e.operation, e.message)
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %s", e.marker.Error(), detail, e.err.Error())
	}
	return fmt.Sprintf("%s: %s", e.marker.Error(), detail)
}

func (e *serviceError) Unwrap() []error {
	if e.err != nil {
		return []error{e.marker, e.err}
	}
	return []error{e.marker}
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later status classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrUpstreamUnavailable
	}
	return &serviceError{
		marker:    marker,
		stage:     strings.TrimSpace(stage),
		operation: strings.TrimSpace(operation),
		message:   strings.TrimSpace(message),
		err:       err,
	}
}

// ErrorDetails carries the structured failure context extracted from a stage error.
type ErrorDetails struct {
	Stage     string
	Operation string
	Message   string
	Kind      string
}

// Details extracts structured failure context from an error produced by Wrap.
// For foreign errors the message is the plain error text and the kind is empty.
func Details(err error) ErrorDetails {
	var svcErr *serviceError
	if errors.As(err, &svcErr) {
		return ErrorDetails{
			Stage:     svcErr.stage,
			Operation: svcErr.operation,
			Message:   buildDetail(svcErr.stage, svcErr.operation, svcErr.message),
			Kind:      Kind(err),
		}
	}
	details := ErrorDetails{Kind: Kind(err)}
	if err != nil {
		details.Message = err.Error()
	}
	return details
}

// Kind returns the stable taxonomy name for the sentinel carried by err, or
// an empty string when none matches.
func Kind(err error) string {
	for marker, name := range kindNames {
		if errors.Is(err, marker) {
			return name
		}
	}
	return ""
}

// FailureStatus maps a stage error to the queue status the workflow manager
// should persist after the stage aborts.
func FailureStatus(err error) queue.Status {
	if errors.Is(err, ErrCancelled) {
		return queue.StatusCancelled
	}
	return queue.StatusFailed
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
