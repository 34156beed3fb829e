package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExtraction    = errors.New("extraction error")
	ErrTranscription = errors.New("transcription error")
	ErrModel         = errors.New("model error")
	ErrDownload      = errors.New("download error")
	ErrExternalTool  = errors.New("external tool error")
	ErrConfiguration = errors.New("configuration error")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureDetails describes a collaborator failure for reporting.
type FailureDetails struct {
	Kind    string
	Message string
}

// Details classifies an error against the sentinel markers and produces the
// reason string persisted in run summaries.
func Details(err error) FailureDetails {
	if err == nil {
		return FailureDetails{}
	}
	details := FailureDetails{Kind: "transient", Message: strings.TrimSpace(err.Error())}
	switch {
	case errors.Is(err, ErrExtraction):
		details.Kind = "extraction"
	case errors.Is(err, ErrTranscription):
		details.Kind = "transcription"
	case errors.Is(err, ErrModel):
		details.Kind = "model"
	case errors.Is(err, ErrDownload):
		details.Kind = "download"
	case errors.Is(err, ErrTimeout):
		details.Kind = "timeout"
	case errors.Is(err, ErrConfiguration):
		details.Kind = "configuration"
	case errors.Is(err, ErrExternalTool):
		details.Kind = "external_tool"
	}
	return details
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
