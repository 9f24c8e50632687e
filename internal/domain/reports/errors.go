package reports

import (
	"errors"
	"fmt"
)

// ErrNotAvailable means the export has nothing to work from: the template,
// the application record or its vulnerability record is missing.
var ErrNotAvailable = errors.New("report not available")

// ErrInvalidPayload marks input rejected at the boundary.
var ErrInvalidPayload = errors.New("invalid payload")

// ErrImageUnavailable marks a screenshot that is missing or does not decode.
// It never leaves the assembler; the step renders with an empty image slot.
var ErrImageUnavailable = errors.New("image unavailable")

// Phase names a step of the document pipeline.
type Phase string

const (
	PhaseLoadTemplate Phase = "load_template"
	PhaseBuildContext Phase = "build_context"
	PhaseRender       Phase = "render"
	PhasePostprocess  Phase = "postprocess"
	PhaseSave         Phase = "save"
)

// RenderError aborts a single export.
type RenderError struct {
	Phase Phase
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("generation failed during %s: %v", e.Phase, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
