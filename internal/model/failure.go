package model

import "fmt"

// Stage identifies the pipeline stage a per-tile failure originated from.
type Stage string

const (
	StageDownload Stage = "download"
	StageProcess  Stage = "process"
	StageValidate Stage = "validate"
)

// FailureRecord is a non-fatal error tied to a specific tile and stage.
// Records are append-only for the duration of a run.
type FailureRecord struct {
	Row    int
	Col    int
	Stage  Stage
	Reason string
}

// String renders the record as one line of the failure report.
func (r FailureRecord) String() string {
	return fmt.Sprintf("tile %d_%d\t%s\t%s", r.Row, r.Col, r.Stage, r.Reason)
}
