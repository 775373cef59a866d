package pipeline

import (
	"fmt"
)

// ImportReport summarises one import. It is complete once Import returns.
type ImportReport struct {
	SuccessCount int      `json:"successCount"`
	ErrorCount   int      `json:"errorCount"`
	Errors       []string `json:"errors"`
}

func newReport() *ImportReport {
	return &ImportReport{Errors: []string{}}
}

func (r *ImportReport) succeed() {
	r.SuccessCount++
}

func (r *ImportReport) fail(line int, err error) {
	r.ErrorCount++
	r.Errors = append(r.Errors, fmt.Sprintf("Row %d: %s", line, err.Error()))
}

// ExportError wraps a fetch or render failure of one module's export.
type ExportError struct {
	Module string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Module, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
