package pipeline

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"kerbside/internal/model"
)

// FailureLog is the append-only sink for per-tile failure records. Safe
// for concurrent append from tile workers.
type FailureLog struct {
	mu      sync.Mutex
	records []model.FailureRecord
}

// NewFailureLog creates an empty failure log.
func NewFailureLog() *FailureLog {
	return &FailureLog{}
}

// Append records one failure.
func (l *FailureLog) Append(rec model.FailureRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
}

// Records returns a copy of all records in append order.
func (l *FailureLog) Records() []model.FailureRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.FailureRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of recorded failures.
func (l *FailureLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// WriteReport writes the line-oriented failure report for operator
// inspection, one record per line.
func (l *FailureLog) WriteReport(path string) error {
	var b strings.Builder
	for _, rec := range l.Records() {
		b.WriteString(rec.String())
		b.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write failure report: %w", err)
	}
	return nil
}
