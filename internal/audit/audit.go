// Package audit defines the layout-audit contract the build loop consumes
// and the adapters that satisfy it.
package audit

// #region imports
import (
	"context"
	"errors"
	"sync"
)

// #endregion

// #region report

// Report is the auditor's verdict for one rendered attempt. It is an
// immutable value: consumed once, never retained past the attempt.
type Report struct {
	Approved bool     `json:"approved"`
	Issues   []string `json:"issues"`
	Reason   string   `json:"reason"`
}

// #endregion

// #region auditor

// ErrUnreachable reports that the auditor itself could not be invoked.
// This is an infrastructure failure, not a layout verdict; the controller
// surfaces it as a failed build rather than a rejected one.
var ErrUnreachable = errors.New("auditor unreachable")

// Auditor inspects a rendered page for layout defects. Implementations must
// be idempotent for the same input file and synchronous relative to one
// build attempt.
type Auditor interface {
	Audit(ctx context.Context, htmlPath string) (Report, error)
}

// #endregion

// #region scripted

// Scripted replays a fixed sequence of reports, one per Audit call, and
// stays on the last report once the script is exhausted. Used by tests and
// replay fixtures in place of a browser. Safe for concurrent use.
type Scripted struct {
	Reports []Report
	Err     error

	mu    sync.Mutex
	calls int
}

// Audit returns the next scripted report.
func (s *Scripted) Audit(_ context.Context, _ string) (Report, error) {
	if s.Err != nil {
		return Report{}, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Reports) == 0 {
		return Report{Approved: true, Reason: "scripted default"}, nil
	}
	i := s.calls
	if i >= len(s.Reports) {
		i = len(s.Reports) - 1
	}
	s.calls++
	return s.Reports[i], nil
}

// Calls returns how many times Audit ran.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// #endregion
