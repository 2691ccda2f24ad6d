package pattern

import (
	"log/slog"
	"sync/atomic"
)

// WarningSink is a rate-limited diagnostic sink. The set-algebra engine
// uses it to flag the structural-inconvertibility slow path: hitting that
// path is never an error, but it signals a performance cliff the operator
// should hear about a bounded number of times.
//
// The zero-value cap semantics are explicit: a sink warns at most limit
// times over its lifetime, which for the package-level sink is the process
// lifetime (reset only at process start, never persisted).
type WarningSink struct {
	logger *slog.Logger
	limit  int32
	warned atomic.Int32
}

// NewWarningSink returns a sink writing through logger, capped at limit
// messages. A nil logger uses slog.Default at warn time.
func NewWarningSink(logger *slog.Logger, limit int32) *WarningSink {
	return &WarningSink{logger: logger, limit: limit}
}

// Warn emits msg with attrs unless the cap is already spent.
func (s *WarningSink) Warn(msg string, attrs ...any) {
	if s.warned.Add(1) > s.limit {
		return
	}
	l := s.logger
	if l == nil {
		l = slog.Default()
	}
	l.Warn(msg, attrs...)
}

// slowPathWarnings is the package-wide sink for the fallback warning,
// capped at 10 occurrences process-wide.
var slowPathWarnings atomic.Pointer[WarningSink]

func init() {
	slowPathWarnings.Store(NewWarningSink(nil, 10))
}

// SetWarningSink replaces the package-wide sink; tests and embedders that
// route diagnostics elsewhere use this. Passing nil restores the default.
func SetWarningSink(s *WarningSink) {
	if s == nil {
		s = NewWarningSink(nil, 10)
	}
	slowPathWarnings.Store(s)
}

func warnSlowPath(msg string, attrs ...any) {
	slowPathWarnings.Load().Warn(msg, attrs...)
}
