package bootstrap

import (
	"strings"

	"github.com/kbukum/speakerbind/logger"
)

// Summary collects what New wired so startup can report it in one line.
type Summary struct {
	service string
	version string
	entries []summaryEntry
}

type summaryEntry struct {
	name   string
	detail string
}

// NewSummary creates an empty summary.
func NewSummary(service, version string) *Summary {
	return &Summary{service: service, version: version}
}

// Track records one wired component.
func (s *Summary) Track(name, detail string) {
	s.entries = append(s.entries, summaryEntry{name: name, detail: detail})
}

// Fields returns the tracked components keyed by name, plus the service
// and version.
func (s *Summary) Fields() map[string]interface{} {
	f := logger.Fields("service", s.service, "version", s.version)
	for _, e := range s.entries {
		f[e.name] = e.detail
	}
	return f
}

// String renders "name=detail" pairs in tracking order.
func (s *Summary) String() string {
	parts := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		parts = append(parts, e.name+"="+e.detail)
	}
	return strings.Join(parts, " ")
}

// Log writes the summary at info level.
func (s *Summary) Log(log *logger.Logger) {
	log.Info("speakerbind wired", s.Fields())
}
