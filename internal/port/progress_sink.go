package port

import "github.com/ShipCreekGroup/email-parser/internal/domain"

// ProgressSink receives incremental and terminal results from a parse
// request. Implementations render them (SSE events, logs); neither call
// returns a value and neither may be skipped by the core on the paths
// that produce them.
type ProgressSink interface {
	// ReportProgress is invoked whenever a strictly larger prefix of
	// the record list has been recovered mid-stream.
	ReportProgress(emails []domain.Email, count int)

	// ReportFailure is invoked exactly once if final validation of the
	// completed stream rejects the document.
	ReportFailure(failure *domain.ParseFailure)
}

// DiscardSink drops all progress notifications. Used by the synchronous
// parse path, which only surfaces the terminal result.
type DiscardSink struct{}

func (DiscardSink) ReportProgress([]domain.Email, int) {}
func (DiscardSink) ReportFailure(*domain.ParseFailure) {}
