package repository

import (
	"time"

	"github.com/lecternapp/lectern/cms"
	"github.com/lecternapp/lectern/internal/ratelimit"
)

// SyncScheduler accepts fire-and-forget mirror jobs for the secondary
// searchable index. Scheduling must never block the mutating request, and
// job failures are never surfaced to the repository.
type SyncScheduler interface {
	ScheduleUpsert(doc *cms.Document)
	ScheduleDelete(slug string)
}

// RateLimiter is the consumed contract of the request counter service.
// The repository consults it before acquiring slug locks on mutations.
type RateLimiter interface {
	Check(key string, max int, window time.Duration) ratelimit.Result
}
