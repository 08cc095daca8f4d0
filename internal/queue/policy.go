package queue

import (
	"time"

	"github.com/phrazzld/feedcore/internal/config"
)

// Policy is the delivery policy of one queue. It is fixed when the queue's
// worker starts and applies to every job on that queue.
type Policy struct {
	// Attempts is the total number of times a job may run, including the
	// first attempt.
	Attempts int

	// BackoffBase is the delay before the first retry. Each further retry
	// doubles it, up to BackoffMax when that is set.
	BackoffBase time.Duration
	BackoffMax  time.Duration

	// RemoveOnComplete and RemoveOnFail drop finished jobs instead of
	// keeping an audit record of them.
	RemoveOnComplete bool
	RemoveOnFail     bool
}

// PolicyFromConfig converts the configured policy of one queue.
func PolicyFromConfig(cfg config.PolicyConfig) Policy {
	return Policy{
		Attempts:         cfg.Attempts,
		BackoffBase:      cfg.BackoffBase,
		BackoffMax:       cfg.BackoffMax,
		RemoveOnComplete: cfg.RemoveOnComplete,
		RemoveOnFail:     cfg.RemoveOnFail,
	}
}

// PoliciesFromConfig returns the policy of every queue kind.
func PoliciesFromConfig(cfg config.QueueConfig) map[Kind]Policy {
	return map[Kind]Policy{
		KindPost:    PolicyFromConfig(cfg.Post),
		KindLike:    PolicyFromConfig(cfg.Like),
		KindComment: PolicyFromConfig(cfg.Comment),
	}
}

// MaxAttempts returns Attempts, treating anything below one as one.
func (p Policy) MaxAttempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

// Exhausted reports whether a job that has already failed attemptsMade
// times may not run again.
func (p Policy) Exhausted(attemptsMade int) bool {
	return attemptsMade >= p.MaxAttempts()
}

// Backoff returns the delay before retrying a job whose attempt-th run
// just failed.
func (p Policy) Backoff(attempt int) time.Duration {
	if p.BackoffBase <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.BackoffMax > 0 && delay >= p.BackoffMax {
			return p.BackoffMax
		}
	}
	if p.BackoffMax > 0 && delay > p.BackoffMax {
		return p.BackoffMax
	}
	return delay
}

// RetainCompleted reports whether completed jobs are kept for audit.
func (p Policy) RetainCompleted() bool { return !p.RemoveOnComplete }

// RetainFailed reports whether dead jobs are kept for audit.
func (p Policy) RetainFailed() bool { return !p.RemoveOnFail }
