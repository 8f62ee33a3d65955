package jobs

import (
	"context"
	"time"

	"EstateDesk/internal/config"
	"EstateDesk/internal/logger"
	"EstateDesk/internal/session"
)

// SessionSweepJob drops idle page sessions.
func SessionSweepJob(sessions *session.Manager) Job {
	return Job{
		Name:     "session_sweep",
		Schedule: config.DefaultSweepSpec,
		Run: func(context.Context) error {
			if n := sessions.CleanupExpiredSessions(); n > 0 {
				logger.Audit("expired page sessions removed", "count", n)
			}
			return nil
		},
	}
}

// Pruner deletes audit rows older than a cutoff.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditPruneJob keeps retentionDays of audit history.
func AuditPruneJob(p Pruner, retentionDays int) Job {
	if retentionDays <= 0 {
		retentionDays = config.AuditRetentionDays
	}
	return Job{
		Name:     "audit_prune",
		Schedule: config.DefaultAuditPruning,
		Timeout:  5 * time.Minute,
		Run: func(ctx context.Context) error {
			cutoff := time.Now().AddDate(0, 0, -retentionDays)
			n, err := p.Prune(ctx, cutoff)
			if err != nil {
				return err
			}
			logger.Audit("audit log pruned", "deleted", n, "cutoff", cutoff)
			return nil
		},
	}
}
