package service

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Cycle runs one full maintenance pass: dispatch pending notifications,
// escalate timed-out instances, send reminders, retry failures, purge old
// notifications. Phases are independent; one phase failing is logged and
// the rest still run.
type Cycle struct {
	escalations   *EscalationService
	notifications *NotificationService
	retention     time.Duration
	running       atomic.Bool
	log           *zap.Logger
}

func NewCycle(escalations *EscalationService, notifications *NotificationService, retention time.Duration, log *zap.Logger) *Cycle {
	return &Cycle{
		escalations:   escalations,
		notifications: notifications,
		retention:     retention,
		log:           log,
	}
}

// Run executes one cycle. Overlapping runs are collapsed: if a previous
// cycle is still going, this one is skipped.
func (c *Cycle) Run(ctx context.Context, now time.Time) {
	if !c.running.CompareAndSwap(false, true) {
		c.log.Warn("Skipping cycle, previous one still running")
		return
	}
	defer c.running.Store(false)

	start := time.Now()

	if err := c.notifications.ProcessPending(ctx, now); err != nil {
		c.log.Error("Notification dispatch phase failed", zap.Error(err))
	}
	if err := c.escalations.CheckTimeouts(ctx, now); err != nil {
		c.log.Error("Escalation phase failed", zap.Error(err))
	}
	if err := c.escalations.SendReminders(ctx, now); err != nil {
		c.log.Error("Reminder phase failed", zap.Error(err))
	}
	if err := c.notifications.RetryFailed(ctx, now); err != nil {
		c.log.Error("Retry phase failed", zap.Error(err))
	}
	if err := c.notifications.Purge(ctx, now, c.retention); err != nil {
		c.log.Error("Purge phase failed", zap.Error(err))
	}

	c.log.Info("Cycle complete", zap.Duration("took", time.Since(start)))
}
