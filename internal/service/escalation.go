package service

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/model"
)

// EscalationService is the time-driven evaluator: it detects per-level
// timeouts and applies escalation rules, and issues reminders on each
// 24-hour boundary. Both entry points take "now" explicitly so a tick is
// deterministic and testable without real time.
type EscalationService struct {
	store     InstanceStore
	notifs    NotificationStore
	workflows *WorkflowService
	approvals *ApprovalService
	log       *zap.Logger
}

const reminderInterval = 24 * time.Hour

func NewEscalationService(store InstanceStore, notifs NotificationStore, workflows *WorkflowService, approvals *ApprovalService, log *zap.Logger) *EscalationService {
	return &EscalationService{
		store:     store,
		notifs:    notifs,
		workflows: workflows,
		approvals: approvals,
		log:       log,
	}
}

// CheckTimeouts escalates every in-progress instance whose current level's
// timeout has elapsed and for which a matching rule exists. One instance's
// failure never aborts the sweep.
func (s *EscalationService) CheckTimeouts(ctx context.Context, now time.Time) error {
	instances, err := s.store.ListInstancesByStatus(ctx, model.InstanceInProgress)
	if err != nil {
		return fmt.Errorf("failed to list in-progress instances: %w", err)
	}

	for _, inst := range instances {
		if err := s.checkInstanceTimeout(ctx, inst, now); err != nil {
			s.log.Error("Timeout check failed for instance",
				zap.String("instance_id", inst.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *EscalationService) checkInstanceTimeout(ctx context.Context, inst model.ApprovalInstance, now time.Time) error {
	def, err := s.workflows.GetWorkflow(ctx, inst.WorkflowID)
	if err != nil {
		return err
	}

	level := def.LevelByNumber(inst.CurrentLevel)
	if level == nil || level.TimeoutHours == nil {
		return nil
	}

	deadline := inst.StartedAt.Add(time.Duration(*level.TimeoutHours) * time.Hour)
	if !now.After(deadline) {
		return nil
	}

	rule := matchEscalationRule(def, *level)
	if rule == nil {
		// No rule: the instance waits for an operator.
		return nil
	}

	reason := fmt.Sprintf("level %d timed out after %dh", inst.CurrentLevel, *level.TimeoutHours)
	return s.approvals.Escalate(ctx, inst, def, *rule, reason, now)
}

// matchEscalationRule picks the first rule for the level whose trigger
// threshold does not exceed the level's timeout.
func matchEscalationRule(def *model.WorkflowDefinition, level model.Level) *model.EscalationRule {
	for i := range def.EscalationRules {
		rule := &def.EscalationRules[i]
		if rule.FromLevel != level.Level {
			continue
		}
		if level.TimeoutHours != nil && rule.TriggerAfterHours > *level.TimeoutHours {
			continue
		}
		return rule
	}
	return nil
}

// SendReminders nags every approver with a still-pending record at the
// current level of an in-progress instance, once per 24-hour boundary
// since the instance started.
func (s *EscalationService) SendReminders(ctx context.Context, now time.Time) error {
	instances, err := s.store.ListInstancesByStatus(ctx, model.InstanceInProgress)
	if err != nil {
		return fmt.Errorf("failed to list in-progress instances: %w", err)
	}

	for _, inst := range instances {
		if err := s.remindInstance(ctx, inst, now); err != nil {
			s.log.Error("Reminder check failed for instance",
				zap.String("instance_id", inst.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *EscalationService) remindInstance(ctx context.Context, inst model.ApprovalInstance, now time.Time) error {
	boundary := reminderBoundary(inst.StartedAt, now)
	if boundary < 1 {
		return nil
	}

	pending, err := s.store.ListPendingRecordsAtLevel(ctx, inst.ID, inst.CurrentLevel)
	if err != nil {
		return fmt.Errorf("failed to list pending records: %w", err)
	}

	def, err := s.workflows.GetWorkflow(ctx, inst.WorkflowID)
	if err != nil {
		return err
	}

	channels := defaultChannels
	if len(def.NotificationPolicy.Channels) > 0 {
		channels = def.NotificationPolicy.Channels
	}

	for _, rec := range pending {
		last, err := s.notifs.LastReminderAt(ctx, inst.ID, rec.ApproverUserID)
		if err != nil {
			s.log.Error("Failed to load last reminder time",
				zap.String("instance_id", inst.ID),
				zap.String("recipient", rec.ApproverUserID),
				zap.Error(err),
			)
			continue
		}
		if last != nil && reminderBoundary(inst.StartedAt, *last) >= boundary {
			continue
		}

		for _, channel := range channels {
			n := model.Notification{
				ID:               ulid.Make().String(),
				InstanceID:       inst.ID,
				NotificationType: model.NotifyReminder,
				RecipientUserID:  rec.ApproverUserID,
				Channel:          channel,
				Template:         string(model.NotifyReminder),
				Data: map[string]interface{}{
					"instanceId":  inst.ID,
					"documentId":  inst.DocumentID,
					"level":       inst.CurrentLevel,
					"startedAt":   inst.StartedAt.Format(time.RFC3339),
					"submittedBy": inst.SubmittedBy,
				},
				Status:      model.NotificationPending,
				ScheduledAt: now,
				CreatedAt:   now,
			}
			if err := s.notifs.CreateNotification(ctx, n); err != nil {
				s.log.Error("Failed to enqueue reminder",
					zap.String("instance_id", inst.ID),
					zap.String("recipient", rec.ApproverUserID),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// reminderBoundary returns how many whole reminder intervals have elapsed
// since the instance started.
func reminderBoundary(startedAt, now time.Time) int {
	if !now.After(startedAt) {
		return 0
	}
	return int(now.Sub(startedAt) / reminderInterval)
}
