package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/model"
)

// Transport delivers one rendered message over a single channel.
type Transport interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

const (
	maxDeliveryAttempts = 3
	backoffBase         = 5 * time.Minute
	defaultBatchSize    = 100
)

// NotificationService drains the pending-notification queue: render the
// template, hand the message to the channel transport, record the outcome.
// Delivery is best-effort and never feeds back into workflow state.
type NotificationService struct {
	notifs     NotificationStore
	instances  InstanceStore
	documents  DocumentStore
	transports map[model.Channel]Transport
	batchSize  int
	log        *zap.Logger
}

func NewNotificationService(notifs NotificationStore, instances InstanceStore, documents DocumentStore, transports map[model.Channel]Transport, log *zap.Logger) *NotificationService {
	return &NotificationService{
		notifs:     notifs,
		instances:  instances,
		documents:  documents,
		transports: transports,
		batchSize:  defaultBatchSize,
		log:        log,
	}
}

// SetBatchSize overrides how many notifications one dispatch pass drains.
func (s *NotificationService) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// ProcessPending dispatches due notifications oldest first. Each one is an
// independent unit of work; a failure is recorded on that notification and
// the pass continues.
func (s *NotificationService) ProcessPending(ctx context.Context, now time.Time) error {
	batch, err := s.notifs.ListDispatchable(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list dispatchable notifications: %w", err)
	}

	for _, n := range batch {
		s.dispatch(ctx, n, now)
	}
	return nil
}

func (s *NotificationService) dispatch(ctx context.Context, n model.Notification, now time.Time) {
	transport, ok := s.transports[n.Channel]
	if !ok {
		s.fail(ctx, n, fmt.Sprintf("no transport registered for channel %s", n.Channel))
		return
	}

	tpl, ok := TemplateFor(n.NotificationType)
	if !ok {
		s.fail(ctx, n, fmt.Sprintf("unknown template %s", n.Template))
		return
	}

	data := s.renderContext(ctx, n)
	subject := RenderTemplate(tpl.Subject, data)
	body := RenderTemplate(tpl.Body, data)

	if err := transport.Send(ctx, n.RecipientUserID, subject, body); err != nil {
		s.fail(ctx, n, err.Error())
		return
	}

	if err := s.notifs.MarkNotificationSent(ctx, n.ID, now); err != nil {
		s.log.Error("Failed to mark notification sent",
			zap.String("notification_id", n.ID),
			zap.Error(err),
		)
		return
	}
	s.log.Info("Notification sent",
		zap.String("notification_id", n.ID),
		zap.String("type", string(n.NotificationType)),
		zap.String("channel", string(n.Channel)),
		zap.String("recipient", n.RecipientUserID),
	)
}

func (s *NotificationService) fail(ctx context.Context, n model.Notification, reason string) {
	if err := s.notifs.MarkNotificationFailed(ctx, n.ID, reason); err != nil {
		s.log.Error("Failed to mark notification failed",
			zap.String("notification_id", n.ID),
			zap.Error(err),
		)
		return
	}
	s.log.Warn("Notification delivery failed",
		zap.String("notification_id", n.ID),
		zap.String("channel", string(n.Channel)),
		zap.Int("attempt", n.RetryCount+1),
		zap.String("reason", reason),
	)
}

// renderContext merges the queued data with fresh instance/document context.
// Rendering must never fail, so lookup errors just leave context out.
func (s *NotificationService) renderContext(ctx context.Context, n model.Notification) map[string]interface{} {
	data := make(map[string]interface{})

	if inst, err := s.instances.GetInstanceByID(ctx, n.InstanceID); err == nil {
		data["instanceId"] = inst.ID
		data["documentId"] = inst.DocumentID
		data["currentLevel"] = inst.CurrentLevel
		data["instanceStatus"] = string(inst.Status)
		data["submittedBy"] = inst.SubmittedBy
		data["startedAt"] = inst.StartedAt.Format(time.RFC3339)

		if doc, err := s.documents.GetDocument(ctx, inst.DocumentID); err == nil {
			data["documentTypeId"] = doc.DocumentTypeID
			data["documentStatus"] = string(doc.Status)
		}
	}

	for k, v := range n.Data {
		data[k] = v
	}
	return data
}

// RetryFailed reschedules failed notifications that still have attempts
// left, with exponential backoff: 3^retryCount x 5 minutes. A notification
// that failed three times stays failed for good.
func (s *NotificationService) RetryFailed(ctx context.Context, now time.Time) error {
	batch, err := s.notifs.ListRetryable(ctx)
	if err != nil {
		return fmt.Errorf("failed to list retryable notifications: %w", err)
	}

	for _, n := range batch {
		delay := RetryBackoff(n.RetryCount)
		if err := s.notifs.RescheduleNotification(ctx, n.ID, now.Add(delay)); err != nil {
			s.log.Error("Failed to reschedule notification",
				zap.String("notification_id", n.ID),
				zap.Error(err),
			)
			continue
		}
		s.log.Info("Notification rescheduled",
			zap.String("notification_id", n.ID),
			zap.Int("retry_count", n.RetryCount),
			zap.Duration("delay", delay),
		)
	}
	return nil
}

// RetryBackoff computes the delay before attempt retryCount+1.
func RetryBackoff(retryCount int) time.Duration {
	delay := backoffBase
	for i := 0; i < retryCount; i++ {
		delay *= 3
	}
	return delay
}

// Purge deletes terminal notifications older than the retention window.
func (s *NotificationService) Purge(ctx context.Context, now time.Time, retention time.Duration) error {
	purged, err := s.notifs.PurgeNotifications(ctx, now.Add(-retention))
	if err != nil {
		return fmt.Errorf("failed to purge notifications: %w", err)
	}
	if purged > 0 {
		s.log.Info("Purged old notifications", zap.Int64("count", purged))
	}
	return nil
}
