package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/model"
)

const notificationColumns = `id, instance_id, notification_type, recipient_user_id, channel, template, data, status, scheduled_at, sent_at, error_message, retry_count, created_at`

func scanNotification(row pgx.Row) (model.Notification, error) {
	var n model.Notification
	err := row.Scan(
		&n.ID, &n.InstanceID, &n.NotificationType, &n.RecipientUserID, &n.Channel,
		&n.Template, &n.Data, &n.Status, &n.ScheduledAt, &n.SentAt,
		&n.ErrorMessage, &n.RetryCount, &n.CreatedAt,
	)
	return n, mapRowErr(err)
}

func (q *Queries) CreateNotification(ctx context.Context, n model.Notification) error {
	_, err := q.Pool.Exec(ctx,
		`INSERT INTO notifications (id, instance_id, notification_type, recipient_user_id, channel, template, data, status, scheduled_at, retry_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		n.ID, n.InstanceID, n.NotificationType, n.RecipientUserID, n.Channel,
		n.Template, n.Data, n.Status, n.ScheduledAt, n.RetryCount, n.CreatedAt,
	)
	return err
}

func (q *Queries) ListDispatchable(ctx context.Context, now time.Time, limit int) ([]model.Notification, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		WHERE status = 'pending' AND scheduled_at <= $1 AND retry_count < 3
		ORDER BY scheduled_at ASC
		LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (q *Queries) MarkNotificationSent(ctx context.Context, id string, sentAt time.Time) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE notifications SET status = 'sent', sent_at = $2, error_message = NULL
		WHERE id = $1 AND status = 'pending'`,
		id, sentAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return model.ErrConflict
	}
	return nil
}

func (q *Queries) MarkNotificationFailed(ctx context.Context, id string, errMsg string) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE notifications SET status = 'failed', error_message = $2, retry_count = retry_count + 1
		WHERE id = $1 AND status = 'pending'`,
		id, errMsg,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return model.ErrConflict
	}
	return nil
}

func (q *Queries) ListRetryable(ctx context.Context) ([]model.Notification, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		WHERE status = 'failed' AND retry_count < 3
		ORDER BY scheduled_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (q *Queries) RescheduleNotification(ctx context.Context, id string, scheduledAt time.Time) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE notifications SET status = 'pending', scheduled_at = $2
		WHERE id = $1 AND status = 'failed' AND retry_count < 3`,
		id, scheduledAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return model.ErrConflict
	}
	return nil
}

// LastReminderAt returns when the most recent reminder for this recipient on
// this instance was scheduled, or nil when none exists.
func (q *Queries) LastReminderAt(ctx context.Context, instanceID, recipientUserID string) (*time.Time, error) {
	var at *time.Time
	err := q.Pool.QueryRow(ctx,
		`SELECT MAX(scheduled_at) FROM notifications
		WHERE instance_id = $1 AND recipient_user_id = $2 AND notification_type = 'reminder'`,
		instanceID, recipientUserID,
	).Scan(&at)
	if err != nil {
		return nil, err
	}
	return at, nil
}

// PurgeNotifications removes terminal notifications older than the cutoff.
// A failed notification is terminal once its retries are exhausted.
func (q *Queries) PurgeNotifications(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := q.Pool.Exec(ctx,
		`DELETE FROM notifications
		WHERE created_at < $1
		  AND (status = 'sent' OR (status = 'failed' AND retry_count >= 3))`,
		olderThan,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func collectNotifications(rows pgx.Rows) ([]model.Notification, error) {
	notifications := make([]model.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
