package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/model"
)

// Queries wraps database queries
type Queries struct {
	*pgxpool.Pool
}

// NewQueries creates a new Queries instance
func NewQueries(pool *pgxpool.Pool) *Queries {
	return &Queries{Pool: pool}
}

func mapRowErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

// Instance queries

const instanceColumns = `id, document_id, workflow_id, current_level, status, urgency, submitted_by, started_at, completed_at`

func scanInstance(row pgx.Row) (model.ApprovalInstance, error) {
	var inst model.ApprovalInstance
	err := row.Scan(
		&inst.ID, &inst.DocumentID, &inst.WorkflowID, &inst.CurrentLevel,
		&inst.Status, &inst.Urgency, &inst.SubmittedBy, &inst.StartedAt, &inst.CompletedAt,
	)
	return inst, mapRowErr(err)
}

func (q *Queries) CreateInstance(ctx context.Context, inst model.ApprovalInstance) (model.ApprovalInstance, error) {
	row := q.Pool.QueryRow(ctx,
		`INSERT INTO approval_instances (id, document_id, workflow_id, current_level, status, urgency, submitted_by, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+instanceColumns,
		inst.ID, inst.DocumentID, inst.WorkflowID, inst.CurrentLevel, inst.Status, inst.Urgency, inst.SubmittedBy, inst.StartedAt,
	)
	return scanInstance(row)
}

func (q *Queries) GetInstanceByID(ctx context.Context, id string) (model.ApprovalInstance, error) {
	row := q.Pool.QueryRow(ctx,
		`SELECT `+instanceColumns+` FROM approval_instances WHERE id = $1`, id)
	return scanInstance(row)
}

func (q *Queries) ListInstancesByStatus(ctx context.Context, status model.InstanceStatus) ([]model.ApprovalInstance, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT `+instanceColumns+` FROM approval_instances WHERE status = $1 ORDER BY started_at ASC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInstances(rows)
}

func (q *Queries) ListInstancesByDocument(ctx context.Context, documentID string) ([]model.ApprovalInstance, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT `+instanceColumns+` FROM approval_instances WHERE document_id = $1 ORDER BY started_at ASC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInstances(rows)
}

func collectInstances(rows pgx.Rows) ([]model.ApprovalInstance, error) {
	instances := make([]model.ApprovalInstance, 0)
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

// AdvanceInstanceLevel moves an in-progress instance to a new level only if
// it is still at the expected one. Zero rows affected means a concurrent
// mutation won and the caller must re-read.
func (q *Queries) AdvanceInstanceLevel(ctx context.Context, id string, fromLevel, toLevel int) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE approval_instances SET current_level = $3
		WHERE id = $1 AND current_level = $2 AND status IN ('pending', 'in_progress')`,
		id, fromLevel, toLevel,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return model.ErrConflict
	}
	return nil
}

// CompleteInstance transitions a non-terminal instance to a terminal status.
func (q *Queries) CompleteInstance(ctx context.Context, id string, status model.InstanceStatus, completedAt time.Time) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE approval_instances SET status = $2, completed_at = $3
		WHERE id = $1 AND status IN ('pending', 'in_progress', 'escalated')`,
		id, status, completedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return model.ErrConflict
	}
	return nil
}

// Approval record queries

const recordColumns = `id, instance_id, level, approver_user_id, original_approver_user_id, status, comments, created_at, acted_at`

func scanRecord(row pgx.Row) (model.ApprovalRecord, error) {
	var rec model.ApprovalRecord
	err := row.Scan(
		&rec.ID, &rec.InstanceID, &rec.Level, &rec.ApproverUserID,
		&rec.OriginalApproverUserID, &rec.Status, &rec.Comments, &rec.CreatedAt, &rec.ActedAt,
	)
	return rec, mapRowErr(err)
}

func (q *Queries) CreateApprovalRecords(ctx context.Context, records []model.ApprovalRecord) error {
	for _, rec := range records {
		_, err := q.Pool.Exec(ctx,
			`INSERT INTO approval_records (id, instance_id, level, approver_user_id, original_approver_user_id, status, comments, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rec.ID, rec.InstanceID, rec.Level, rec.ApproverUserID, rec.OriginalApproverUserID, rec.Status, rec.Comments, rec.CreatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (q *Queries) GetPendingRecord(ctx context.Context, instanceID string, level int, approverUserID string) (model.ApprovalRecord, error) {
	row := q.Pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM approval_records
		WHERE instance_id = $1 AND level = $2 AND approver_user_id = $3 AND status = 'pending'`,
		instanceID, level, approverUserID,
	)
	return scanRecord(row)
}

// ResolveApprovalRecord marks a pending record approved or rejected. A record
// already resolved by a concurrent call matches no row.
func (q *Queries) ResolveApprovalRecord(ctx context.Context, recordID string, status model.RecordStatus, comments string, actedAt time.Time) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE approval_records SET status = $2, comments = $3, acted_at = $4
		WHERE id = $1 AND status = 'pending'`,
		recordID, status, comments, actedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return model.ErrConflict
	}
	return nil
}

// ReassignApprovalRecord rewrites a pending record's approver, keeping the
// original approver for the audit trail. The record stays pending.
func (q *Queries) ReassignApprovalRecord(ctx context.Context, recordID, toUserID, fromUserID string) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE approval_records SET approver_user_id = $2, original_approver_user_id = $3
		WHERE id = $1 AND status = 'pending'`,
		recordID, toUserID, fromUserID,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return model.ErrConflict
	}
	return nil
}

func (q *Queries) CountApprovedAtLevel(ctx context.Context, instanceID string, level int) (int, error) {
	var count int
	err := q.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM approval_records
		WHERE instance_id = $1 AND level = $2 AND status = 'approved'`,
		instanceID, level,
	).Scan(&count)
	return count, err
}

func (q *Queries) ListPendingRecordsAtLevel(ctx context.Context, instanceID string, level int) ([]model.ApprovalRecord, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT `+recordColumns+` FROM approval_records
		WHERE instance_id = $1 AND level = $2 AND status = 'pending' ORDER BY created_at ASC`,
		instanceID, level,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (q *Queries) ListRecordsByInstance(ctx context.Context, instanceID string) ([]model.ApprovalRecord, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT `+recordColumns+` FROM approval_records
		WHERE instance_id = $1 ORDER BY created_at ASC`,
		instanceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListPendingRecordsByApprover returns an approver's open obligations across
// instances that are still live.
func (q *Queries) ListPendingRecordsByApprover(ctx context.Context, approverUserID string) ([]model.ApprovalRecord, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT r.id, r.instance_id, r.level, r.approver_user_id, r.original_approver_user_id, r.status, r.comments, r.created_at, r.acted_at
		FROM approval_records r
		JOIN approval_instances i ON i.id = r.instance_id
		WHERE r.approver_user_id = $1 AND r.status = 'pending'
		  AND i.status IN ('pending', 'in_progress') AND r.level = i.current_level
		ORDER BY r.created_at ASC`,
		approverUserID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (q *Queries) MarkLevelRecordsEscalated(ctx context.Context, instanceID string, level int) error {
	_, err := q.Pool.Exec(ctx,
		`UPDATE approval_records SET status = 'escalated'
		WHERE instance_id = $1 AND level = $2 AND status = 'pending'`,
		instanceID, level,
	)
	return err
}

func collectRecords(rows pgx.Rows) ([]model.ApprovalRecord, error) {
	records := make([]model.ApprovalRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Audit rows

func (q *Queries) CreateEscalationRecord(ctx context.Context, rec model.EscalationRecord) error {
	_, err := q.Pool.Exec(ctx,
		`INSERT INTO escalation_records (id, instance_id, from_level, to_level, reason, escalated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.InstanceID, rec.FromLevel, rec.ToLevel, rec.Reason, rec.EscalatedAt,
	)
	return err
}

func (q *Queries) CreateDelegationRecord(ctx context.Context, rec model.DelegationRecord) error {
	_, err := q.Pool.Exec(ctx,
		`INSERT INTO delegation_records (id, instance_id, level, from_user_id, to_user_id, reason, delegated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.InstanceID, rec.Level, rec.FromUserID, rec.ToUserID, rec.Reason, rec.DelegatedAt,
	)
	return err
}

func (q *Queries) ListEscalationsByInstance(ctx context.Context, instanceID string) ([]model.EscalationRecord, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT id, instance_id, from_level, to_level, reason, escalated_at
		FROM escalation_records WHERE instance_id = $1 ORDER BY escalated_at ASC`,
		instanceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]model.EscalationRecord, 0)
	for rows.Next() {
		var rec model.EscalationRecord
		if err := rows.Scan(&rec.ID, &rec.InstanceID, &rec.FromLevel, &rec.ToLevel, &rec.Reason, &rec.EscalatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (q *Queries) ListDelegationsByInstance(ctx context.Context, instanceID string) ([]model.DelegationRecord, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT id, instance_id, level, from_user_id, to_user_id, reason, delegated_at
		FROM delegation_records WHERE instance_id = $1 ORDER BY delegated_at ASC`,
		instanceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]model.DelegationRecord, 0)
	for rows.Next() {
		var rec model.DelegationRecord
		if err := rows.Scan(&rec.ID, &rec.InstanceID, &rec.Level, &rec.FromUserID, &rec.ToUserID, &rec.Reason, &rec.DelegatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
