package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/model"
)

const workflowColumns = `id, name, document_type_ids, levels, escalation_rules, delegation_rules, notification_policy, is_active, created_at, updated_at`

func scanWorkflow(row pgx.Row) (model.WorkflowDefinition, error) {
	var def model.WorkflowDefinition
	err := row.Scan(
		&def.ID, &def.Name, &def.DocumentTypeIDs, &def.Levels,
		&def.EscalationRules, &def.DelegationRules, &def.NotificationPolicy,
		&def.IsActive, &def.CreatedAt, &def.UpdatedAt,
	)
	return def, mapRowErr(err)
}

func (q *Queries) CreateWorkflow(ctx context.Context, def model.WorkflowDefinition) (model.WorkflowDefinition, error) {
	row := q.Pool.QueryRow(ctx,
		`INSERT INTO approval_workflows (id, name, document_type_ids, levels, escalation_rules, delegation_rules, notification_policy, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+workflowColumns,
		def.ID, def.Name, def.DocumentTypeIDs, def.Levels, def.EscalationRules, def.DelegationRules, def.NotificationPolicy, def.IsActive,
	)
	return scanWorkflow(row)
}

func (q *Queries) UpdateWorkflow(ctx context.Context, def model.WorkflowDefinition) (model.WorkflowDefinition, error) {
	row := q.Pool.QueryRow(ctx,
		`UPDATE approval_workflows
		SET name = $2, document_type_ids = $3, levels = $4, escalation_rules = $5,
			delegation_rules = $6, notification_policy = $7, is_active = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING `+workflowColumns,
		def.ID, def.Name, def.DocumentTypeIDs, def.Levels, def.EscalationRules, def.DelegationRules, def.NotificationPolicy, def.IsActive,
	)
	return scanWorkflow(row)
}

func (q *Queries) GetWorkflowByID(ctx context.Context, id string) (model.WorkflowDefinition, error) {
	row := q.Pool.QueryRow(ctx,
		`SELECT `+workflowColumns+` FROM approval_workflows WHERE id = $1`, id)
	return scanWorkflow(row)
}

func (q *Queries) ListWorkflows(ctx context.Context) ([]model.WorkflowDefinition, error) {
	return q.listWorkflows(ctx, `SELECT `+workflowColumns+` FROM approval_workflows ORDER BY created_at ASC`)
}

// ListActiveWorkflows returns active definitions oldest first; the service
// picks the first whose document types match ("first active match").
func (q *Queries) ListActiveWorkflows(ctx context.Context) ([]model.WorkflowDefinition, error) {
	return q.listWorkflows(ctx, `SELECT `+workflowColumns+` FROM approval_workflows WHERE is_active ORDER BY created_at ASC`)
}

func (q *Queries) listWorkflows(ctx context.Context, query string) ([]model.WorkflowDefinition, error) {
	rows, err := q.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defs := make([]model.WorkflowDefinition, 0)
	for rows.Next() {
		def, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func (q *Queries) CountInstancesByWorkflow(ctx context.Context, workflowID string) (int, error) {
	var count int
	err := q.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM approval_instances WHERE workflow_id = $1`, workflowID,
	).Scan(&count)
	return count, err
}
