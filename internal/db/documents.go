package db

import (
	"context"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/model"
)

// The repair system's document service and user directory share the
// relational store, so the engine's collaborator interfaces are backed by
// plain queries here. Deployments with a separate document service swap
// these for client implementations.

func (q *Queries) GetDocument(ctx context.Context, id string) (model.Document, error) {
	var doc model.Document
	err := q.Pool.QueryRow(ctx,
		`SELECT id, document_type_id, status, meta FROM documents WHERE id = $1`, id,
	).Scan(&doc.ID, &doc.DocumentTypeID, &doc.Status, &doc.Meta)
	return doc, mapRowErr(err)
}

func (q *Queries) SetDocumentStatus(ctx context.Context, id string, status model.DocumentStatus) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE documents SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ResolveApprovers expands a selector into distinct user IDs: the explicit
// IDs plus every user holding one of the named roles.
func (q *Queries) ResolveApprovers(ctx context.Context, selector model.ApproverSelector) ([]string, error) {
	seen := make(map[string]bool)
	users := make([]string, 0, len(selector.UserIDs))
	for _, id := range selector.UserIDs {
		if !seen[id] {
			seen[id] = true
			users = append(users, id)
		}
	}

	if len(selector.Roles) == 0 {
		return users, nil
	}

	rows, err := q.Pool.Query(ctx,
		`SELECT DISTINCT user_id FROM user_roles WHERE role = ANY($1) ORDER BY user_id`,
		selector.Roles,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			users = append(users, id)
		}
	}
	return users, rows.Err()
}
