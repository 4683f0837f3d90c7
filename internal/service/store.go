package service

import (
	"context"
	"time"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/model"
)

// WorkflowStore persists workflow definitions.
type WorkflowStore interface {
	CreateWorkflow(ctx context.Context, def model.WorkflowDefinition) (model.WorkflowDefinition, error)
	UpdateWorkflow(ctx context.Context, def model.WorkflowDefinition) (model.WorkflowDefinition, error)
	GetWorkflowByID(ctx context.Context, id string) (model.WorkflowDefinition, error)
	ListWorkflows(ctx context.Context) ([]model.WorkflowDefinition, error)
	ListActiveWorkflows(ctx context.Context) ([]model.WorkflowDefinition, error)
	CountInstancesByWorkflow(ctx context.Context, workflowID string) (int, error)
}

// InstanceStore persists approval instances and their child records.
// Level/status mutations are compare-and-set: they match the expected
// current value in the WHERE clause and report a conflict when no row
// was updated, so a concurrent approval and escalation tick cannot both
// advance the same instance.
type InstanceStore interface {
	CreateInstance(ctx context.Context, inst model.ApprovalInstance) (model.ApprovalInstance, error)
	GetInstanceByID(ctx context.Context, id string) (model.ApprovalInstance, error)
	ListInstancesByStatus(ctx context.Context, status model.InstanceStatus) ([]model.ApprovalInstance, error)
	ListInstancesByDocument(ctx context.Context, documentID string) ([]model.ApprovalInstance, error)
	AdvanceInstanceLevel(ctx context.Context, id string, fromLevel, toLevel int) error
	CompleteInstance(ctx context.Context, id string, status model.InstanceStatus, completedAt time.Time) error

	CreateApprovalRecords(ctx context.Context, records []model.ApprovalRecord) error
	GetPendingRecord(ctx context.Context, instanceID string, level int, approverUserID string) (model.ApprovalRecord, error)
	ResolveApprovalRecord(ctx context.Context, recordID string, status model.RecordStatus, comments string, actedAt time.Time) error
	ReassignApprovalRecord(ctx context.Context, recordID, toUserID, fromUserID string) error
	CountApprovedAtLevel(ctx context.Context, instanceID string, level int) (int, error)
	ListPendingRecordsAtLevel(ctx context.Context, instanceID string, level int) ([]model.ApprovalRecord, error)
	ListRecordsByInstance(ctx context.Context, instanceID string) ([]model.ApprovalRecord, error)
	ListPendingRecordsByApprover(ctx context.Context, approverUserID string) ([]model.ApprovalRecord, error)
	MarkLevelRecordsEscalated(ctx context.Context, instanceID string, level int) error

	CreateEscalationRecord(ctx context.Context, rec model.EscalationRecord) error
	CreateDelegationRecord(ctx context.Context, rec model.DelegationRecord) error
	ListEscalationsByInstance(ctx context.Context, instanceID string) ([]model.EscalationRecord, error)
	ListDelegationsByInstance(ctx context.Context, instanceID string) ([]model.DelegationRecord, error)
}

// NotificationStore persists the outbound notification queue.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n model.Notification) error
	ListDispatchable(ctx context.Context, now time.Time, limit int) ([]model.Notification, error)
	MarkNotificationSent(ctx context.Context, id string, sentAt time.Time) error
	MarkNotificationFailed(ctx context.Context, id string, errMsg string) error
	ListRetryable(ctx context.Context) ([]model.Notification, error)
	RescheduleNotification(ctx context.Context, id string, scheduledAt time.Time) error
	LastReminderAt(ctx context.Context, instanceID, recipientUserID string) (*time.Time, error)
	PurgeNotifications(ctx context.Context, olderThan time.Time) (int64, error)
}

// DocumentStore is the external collaborator owning document identity/status.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (model.Document, error)
	SetDocumentStatus(ctx context.Context, id string, status model.DocumentStatus) error
}

// ApproverResolver expands an approver selector into concrete user IDs.
type ApproverResolver interface {
	ResolveApprovers(ctx context.Context, selector model.ApproverSelector) ([]string, error)
}

// JobClient nudges the background dispatcher after notifications are enqueued
// so urgent instances are not left waiting for the next scheduler tick.
type JobClient interface {
	EnqueueDispatch(urgency model.Urgency) error
}
