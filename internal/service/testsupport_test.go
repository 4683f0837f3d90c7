package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/model"
)

// memStore is an in-memory implementation of the store interfaces with the
// same compare-and-set semantics as the SQL layer, so the services can be
// exercised without a database.
type memStore struct {
	mu            sync.Mutex
	workflows     []model.WorkflowDefinition
	instances     map[string]*model.ApprovalInstance
	instanceOrder []string
	records       []*model.ApprovalRecord
	escalations   []model.EscalationRecord
	delegations   []model.DelegationRecord
	notifications []*model.Notification
	documents     map[string]*model.Document
	roleMembers   map[string][]string
}

func newMemStore() *memStore {
	return &memStore{
		instances:   make(map[string]*model.ApprovalInstance),
		documents:   make(map[string]*model.Document),
		roleMembers: make(map[string][]string),
	}
}

// WorkflowStore

func (m *memStore) CreateWorkflow(ctx context.Context, def model.WorkflowDefinition) (model.WorkflowDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	def.CreatedAt = time.Now()
	def.UpdatedAt = def.CreatedAt
	m.workflows = append(m.workflows, def)
	return def, nil
}

func (m *memStore) UpdateWorkflow(ctx context.Context, def model.WorkflowDefinition) (model.WorkflowDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.workflows {
		if m.workflows[i].ID == def.ID {
			def.CreatedAt = m.workflows[i].CreatedAt
			def.UpdatedAt = time.Now()
			m.workflows[i] = def
			return def, nil
		}
	}
	return def, model.ErrNotFound
}

func (m *memStore) GetWorkflowByID(ctx context.Context, id string) (model.WorkflowDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, def := range m.workflows {
		if def.ID == id {
			return def, nil
		}
	}
	return model.WorkflowDefinition{}, model.ErrNotFound
}

func (m *memStore) ListWorkflows(ctx context.Context) ([]model.WorkflowDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.WorkflowDefinition(nil), m.workflows...), nil
}

func (m *memStore) ListActiveWorkflows(ctx context.Context) ([]model.WorkflowDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := make([]model.WorkflowDefinition, 0)
	for _, def := range m.workflows {
		if def.IsActive {
			active = append(active, def)
		}
	}
	return active, nil
}

func (m *memStore) CountInstancesByWorkflow(ctx context.Context, workflowID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, inst := range m.instances {
		if inst.WorkflowID == workflowID {
			count++
		}
	}
	return count, nil
}

// InstanceStore

func (m *memStore) CreateInstance(ctx context.Context, inst model.ApprovalInstance) (model.ApprovalInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := inst
	m.instances[inst.ID] = &stored
	m.instanceOrder = append(m.instanceOrder, inst.ID)
	return inst, nil
}

func (m *memStore) GetInstanceByID(ctx context.Context, id string) (model.ApprovalInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok {
		return model.ApprovalInstance{}, model.ErrNotFound
	}
	return *inst, nil
}

func (m *memStore) ListInstancesByStatus(ctx context.Context, status model.InstanceStatus) ([]model.ApprovalInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ApprovalInstance, 0)
	for _, id := range m.instanceOrder {
		if inst := m.instances[id]; inst.Status == status {
			out = append(out, *inst)
		}
	}
	return out, nil
}

func (m *memStore) ListInstancesByDocument(ctx context.Context, documentID string) ([]model.ApprovalInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ApprovalInstance, 0)
	for _, id := range m.instanceOrder {
		if inst := m.instances[id]; inst.DocumentID == documentID {
			out = append(out, *inst)
		}
	}
	return out, nil
}

func (m *memStore) AdvanceInstanceLevel(ctx context.Context, id string, fromLevel, toLevel int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok || inst.CurrentLevel != fromLevel || inst.Status.IsTerminal() {
		return model.ErrConflict
	}
	inst.CurrentLevel = toLevel
	return nil
}

func (m *memStore) CompleteInstance(ctx context.Context, id string, status model.InstanceStatus, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok || inst.Status.IsTerminal() {
		return model.ErrConflict
	}
	inst.Status = status
	at := completedAt
	inst.CompletedAt = &at
	return nil
}

func (m *memStore) CreateApprovalRecords(ctx context.Context, records []model.ApprovalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		stored := rec
		m.records = append(m.records, &stored)
	}
	return nil
}

func (m *memStore) GetPendingRecord(ctx context.Context, instanceID string, level int, approverUserID string) (model.ApprovalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.InstanceID == instanceID && rec.Level == level &&
			rec.ApproverUserID == approverUserID && rec.Status == model.RecordPending {
			return *rec, nil
		}
	}
	return model.ApprovalRecord{}, model.ErrNotFound
}

func (m *memStore) ResolveApprovalRecord(ctx context.Context, recordID string, status model.RecordStatus, comments string, actedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.ID == recordID {
			if rec.Status != model.RecordPending {
				return model.ErrConflict
			}
			rec.Status = status
			rec.Comments = comments
			at := actedAt
			rec.ActedAt = &at
			return nil
		}
	}
	return model.ErrConflict
}

func (m *memStore) ReassignApprovalRecord(ctx context.Context, recordID, toUserID, fromUserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.ID == recordID {
			if rec.Status != model.RecordPending {
				return model.ErrConflict
			}
			rec.ApproverUserID = toUserID
			from := fromUserID
			rec.OriginalApproverUserID = &from
			return nil
		}
	}
	return model.ErrConflict
}

func (m *memStore) CountApprovedAtLevel(ctx context.Context, instanceID string, level int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, rec := range m.records {
		if rec.InstanceID == instanceID && rec.Level == level && rec.Status == model.RecordApproved {
			count++
		}
	}
	return count, nil
}

func (m *memStore) ListPendingRecordsAtLevel(ctx context.Context, instanceID string, level int) ([]model.ApprovalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ApprovalRecord, 0)
	for _, rec := range m.records {
		if rec.InstanceID == instanceID && rec.Level == level && rec.Status == model.RecordPending {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *memStore) ListRecordsByInstance(ctx context.Context, instanceID string) ([]model.ApprovalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ApprovalRecord, 0)
	for _, rec := range m.records {
		if rec.InstanceID == instanceID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *memStore) ListPendingRecordsByApprover(ctx context.Context, approverUserID string) ([]model.ApprovalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ApprovalRecord, 0)
	for _, rec := range m.records {
		if rec.ApproverUserID != approverUserID || rec.Status != model.RecordPending {
			continue
		}
		inst, ok := m.instances[rec.InstanceID]
		if !ok || inst.Status.IsTerminal() || inst.CurrentLevel != rec.Level {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (m *memStore) MarkLevelRecordsEscalated(ctx context.Context, instanceID string, level int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.InstanceID == instanceID && rec.Level == level && rec.Status == model.RecordPending {
			rec.Status = model.RecordEscalated
		}
	}
	return nil
}

func (m *memStore) CreateEscalationRecord(ctx context.Context, rec model.EscalationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.escalations = append(m.escalations, rec)
	return nil
}

func (m *memStore) CreateDelegationRecord(ctx context.Context, rec model.DelegationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delegations = append(m.delegations, rec)
	return nil
}

func (m *memStore) ListEscalationsByInstance(ctx context.Context, instanceID string) ([]model.EscalationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.EscalationRecord, 0)
	for _, rec := range m.escalations {
		if rec.InstanceID == instanceID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memStore) ListDelegationsByInstance(ctx context.Context, instanceID string) ([]model.DelegationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.DelegationRecord, 0)
	for _, rec := range m.delegations {
		if rec.InstanceID == instanceID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// NotificationStore

func (m *memStore) CreateNotification(ctx context.Context, n model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := n
	m.notifications = append(m.notifications, &stored)
	return nil
}

func (m *memStore) ListDispatchable(ctx context.Context, now time.Time, limit int) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Notification, 0)
	for _, n := range m.notifications {
		if n.Status == model.NotificationPending && !n.ScheduledAt.After(now) && n.RetryCount < 3 {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) MarkNotificationSent(ctx context.Context, id string, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == id {
			if n.Status != model.NotificationPending {
				return model.ErrConflict
			}
			n.Status = model.NotificationSent
			at := sentAt
			n.SentAt = &at
			n.ErrorMessage = nil
			return nil
		}
	}
	return model.ErrConflict
}

func (m *memStore) MarkNotificationFailed(ctx context.Context, id string, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == id {
			if n.Status != model.NotificationPending {
				return model.ErrConflict
			}
			n.Status = model.NotificationFailed
			msg := errMsg
			n.ErrorMessage = &msg
			n.RetryCount++
			return nil
		}
	}
	return model.ErrConflict
}

func (m *memStore) ListRetryable(ctx context.Context) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Notification, 0)
	for _, n := range m.notifications {
		if n.Status == model.NotificationFailed && n.RetryCount < 3 {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *memStore) RescheduleNotification(ctx context.Context, id string, scheduledAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == id {
			if n.Status != model.NotificationFailed || n.RetryCount >= 3 {
				return model.ErrConflict
			}
			n.Status = model.NotificationPending
			n.ScheduledAt = scheduledAt
			return nil
		}
	}
	return model.ErrConflict
}

func (m *memStore) LastReminderAt(ctx context.Context, instanceID, recipientUserID string) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last *time.Time
	for _, n := range m.notifications {
		if n.InstanceID != instanceID || n.RecipientUserID != recipientUserID ||
			n.NotificationType != model.NotifyReminder {
			continue
		}
		if last == nil || n.ScheduledAt.After(*last) {
			at := n.ScheduledAt
			last = &at
		}
	}
	return last, nil
}

func (m *memStore) PurgeNotifications(ctx context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.notifications[:0]
	var purged int64
	for _, n := range m.notifications {
		terminal := n.Status == model.NotificationSent ||
			(n.Status == model.NotificationFailed && n.RetryCount >= 3)
		if terminal && n.CreatedAt.Before(olderThan) {
			purged++
			continue
		}
		kept = append(kept, n)
	}
	m.notifications = kept
	return purged, nil
}

// DocumentStore

func (m *memStore) GetDocument(ctx context.Context, id string) (model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return model.Document{}, model.ErrNotFound
	}
	return *doc, nil
}

func (m *memStore) SetDocumentStatus(ctx context.Context, id string, status model.DocumentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return model.ErrNotFound
	}
	doc.Status = status
	return nil
}

// ApproverResolver

func (m *memStore) ResolveApprovers(ctx context.Context, selector model.ApproverSelector) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	users := make([]string, 0)
	for _, id := range selector.UserIDs {
		if !seen[id] {
			seen[id] = true
			users = append(users, id)
		}
	}
	for _, role := range selector.Roles {
		for _, id := range m.roleMembers[role] {
			if !seen[id] {
				seen[id] = true
				users = append(users, id)
			}
		}
	}
	return users, nil
}

// test helpers

func (m *memStore) addDocument(doc model.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := doc
	m.documents[doc.ID] = &stored
}

func (m *memStore) notificationsOfType(typ model.NotificationType) []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Notification, 0)
	for _, n := range m.notifications {
		if n.NotificationType == typ {
			out = append(out, *n)
		}
	}
	return out
}

// nudgeRecorder records dispatcher nudges.
type nudgeRecorder struct {
	urgencies []model.Urgency
}

func (r *nudgeRecorder) EnqueueDispatch(urgency model.Urgency) error {
	r.urgencies = append(r.urgencies, urgency)
	return nil
}
