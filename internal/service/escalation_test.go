package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/model"
)

func newEscalationFixture(t *testing.T) (*fixture, *EscalationService, time.Time) {
	t.Helper()
	f := newFixture(t)
	esc := NewEscalationService(f.store, f.store, f.workflows, f.approvals, zap.NewNop())
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	f.approvals.now = func() time.Time { return base }
	return f, esc, base
}

func timeoutWorkflowInput(autoApprove bool) WorkflowInput {
	input := twoLevelInput()
	input.Levels[0].TimeoutHours = intPtr(24)
	input.EscalationRules = []model.EscalationRule{
		{FromLevel: 1, ToLevel: 2, TriggerAfterHours: 24, AutoApprove: autoApprove, NotifyUsers: []string{"manager"}},
	}
	return input
}

func TestCheckTimeouts_EscalatesAfterDeadline(t *testing.T) {
	f, esc, base := newEscalationFixture(t)
	f.createWorkflow(t, timeoutWorkflowInput(false))
	f.store.addDocument(draftDoc("doc-1"))
	ctx := context.Background()

	inst, err := f.approvals.SubmitForApproval(ctx, "doc-1", "dave", model.UrgencyNormal)
	require.NoError(t, err)

	// Before the deadline nothing happens.
	require.NoError(t, esc.CheckTimeouts(ctx, base.Add(23*time.Hour)))
	got, err := f.store.GetInstanceByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentLevel)

	// Past the deadline the rule fires.
	require.NoError(t, esc.CheckTimeouts(ctx, base.Add(25*time.Hour)))
	got, err = f.store.GetInstanceByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentLevel)
	assert.Equal(t, model.InstanceInProgress, got.Status)

	escalations, err := f.store.ListEscalationsByInstance(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, escalations, 1)

	// The configured watchers are notified.
	notified := f.store.notificationsOfType(model.NotifyEscalated)
	require.NotEmpty(t, notified)
	assert.Equal(t, "manager", notified[0].RecipientUserID)
}

func TestCheckTimeouts_AutoApprove(t *testing.T) {
	f, esc, base := newEscalationFixture(t)
	f.createWorkflow(t, timeoutWorkflowInput(true))
	f.store.addDocument(draftDoc("doc-1"))
	ctx := context.Background()

	inst, err := f.approvals.SubmitForApproval(ctx, "doc-1", "dave", model.UrgencyNormal)
	require.NoError(t, err)

	require.NoError(t, esc.CheckTimeouts(ctx, base.Add(25*time.Hour)))

	got, err := f.store.GetInstanceByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InstanceApproved, got.Status)

	doc, err := f.store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, model.DocumentApproved, doc.Status)

	completed := f.store.notificationsOfType(model.NotifyCompleted)
	require.NotEmpty(t, completed)
	assert.Equal(t, "dave", completed[0].RecipientUserID)
}

func TestCheckTimeouts_NoRuleNoAction(t *testing.T) {
	f, esc, base := newEscalationFixture(t)
	input := twoLevelInput()
	input.Levels[0].TimeoutHours = intPtr(24)
	f.createWorkflow(t, input)
	f.store.addDocument(draftDoc("doc-1"))
	ctx := context.Background()

	inst, err := f.approvals.SubmitForApproval(ctx, "doc-1", "dave", model.UrgencyNormal)
	require.NoError(t, err)

	require.NoError(t, esc.CheckTimeouts(ctx, base.Add(48*time.Hour)))

	got, err := f.store.GetInstanceByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentLevel)
	assert.Equal(t, model.InstanceInProgress, got.Status)

	escalations, err := f.store.ListEscalationsByInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Empty(t, escalations)
}

func TestCheckTimeouts_NoTimeoutConfigured(t *testing.T) {
	f, esc, base := newEscalationFixture(t)
	f.createWorkflow(t, twoLevelInput())
	f.store.addDocument(draftDoc("doc-1"))
	ctx := context.Background()

	inst, err := f.approvals.SubmitForApproval(ctx, "doc-1", "dave", model.UrgencyNormal)
	require.NoError(t, err)

	require.NoError(t, esc.CheckTimeouts(ctx, base.Add(1000*time.Hour)))

	got, err := f.store.GetInstanceByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentLevel)
}

func TestCheckTimeouts_RuleTriggerBeyondTimeoutIgnored(t *testing.T) {
	f, esc, base := newEscalationFixture(t)
	input := twoLevelInput()
	input.Levels[0].TimeoutHours = intPtr(24)
	input.EscalationRules = []model.EscalationRule{
		{FromLevel: 1, ToLevel: 2, TriggerAfterHours: 48},
	}
	f.createWorkflow(t, input)
	f.store.addDocument(draftDoc("doc-1"))
	ctx := context.Background()

	inst, err := f.approvals.SubmitForApproval(ctx, "doc-1", "dave", model.UrgencyNormal)
	require.NoError(t, err)

	require.NoError(t, esc.CheckTimeouts(ctx, base.Add(25*time.Hour)))

	got, err := f.store.GetInstanceByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentLevel)
}

func TestSendReminders_OncePerBoundary(t *testing.T) {
	f, esc, base := newEscalationFixture(t)
	f.createWorkflow(t, twoLevelInput())
	f.store.addDocument(draftDoc("doc-1"))
	ctx := context.Background()

	_, err := f.approvals.SubmitForApproval(ctx, "doc-1", "dave", model.UrgencyNormal)
	require.NoError(t, err)

	// Under a day in: no reminder yet.
	require.NoError(t, esc.SendReminders(ctx, base.Add(12*time.Hour)))
	assert.Empty(t, f.store.notificationsOfType(model.NotifyReminder))

	// Past the first boundary: one reminder per channel for alice.
	require.NoError(t, esc.SendReminders(ctx, base.Add(25*time.Hour)))
	first := f.store.notificationsOfType(model.NotifyReminder)
	require.NotEmpty(t, first)
	for _, n := range first {
		assert.Equal(t, "alice", n.RecipientUserID)
	}

	// A second tick within the same boundary is a no-op.
	require.NoError(t, esc.SendReminders(ctx, base.Add(26*time.Hour)))
	assert.Len(t, f.store.notificationsOfType(model.NotifyReminder), len(first))

	// The next boundary produces a fresh batch.
	require.NoError(t, esc.SendReminders(ctx, base.Add(49*time.Hour)))
	assert.Len(t, f.store.notificationsOfType(model.NotifyReminder), 2*len(first))
}

func TestSendReminders_SkipsResolvedApprovers(t *testing.T) {
	f, esc, base := newEscalationFixture(t)
	input := twoLevelInput()
	input.Levels[0].ApproverSelector = model.ApproverSelector{UserIDs: []string{"alice", "bob"}}
	input.Levels[0].RequiredApprovals = 2
	f.createWorkflow(t, input)
	f.store.addDocument(draftDoc("doc-1"))
	ctx := context.Background()

	inst, err := f.approvals.SubmitForApproval(ctx, "doc-1", "dave", model.UrgencyNormal)
	require.NoError(t, err)
	_, err = f.approvals.ProcessApproval(ctx, inst.ID, 1, "alice", model.ActionApprove, "")
	require.NoError(t, err)

	require.NoError(t, esc.SendReminders(ctx, base.Add(25*time.Hour)))
	for _, n := range f.store.notificationsOfType(model.NotifyReminder) {
		assert.Equal(t, "bob", n.RecipientUserID)
	}
}

func TestReminderBoundary(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, reminderBoundary(start, start))
	assert.Equal(t, 0, reminderBoundary(start, start.Add(23*time.Hour)))
	assert.Equal(t, 1, reminderBoundary(start, start.Add(24*time.Hour)))
	assert.Equal(t, 1, reminderBoundary(start, start.Add(47*time.Hour)))
	assert.Equal(t, 2, reminderBoundary(start, start.Add(48*time.Hour)))
	assert.Equal(t, 0, reminderBoundary(start, start.Add(-time.Hour)))
}
