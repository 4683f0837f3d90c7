package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/model"
)

var defaultChannels = []model.Channel{model.ChannelInApp, model.ChannelEmail}

// ApprovalService is the instance state machine: it creates instances,
// applies approver actions and owns every level/status transition.
type ApprovalService struct {
	store     InstanceStore
	notifs    NotificationStore
	workflows *WorkflowService
	documents DocumentStore
	resolver  ApproverResolver
	jobClient JobClient
	log       *zap.Logger
	now       func() time.Time
}

func NewApprovalService(store InstanceStore, notifs NotificationStore, workflows *WorkflowService, documents DocumentStore, resolver ApproverResolver, log *zap.Logger) *ApprovalService {
	return &ApprovalService{
		store:     store,
		notifs:    notifs,
		workflows: workflows,
		documents: documents,
		resolver:  resolver,
		log:       log,
		now:       time.Now,
	}
}

// SetJobClient sets the client used to nudge the dispatcher after enqueues.
func (s *ApprovalService) SetJobClient(client JobClient) {
	s.jobClient = client
}

// SubmitForApproval creates an approval instance for a draft document and
// opens the first level.
func (s *ApprovalService) SubmitForApproval(ctx context.Context, documentID, submittedBy string, urgency model.Urgency) (*model.ApprovalInstance, error) {
	doc, err := s.documents.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, domainErr(KindNotFound, "document %s not found", documentID)
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if doc.Status != model.DocumentDraft {
		return nil, domainErr(KindInvalidState, "document %s is %s, only draft documents can be submitted", documentID, doc.Status)
	}

	def, err := s.workflows.ActiveWorkflowForDocumentType(ctx, doc.DocumentTypeID)
	if err != nil {
		return nil, err
	}

	if urgency == "" {
		urgency = model.UrgencyNormal
	}

	now := s.now()
	instanceID := ulid.Make().String()

	// Resolve first-level approvers before any write. A selector that
	// matches nobody must leave the document in draft with no instance.
	first := s.nextOpenLevel(def, doc, 1)
	var records []model.ApprovalRecord
	var recipients []string
	if first != 0 {
		records, recipients, err = s.buildLevelRecords(ctx, instanceID, def, *def.LevelByNumber(first), now)
		if err != nil {
			return nil, err
		}
	}

	startLevel := first
	if startLevel == 0 {
		startLevel = 1
	}
	inst, err := s.store.CreateInstance(ctx, model.ApprovalInstance{
		ID:           instanceID,
		DocumentID:   documentID,
		WorkflowID:   def.ID,
		CurrentLevel: startLevel,
		Status:       model.InstanceInProgress,
		Urgency:      urgency,
		SubmittedBy:  submittedBy,
		StartedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create instance: %w", err)
	}

	if first == 0 {
		// Every level skipped: approved outright.
		if err := s.terminate(ctx, inst, model.InstanceApproved, now); err != nil {
			return nil, err
		}
		if err := s.documents.SetDocumentStatus(ctx, documentID, model.DocumentApproved); err != nil {
			return nil, fmt.Errorf("failed to update document status: %w", err)
		}
		inst.Status = model.InstanceApproved
		inst.CompletedAt = &now
		s.enqueue(ctx, inst, def, model.NotifyCompleted, []string{inst.SubmittedBy}, nil, now)
	} else {
		if err := s.documents.SetDocumentStatus(ctx, documentID, model.DocumentSubmitted); err != nil {
			return nil, fmt.Errorf("failed to update document status: %w", err)
		}
		if err := s.store.CreateApprovalRecords(ctx, records); err != nil {
			return nil, fmt.Errorf("failed to create approval records: %w", err)
		}
		s.enqueue(ctx, inst, def, model.NotifyRequest, recipients, map[string]interface{}{
			"level": first,
		}, now)
	}

	s.log.Info("Document submitted for approval",
		zap.String("instance_id", inst.ID),
		zap.String("document_id", documentID),
		zap.String("workflow_id", def.ID),
		zap.String("urgency", string(urgency)),
	)
	s.nudgeDispatcher(inst.Urgency)
	return &inst, nil
}

// ProcessApproval applies one approver's decision to their pending record
// and advances or terminates the instance when the level resolves.
func (s *ApprovalService) ProcessApproval(ctx context.Context, instanceID string, level int, approverUserID string, action model.ApprovalAction, comments string) (*model.ApprovalInstance, error) {
	if action != model.ActionApprove && action != model.ActionReject {
		return nil, domainErr(KindValidation, "unknown action %q", action)
	}

	inst, err := s.getLiveInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if level != inst.CurrentLevel {
		return nil, domainErr(KindNoPendingApproval, "instance %s is at level %d, not %d", instanceID, inst.CurrentLevel, level)
	}

	doc, err := s.documents.GetDocument(ctx, inst.DocumentID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, domainErr(KindNotFound, "document %s not found", inst.DocumentID)
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	def, err := s.workflows.GetWorkflow(ctx, inst.WorkflowID)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.GetPendingRecord(ctx, instanceID, level, approverUserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, domainErr(KindNoPendingApproval, "no pending approval for user %s at level %d of instance %s", approverUserID, level, instanceID)
		}
		return nil, fmt.Errorf("failed to load approval record: %w", err)
	}

	now := s.now()
	recStatus := model.RecordApproved
	if action == model.ActionReject {
		recStatus = model.RecordRejected
	}
	if err := s.store.ResolveApprovalRecord(ctx, rec.ID, recStatus, comments, now); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, domainErr(KindNoPendingApproval, "approval record for user %s at level %d was already resolved", approverUserID, level)
		}
		return nil, fmt.Errorf("failed to resolve approval record: %w", err)
	}

	if action == model.ActionReject {
		if err := s.terminate(ctx, inst, model.InstanceRejected, now); err != nil {
			return nil, err
		}
		if err := s.documents.SetDocumentStatus(ctx, inst.DocumentID, model.DocumentRejected); err != nil {
			return nil, fmt.Errorf("failed to update document status: %w", err)
		}
		s.enqueue(ctx, inst, def, model.NotifyRejected, []string{inst.SubmittedBy}, map[string]interface{}{
			"approverUserId": approverUserID,
			"level":          level,
			"comments":       comments,
		}, now)
		s.log.Info("Instance rejected",
			zap.String("instance_id", instanceID),
			zap.Int("level", level),
			zap.String("approver", approverUserID),
		)
		s.nudgeDispatcher(inst.Urgency)
		return s.reload(ctx, instanceID)
	}

	levelDef := def.LevelByNumber(level)
	if levelDef == nil {
		return nil, domainErr(KindValidation, "workflow %s has no level %d", def.ID, level)
	}
	approved, err := s.store.CountApprovedAtLevel(ctx, instanceID, level)
	if err != nil {
		return nil, fmt.Errorf("failed to count approvals: %w", err)
	}
	if approved < levelDef.RequiredApprovals {
		s.log.Info("Approval recorded, level not yet satisfied",
			zap.String("instance_id", instanceID),
			zap.Int("level", level),
			zap.Int("approved", approved),
			zap.Int("required", levelDef.RequiredApprovals),
		)
		return s.reload(ctx, instanceID)
	}

	s.enqueue(ctx, inst, def, model.NotifyApproved, []string{inst.SubmittedBy}, map[string]interface{}{
		"approverUserId": approverUserID,
		"level":          level,
	}, now)

	if err := s.advance(ctx, inst, def, doc, level, now); err != nil {
		return nil, err
	}
	s.nudgeDispatcher(inst.Urgency)
	return s.reload(ctx, instanceID)
}

// DelegateApproval reassigns a pending obligation. Delegation never approves.
func (s *ApprovalService) DelegateApproval(ctx context.Context, instanceID string, level int, fromUserID, toUserID, reason string) (*model.ApprovalInstance, error) {
	if toUserID == "" || fromUserID == toUserID {
		return nil, domainErr(KindValidation, "invalid delegation target %q", toUserID)
	}

	inst, err := s.getLiveInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.GetPendingRecord(ctx, instanceID, level, fromUserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, domainErr(KindNoPendingApproval, "no pending approval for user %s at level %d of instance %s", fromUserID, level, instanceID)
		}
		return nil, fmt.Errorf("failed to load approval record: %w", err)
	}

	if err := s.store.ReassignApprovalRecord(ctx, rec.ID, toUserID, fromUserID); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, domainErr(KindNoPendingApproval, "approval record for user %s at level %d was already resolved", fromUserID, level)
		}
		return nil, fmt.Errorf("failed to reassign approval record: %w", err)
	}

	now := s.now()
	if err := s.store.CreateDelegationRecord(ctx, model.DelegationRecord{
		ID:          ulid.Make().String(),
		InstanceID:  instanceID,
		Level:       level,
		FromUserID:  fromUserID,
		ToUserID:    toUserID,
		Reason:      reason,
		DelegatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("failed to record delegation: %w", err)
	}

	def, err := s.workflows.GetWorkflow(ctx, inst.WorkflowID)
	if err != nil {
		return nil, err
	}
	s.enqueue(ctx, inst, def, model.NotifyDelegated, []string{toUserID}, map[string]interface{}{
		"fromUserId": fromUserID,
		"level":      level,
		"reason":     reason,
	}, now)

	s.log.Info("Approval delegated",
		zap.String("instance_id", instanceID),
		zap.Int("level", level),
		zap.String("from", fromUserID),
		zap.String("to", toUserID),
	)
	s.nudgeDispatcher(inst.Urgency)
	return s.reload(ctx, instanceID)
}

// CancelApproval terminates an in-flight instance and returns the document
// to draft so it can be fixed up and resubmitted.
func (s *ApprovalService) CancelApproval(ctx context.Context, instanceID, cancelledBy, reason string) (*model.ApprovalInstance, error) {
	inst, err := s.getLiveInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.terminate(ctx, inst, model.InstanceCancelled, now); err != nil {
		return nil, err
	}
	if err := s.documents.SetDocumentStatus(ctx, inst.DocumentID, model.DocumentDraft); err != nil {
		return nil, fmt.Errorf("failed to update document status: %w", err)
	}

	s.log.Info("Instance cancelled",
		zap.String("instance_id", instanceID),
		zap.String("cancelled_by", cancelledBy),
		zap.String("reason", reason),
	)
	return s.reload(ctx, instanceID)
}

// Escalate applies an escalation rule to an instance: the auto-approval or
// level change first, then the audit row and record bookkeeping for the
// abandoned level. Called by the evaluator on timeout and by the manual
// escalation operation.
func (s *ApprovalService) Escalate(ctx context.Context, inst model.ApprovalInstance, def *model.WorkflowDefinition, rule model.EscalationRule, reason string, now time.Time) error {
	fromLevel := inst.CurrentLevel
	data := map[string]interface{}{
		"fromLevel": fromLevel,
		"toLevel":   rule.ToLevel,
		"reason":    reason,
	}

	// The state transition goes first. A lost race against a concurrent
	// approval must not leave audit rows for an escalation that never
	// happened.
	if rule.AutoApprove {
		if err := s.terminate(ctx, inst, model.InstanceApproved, now); err != nil {
			return err
		}
	} else {
		levelDef := def.LevelByNumber(rule.ToLevel)
		if levelDef == nil {
			return domainErr(KindValidation, "workflow %s has no level %d", def.ID, rule.ToLevel)
		}
		if err := s.store.AdvanceInstanceLevel(ctx, inst.ID, fromLevel, rule.ToLevel); err != nil {
			if errors.Is(err, model.ErrConflict) {
				return domainErr(KindConflict, "instance %s changed concurrently during escalation", inst.ID)
			}
			return fmt.Errorf("failed to move instance to escalation level: %w", err)
		}
	}

	if err := s.store.CreateEscalationRecord(ctx, model.EscalationRecord{
		ID:          ulid.Make().String(),
		InstanceID:  inst.ID,
		FromLevel:   fromLevel,
		ToLevel:     rule.ToLevel,
		Reason:      reason,
		EscalatedAt: now,
	}); err != nil {
		return fmt.Errorf("failed to record escalation: %w", err)
	}

	if err := s.store.MarkLevelRecordsEscalated(ctx, inst.ID, fromLevel); err != nil {
		return fmt.Errorf("failed to mark records escalated: %w", err)
	}

	if rule.AutoApprove {
		if err := s.documents.SetDocumentStatus(ctx, inst.DocumentID, model.DocumentApproved); err != nil {
			return fmt.Errorf("failed to update document status: %w", err)
		}
		s.enqueue(ctx, inst, def, model.NotifyEscalated, rule.NotifyUsers, data, now)
		s.enqueue(ctx, inst, def, model.NotifyCompleted, []string{inst.SubmittedBy}, nil, now)
		s.log.Info("Instance auto-approved by escalation rule",
			zap.String("instance_id", inst.ID),
			zap.Int("from_level", fromLevel),
		)
		s.nudgeDispatcher(inst.Urgency)
		return nil
	}

	inst.CurrentLevel = rule.ToLevel
	if err := s.createLevelRecords(ctx, inst, def, *def.LevelByNumber(rule.ToLevel), now); err != nil {
		return err
	}

	s.enqueue(ctx, inst, def, model.NotifyEscalated, rule.NotifyUsers, data, now)

	s.log.Info("Instance escalated",
		zap.String("instance_id", inst.ID),
		zap.Int("from_level", fromLevel),
		zap.Int("to_level", rule.ToLevel),
		zap.String("reason", reason),
	)
	s.nudgeDispatcher(inst.Urgency)
	return nil
}

// EscalateManually forces an escalation using the rule configured for the
// instance's current level without waiting for the timeout.
func (s *ApprovalService) EscalateManually(ctx context.Context, instanceID, reason string) (*model.ApprovalInstance, error) {
	inst, err := s.getLiveInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	def, err := s.workflows.GetWorkflow(ctx, inst.WorkflowID)
	if err != nil {
		return nil, err
	}
	rule := def.RuleForLevel(inst.CurrentLevel)
	if rule == nil {
		return nil, domainErr(KindInvalidState, "no escalation rule configured for level %d of workflow %s", inst.CurrentLevel, def.ID)
	}
	if reason == "" {
		reason = "manual escalation"
	}
	if err := s.Escalate(ctx, inst, def, *rule, reason, s.now()); err != nil {
		return nil, err
	}
	return s.reload(ctx, instanceID)
}

// GetPendingApprovals lists an approver's open obligations.
func (s *ApprovalService) GetPendingApprovals(ctx context.Context, approverUserID string) ([]model.ApprovalRecord, error) {
	return s.store.ListPendingRecordsByApprover(ctx, approverUserID)
}

// GetApprovalHistory returns everything recorded about a document's approvals.
func (s *ApprovalService) GetApprovalHistory(ctx context.Context, documentID string) (*model.ApprovalHistory, error) {
	instances, err := s.store.ListInstancesByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	if len(instances) == 0 {
		return nil, domainErr(KindNotFound, "no approval history for document %s", documentID)
	}

	history := &model.ApprovalHistory{Instances: instances}
	for _, inst := range instances {
		records, err := s.store.ListRecordsByInstance(ctx, inst.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list records: %w", err)
		}
		escalations, err := s.store.ListEscalationsByInstance(ctx, inst.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list escalations: %w", err)
		}
		delegations, err := s.store.ListDelegationsByInstance(ctx, inst.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list delegations: %w", err)
		}
		history.Records = append(history.Records, records...)
		history.Escalations = append(history.Escalations, escalations...)
		history.Delegations = append(history.Delegations, delegations...)
	}
	return history, nil
}

func (s *ApprovalService) GetInstance(ctx context.Context, instanceID string) (*model.ApprovalInstance, error) {
	return s.reload(ctx, instanceID)
}

// advance moves past a satisfied level: next non-skipped level or approval.
func (s *ApprovalService) advance(ctx context.Context, inst model.ApprovalInstance, def *model.WorkflowDefinition, doc model.Document, fromLevel int, now time.Time) error {
	next := s.nextOpenLevel(def, doc, fromLevel+1)
	if next == 0 {
		if err := s.terminate(ctx, inst, model.InstanceApproved, now); err != nil {
			return err
		}
		if err := s.documents.SetDocumentStatus(ctx, inst.DocumentID, model.DocumentApproved); err != nil {
			return fmt.Errorf("failed to update document status: %w", err)
		}
		s.enqueue(ctx, inst, def, model.NotifyCompleted, []string{inst.SubmittedBy}, nil, now)
		s.log.Info("Instance fully approved", zap.String("instance_id", inst.ID))
		return nil
	}

	if err := s.store.AdvanceInstanceLevel(ctx, inst.ID, fromLevel, next); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return domainErr(KindConflict, "instance %s changed concurrently while advancing", inst.ID)
		}
		return fmt.Errorf("failed to advance instance: %w", err)
	}
	inst.CurrentLevel = next

	levelDef := def.LevelByNumber(next)
	if err := s.createLevelRecords(ctx, inst, def, *levelDef, now); err != nil {
		return err
	}
	s.log.Info("Instance advanced",
		zap.String("instance_id", inst.ID),
		zap.Int("from_level", fromLevel),
		zap.Int("to_level", next),
	)
	return nil
}

// nextOpenLevel returns the first level >= start whose skip conditions do not
// match the document, or 0 when none remains.
func (s *ApprovalService) nextOpenLevel(def *model.WorkflowDefinition, doc model.Document, start int) int {
	for n := start; n <= len(def.Levels); n++ {
		level := def.LevelByNumber(n)
		if level == nil {
			continue
		}
		if levelSkipped(*level, doc) {
			s.log.Info("Level skipped by condition",
				zap.String("workflow_id", def.ID),
				zap.Int("level", n),
			)
			continue
		}
		return n
	}
	return 0
}

// buildLevelRecords resolves the level's approvers and applies standing
// delegation rules without writing anything.
func (s *ApprovalService) buildLevelRecords(ctx context.Context, instanceID string, def *model.WorkflowDefinition, level model.Level, now time.Time) ([]model.ApprovalRecord, []string, error) {
	approvers, err := s.resolver.ResolveApprovers(ctx, level.ApproverSelector)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve approvers for level %d: %w", level.Level, err)
	}
	if len(approvers) == 0 {
		return nil, nil, domainErr(KindValidation, "level %d of workflow %s resolved to no approvers", level.Level, def.ID)
	}

	records := make([]model.ApprovalRecord, 0, len(approvers))
	recipients := make([]string, 0, len(approvers))
	for _, approver := range approvers {
		rec := model.ApprovalRecord{
			ID:             ulid.Make().String(),
			InstanceID:     instanceID,
			Level:          level.Level,
			ApproverUserID: approver,
			Status:         model.RecordPending,
			CreatedAt:      now,
		}
		if delegate := standingDelegate(def, approver); delegate != "" {
			original := approver
			rec.ApproverUserID = delegate
			rec.OriginalApproverUserID = &original
		}
		records = append(records, rec)
		recipients = append(recipients, rec.ApproverUserID)
	}
	return records, recipients, nil
}

// createLevelRecords writes one pending record per resolved approver plus the
// request notifications.
func (s *ApprovalService) createLevelRecords(ctx context.Context, inst model.ApprovalInstance, def *model.WorkflowDefinition, level model.Level, now time.Time) error {
	records, recipients, err := s.buildLevelRecords(ctx, inst.ID, def, level, now)
	if err != nil {
		return err
	}
	if err := s.store.CreateApprovalRecords(ctx, records); err != nil {
		return fmt.Errorf("failed to create approval records: %w", err)
	}
	s.enqueue(ctx, inst, def, model.NotifyRequest, recipients, map[string]interface{}{
		"level": level.Level,
	}, now)
	return nil
}

// enqueue writes one pending notification per recipient and channel.
// Delivery is asynchronous; this never blocks on dispatch.
func (s *ApprovalService) enqueue(ctx context.Context, inst model.ApprovalInstance, def *model.WorkflowDefinition, typ model.NotificationType, recipients []string, data map[string]interface{}, now time.Time) {
	channels := defaultChannels
	if def != nil && len(def.NotificationPolicy.Channels) > 0 {
		channels = def.NotificationPolicy.Channels
	}

	payload := map[string]interface{}{
		"instanceId":  inst.ID,
		"documentId":  inst.DocumentID,
		"submittedBy": inst.SubmittedBy,
	}
	for k, v := range data {
		payload[k] = v
	}

	for _, recipient := range recipients {
		if recipient == "" {
			continue
		}
		for _, channel := range channels {
			n := model.Notification{
				ID:               ulid.Make().String(),
				InstanceID:       inst.ID,
				NotificationType: typ,
				RecipientUserID:  recipient,
				Channel:          channel,
				Template:         string(typ),
				Data:             payload,
				Status:           model.NotificationPending,
				ScheduledAt:      now,
				CreatedAt:        now,
			}
			if err := s.notifs.CreateNotification(ctx, n); err != nil {
				// Best-effort: a lost notification never rolls back the
				// approval action that produced it.
				s.log.Error("Failed to enqueue notification",
					zap.String("instance_id", inst.ID),
					zap.String("type", string(typ)),
					zap.String("recipient", recipient),
					zap.Error(err),
				)
			}
		}
	}
}

func (s *ApprovalService) terminate(ctx context.Context, inst model.ApprovalInstance, status model.InstanceStatus, now time.Time) error {
	if err := s.store.CompleteInstance(ctx, inst.ID, status, now); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return domainErr(KindConflict, "instance %s reached a terminal state concurrently", inst.ID)
		}
		return fmt.Errorf("failed to complete instance: %w", err)
	}
	return nil
}

func (s *ApprovalService) getLiveInstance(ctx context.Context, instanceID string) (model.ApprovalInstance, error) {
	inst, err := s.store.GetInstanceByID(ctx, instanceID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return inst, domainErr(KindNotFound, "approval instance %s not found", instanceID)
		}
		return inst, fmt.Errorf("failed to load instance: %w", err)
	}
	if inst.Status.IsTerminal() {
		return inst, domainErr(KindInvalidState, "approval instance %s is already %s", instanceID, inst.Status)
	}
	return inst, nil
}

func (s *ApprovalService) reload(ctx context.Context, instanceID string) (*model.ApprovalInstance, error) {
	inst, err := s.store.GetInstanceByID(ctx, instanceID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, domainErr(KindNotFound, "approval instance %s not found", instanceID)
		}
		return nil, fmt.Errorf("failed to load instance: %w", err)
	}
	return &inst, nil
}

func (s *ApprovalService) nudgeDispatcher(urgency model.Urgency) {
	if s.jobClient == nil {
		return
	}
	if err := s.jobClient.EnqueueDispatch(urgency); err != nil {
		s.log.Warn("Failed to enqueue dispatch job", zap.Error(err))
	}
}

func standingDelegate(def *model.WorkflowDefinition, userID string) string {
	if def == nil {
		return ""
	}
	for _, rule := range def.DelegationRules {
		if rule.UserID == userID {
			return rule.DelegateTo
		}
	}
	return ""
}

func levelSkipped(level model.Level, doc model.Document) bool {
	for _, cond := range level.SkipConditions {
		if conditionMatches(cond, doc) {
			return true
		}
	}
	return false
}

func conditionMatches(cond model.SkipCondition, doc model.Document) bool {
	context := map[string]interface{}{
		"id":             doc.ID,
		"documentTypeId": doc.DocumentTypeID,
		"status":         string(doc.Status),
	}
	for k, v := range doc.Meta {
		context[k] = v
	}

	actual, ok := context[cond.Field]
	if !ok {
		return false
	}

	switch cond.Operator {
	case "eq":
		return fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", cond.Value)
	case "neq":
		return fmt.Sprintf("%v", actual) != fmt.Sprintf("%v", cond.Value)
	case "gt":
		a, okA := toFloat(actual)
		b, okB := toFloat(cond.Value)
		return okA && okB && a > b
	case "lt":
		a, okA := toFloat(actual)
		b, okB := toFloat(cond.Value)
		return okA && okB && a < b
	default:
		return false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case json.Number:
		f, err := value.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
