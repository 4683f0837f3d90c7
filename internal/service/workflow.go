package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/model"
)

// WorkflowService owns workflow definitions and their selection by
// document type.
type WorkflowService struct {
	store WorkflowStore
	cache *lru.Cache[string, model.WorkflowDefinition] // document type -> active definition
	log   *zap.Logger
}

func NewWorkflowService(store WorkflowStore, log *zap.Logger) *WorkflowService {
	cache, _ := lru.New[string, model.WorkflowDefinition](128)
	return &WorkflowService{
		store: store,
		cache: cache,
		log:   log,
	}
}

type WorkflowInput struct {
	Name               string                   `json:"name"`
	DocumentTypeIDs    []string                 `json:"documentTypeIds"`
	Levels             []model.Level            `json:"levels"`
	EscalationRules    []model.EscalationRule   `json:"escalationRules,omitempty"`
	DelegationRules    []model.DelegationRule   `json:"delegationRules,omitempty"`
	NotificationPolicy model.NotificationPolicy `json:"notificationPolicy,omitempty"`
	IsActive           bool                     `json:"isActive"`
}

func (s *WorkflowService) CreateWorkflow(ctx context.Context, input WorkflowInput) (*model.WorkflowDefinition, error) {
	if err := validateWorkflow(input); err != nil {
		return nil, err
	}

	def := model.WorkflowDefinition{
		ID:                 ulid.Make().String(),
		Name:               input.Name,
		DocumentTypeIDs:    input.DocumentTypeIDs,
		Levels:             input.Levels,
		EscalationRules:    input.EscalationRules,
		DelegationRules:    input.DelegationRules,
		NotificationPolicy: input.NotificationPolicy,
		IsActive:           input.IsActive,
	}

	created, err := s.store.CreateWorkflow(ctx, def)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	s.cache.Purge()
	s.log.Info("Workflow created", zap.String("workflow_id", created.ID), zap.String("name", created.Name))
	return &created, nil
}

// UpdateWorkflow replaces a definition. Once any instance references the
// workflow, only isActive may change.
func (s *WorkflowService) UpdateWorkflow(ctx context.Context, id string, input WorkflowInput) (*model.WorkflowDefinition, error) {
	if err := validateWorkflow(input); err != nil {
		return nil, err
	}

	existing, err := s.store.GetWorkflowByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, domainErr(KindNotFound, "workflow %s not found", id)
		}
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}

	referenced, err := s.store.CountInstancesByWorkflow(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count instances: %w", err)
	}
	if referenced > 0 && structurallyChanged(existing, input) {
		return nil, domainErr(KindInvalidState, "workflow %s is referenced by %d instance(s); only isActive may change", id, referenced)
	}

	existing.Name = input.Name
	existing.DocumentTypeIDs = input.DocumentTypeIDs
	existing.Levels = input.Levels
	existing.EscalationRules = input.EscalationRules
	existing.DelegationRules = input.DelegationRules
	existing.NotificationPolicy = input.NotificationPolicy
	existing.IsActive = input.IsActive

	updated, err := s.store.UpdateWorkflow(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	s.cache.Purge()
	s.log.Info("Workflow updated", zap.String("workflow_id", id), zap.Bool("active", updated.IsActive))
	return &updated, nil
}

func (s *WorkflowService) GetWorkflow(ctx context.Context, id string) (*model.WorkflowDefinition, error) {
	def, err := s.store.GetWorkflowByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, domainErr(KindNotFound, "workflow %s not found", id)
		}
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	return &def, nil
}

func (s *WorkflowService) ListWorkflows(ctx context.Context) ([]model.WorkflowDefinition, error) {
	return s.store.ListWorkflows(ctx)
}

// ActiveWorkflowForDocumentType selects the first active definition matching
// the document type. The result is cached until any definition changes.
func (s *WorkflowService) ActiveWorkflowForDocumentType(ctx context.Context, documentTypeID string) (*model.WorkflowDefinition, error) {
	if def, ok := s.cache.Get(documentTypeID); ok {
		return &def, nil
	}

	defs, err := s.store.ListActiveWorkflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active workflows: %w", err)
	}

	for _, def := range defs {
		for _, dt := range def.DocumentTypeIDs {
			if dt == documentTypeID {
				s.cache.Add(documentTypeID, def)
				return &def, nil
			}
		}
	}
	return nil, domainErr(KindNoWorkflowConfigured, "no active workflow configured for document type %s", documentTypeID)
}

func validateWorkflow(input WorkflowInput) error {
	if input.Name == "" {
		return domainErr(KindValidation, "workflow name is required")
	}
	if len(input.DocumentTypeIDs) == 0 {
		return domainErr(KindValidation, "workflow must apply to at least one document type")
	}
	if len(input.Levels) == 0 {
		return domainErr(KindValidation, "workflow must define at least one level")
	}

	// Level numbers must be contiguous starting at 1, in order.
	for i, level := range input.Levels {
		if level.Level != i+1 {
			return domainErr(KindValidation, "level numbers must be consecutive starting at 1, got %d at position %d", level.Level, i)
		}
		if level.RequiredApprovals < 1 {
			return domainErr(KindValidation, "level %d requires a positive requiredApprovals", level.Level)
		}
		if len(level.ApproverSelector.UserIDs) == 0 && len(level.ApproverSelector.Roles) == 0 {
			return domainErr(KindValidation, "level %d has no approver selector", level.Level)
		}
		if level.TimeoutHours != nil && *level.TimeoutHours <= 0 {
			return domainErr(KindValidation, "level %d timeoutHours must be positive", level.Level)
		}
	}

	// Only the first rule per level applies; escalation chains built from
	// those rules must terminate, or the evaluator would re-escalate the
	// same instance on every pass.
	chain := make(map[int]int, len(input.EscalationRules))
	for _, rule := range input.EscalationRules {
		if rule.FromLevel < 1 || rule.FromLevel > len(input.Levels) {
			return domainErr(KindValidation, "escalation rule references unknown fromLevel %d", rule.FromLevel)
		}
		if rule.AutoApprove {
			continue
		}
		if rule.ToLevel < 1 || rule.ToLevel > len(input.Levels) {
			return domainErr(KindValidation, "escalation rule references unknown toLevel %d", rule.ToLevel)
		}
		if rule.ToLevel == rule.FromLevel {
			return domainErr(KindValidation, "escalation rule for level %d cannot escalate to itself", rule.FromLevel)
		}
		if _, ok := chain[rule.FromLevel]; !ok {
			chain[rule.FromLevel] = rule.ToLevel
		}
	}
	for start := range chain {
		seen := map[int]bool{start: true}
		cur := start
		for {
			to, ok := chain[cur]
			if !ok {
				break
			}
			if seen[to] {
				return domainErr(KindValidation, "escalation rules form a cycle through level %d", to)
			}
			seen[to] = true
			cur = to
		}
	}

	for _, rule := range input.DelegationRules {
		if rule.UserID == "" || rule.DelegateTo == "" {
			return domainErr(KindValidation, "delegation rule must name both userId and delegateTo")
		}
		if rule.UserID == rule.DelegateTo {
			return domainErr(KindValidation, "delegation rule cannot delegate a user to themselves")
		}
	}
	return nil
}

func structurallyChanged(existing model.WorkflowDefinition, input WorkflowInput) bool {
	candidate := existing
	candidate.Name = input.Name
	candidate.DocumentTypeIDs = input.DocumentTypeIDs
	candidate.Levels = input.Levels
	candidate.EscalationRules = input.EscalationRules
	candidate.DelegationRules = input.DelegationRules
	candidate.NotificationPolicy = input.NotificationPolicy
	candidate.IsActive = existing.IsActive
	return !equalDefs(candidate, existing)
}

func equalDefs(a, b model.WorkflowDefinition) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aj) == string(bj)
}
