package model

import "time"

// InstanceStatus represents approval instance status
type InstanceStatus string

const (
	InstancePending    InstanceStatus = "pending"
	InstanceInProgress InstanceStatus = "in_progress"
	InstanceApproved   InstanceStatus = "approved"
	InstanceRejected   InstanceStatus = "rejected"
	InstanceEscalated  InstanceStatus = "escalated"
	InstanceCancelled  InstanceStatus = "cancelled"
)

// IsTerminal reports whether no further mutation of the instance is allowed.
func (s InstanceStatus) IsTerminal() bool {
	return s == InstanceApproved || s == InstanceRejected || s == InstanceCancelled
}

// RecordStatus represents the status of a single approval record
type RecordStatus string

const (
	RecordPending   RecordStatus = "pending"
	RecordApproved  RecordStatus = "approved"
	RecordRejected  RecordStatus = "rejected"
	RecordDelegated RecordStatus = "delegated"
	RecordEscalated RecordStatus = "escalated"
)

// DocumentStatus is the status owned by the external document store
type DocumentStatus string

const (
	DocumentDraft     DocumentStatus = "draft"
	DocumentSubmitted DocumentStatus = "submitted"
	DocumentApproved  DocumentStatus = "approved"
	DocumentRejected  DocumentStatus = "rejected"
)

// ApprovalAction is what an approver does with a pending record
type ApprovalAction string

const (
	ActionApprove ApprovalAction = "approve"
	ActionReject  ApprovalAction = "reject"
)

// Urgency maps a submission to a dispatch queue priority
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyNormal   Urgency = "normal"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// NotificationType identifies the templated event being delivered
type NotificationType string

const (
	NotifyRequest   NotificationType = "request"
	NotifyReminder  NotificationType = "reminder"
	NotifyApproved  NotificationType = "approved"
	NotifyRejected  NotificationType = "rejected"
	NotifyEscalated NotificationType = "escalated"
	NotifyDelegated NotificationType = "delegated"
	NotifyCompleted NotificationType = "completed"
)

// NotificationStatus tracks delivery state
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Channel is a delivery channel handled by a dedicated transport
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelInApp   Channel = "in_app"
	ChannelWebhook Channel = "webhook"
)

// ApproverSelector names the approvers of a level, by user and/or role.
// Role expansion is delegated to the identity resolver.
type ApproverSelector struct {
	UserIDs []string `json:"userIds,omitempty"`
	Roles   []string `json:"roles,omitempty"`
}

// SkipCondition skips a level when the document context matches.
type SkipCondition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"` // eq | neq | gt | lt
	Value    interface{} `json:"value"`
}

// Level is one stage of a workflow definition.
type Level struct {
	Level             int              `json:"level"`
	Name              string           `json:"name,omitempty"`
	ApproverSelector  ApproverSelector `json:"approverSelector"`
	RequiredApprovals int              `json:"requiredApprovals"`
	IsParallel        bool             `json:"isParallel"`
	TimeoutHours      *int             `json:"timeoutHours,omitempty"`
	SkipConditions    []SkipCondition  `json:"skipConditions,omitempty"`
}

// EscalationRule describes what happens when a level times out.
type EscalationRule struct {
	FromLevel         int      `json:"fromLevel"`
	ToLevel           int      `json:"toLevel"`
	TriggerAfterHours int      `json:"triggerAfterHours"`
	AutoApprove       bool     `json:"autoApprove"`
	NotifyUsers       []string `json:"notifyUsers,omitempty"`
}

// DelegationRule pre-routes a user's approval obligations to a delegate
// at record-creation time (standing out-of-office delegation).
type DelegationRule struct {
	UserID     string `json:"userId"`
	DelegateTo string `json:"delegateTo"`
	Reason     string `json:"reason,omitempty"`
}

// NotificationPolicy selects the channels used for a workflow's notifications.
type NotificationPolicy struct {
	Channels []Channel `json:"channels,omitempty"`
}

// WorkflowDefinition is a named approval workflow keyed by document type.
type WorkflowDefinition struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	DocumentTypeIDs    []string           `json:"documentTypeIds"`
	Levels             []Level            `json:"levels"`
	EscalationRules    []EscalationRule   `json:"escalationRules,omitempty"`
	DelegationRules    []DelegationRule   `json:"delegationRules,omitempty"`
	NotificationPolicy NotificationPolicy `json:"notificationPolicy,omitempty"`
	IsActive           bool               `json:"isActive"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// LevelByNumber returns the level with the given number, or nil.
func (w *WorkflowDefinition) LevelByNumber(n int) *Level {
	for i := range w.Levels {
		if w.Levels[i].Level == n {
			return &w.Levels[i]
		}
	}
	return nil
}

// RuleForLevel returns the first escalation rule whose fromLevel matches.
func (w *WorkflowDefinition) RuleForLevel(level int) *EscalationRule {
	for i := range w.EscalationRules {
		if w.EscalationRules[i].FromLevel == level {
			return &w.EscalationRules[i]
		}
	}
	return nil
}

// ApprovalInstance is one in-flight approval process bound to a document.
type ApprovalInstance struct {
	ID           string         `json:"id"`
	DocumentID   string         `json:"documentId"`
	WorkflowID   string         `json:"workflowId"`
	CurrentLevel int            `json:"currentLevel"`
	Status       InstanceStatus `json:"status"`
	Urgency      Urgency        `json:"urgency"`
	SubmittedBy  string         `json:"submittedBy"`
	StartedAt    time.Time      `json:"startedAt"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
}

// ApprovalRecord is one approver's obligation at one level of an instance.
type ApprovalRecord struct {
	ID                     string       `json:"id"`
	InstanceID             string       `json:"instanceId"`
	Level                  int          `json:"level"`
	ApproverUserID         string       `json:"approverUserId"`
	OriginalApproverUserID *string      `json:"originalApproverUserId,omitempty"`
	Status                 RecordStatus `json:"status"`
	Comments               string       `json:"comments,omitempty"`
	CreatedAt              time.Time    `json:"createdAt"`
	ActedAt                *time.Time   `json:"actedAt,omitempty"`
}

// EscalationRecord is an append-only audit row for a forced level transition.
type EscalationRecord struct {
	ID          string    `json:"id"`
	InstanceID  string    `json:"instanceId"`
	FromLevel   int       `json:"fromLevel"`
	ToLevel     int       `json:"toLevel"`
	Reason      string    `json:"reason"`
	EscalatedAt time.Time `json:"escalatedAt"`
}

// DelegationRecord is an append-only audit row for an approver substitution.
type DelegationRecord struct {
	ID          string    `json:"id"`
	InstanceID  string    `json:"instanceId"`
	Level       int       `json:"level"`
	FromUserID  string    `json:"fromUserId"`
	ToUserID    string    `json:"toUserId"`
	Reason      string    `json:"reason"`
	DelegatedAt time.Time `json:"delegatedAt"`
}

// Notification is a queued, templated message bound for one recipient.
type Notification struct {
	ID               string                 `json:"id"`
	InstanceID       string                 `json:"instanceId"`
	NotificationType NotificationType       `json:"notificationType"`
	RecipientUserID  string                 `json:"recipientUserId"`
	Channel          Channel                `json:"channel"`
	Template         string                 `json:"template"`
	Data             map[string]interface{} `json:"data,omitempty"`
	Status           NotificationStatus     `json:"status"`
	ScheduledAt      time.Time              `json:"scheduledAt"`
	SentAt           *time.Time             `json:"sentAt,omitempty"`
	ErrorMessage     *string                `json:"errorMessage,omitempty"`
	RetryCount       int                    `json:"retryCount"`
	CreatedAt        time.Time              `json:"createdAt"`
}

// Document is the view of a document exposed by the external document store.
type Document struct {
	ID             string                 `json:"id"`
	DocumentTypeID string                 `json:"documentTypeId"`
	Status         DocumentStatus         `json:"status"`
	Meta           map[string]interface{} `json:"meta,omitempty"`
}

// ApprovalHistory bundles everything recorded about a document's approvals.
type ApprovalHistory struct {
	Instances   []ApprovalInstance `json:"instances"`
	Records     []ApprovalRecord   `json:"records"`
	Escalations []EscalationRecord `json:"escalations"`
	Delegations []DelegationRecord `json:"delegations"`
}
