package governance

import (
	"time"

	"gorm.io/datatypes"
)

// Principal is an authenticated identity. It is resolved once per call and
// passed by value.
type Principal struct {
	ID         string     `gorm:"primaryKey" json:"id"`
	GlobalRole GlobalRole `gorm:"not null" json:"global_role,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Foundation is the tenant boundary. It has exactly one owner.
type Foundation struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	OwnerID   string    `gorm:"index;not null" json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership links a principal to a foundation with a role and an explicit
// permission set. A principal has at most one membership per foundation.
type Membership struct {
	FoundationID string        `gorm:"primaryKey;autoIncrement:false" json:"foundation_id"`
	PrincipalID  string        `gorm:"primaryKey;autoIncrement:false;index" json:"principal_id"`
	Role         MemberRole    `gorm:"not null" json:"role"`
	Permissions  PermissionSet `gorm:"type:jsonb;not null" json:"permissions"`
	JoinedAt     time.Time     `gorm:"autoCreateTime" json:"joined_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Subject identifies the business record a workflow decides on.
type Subject struct {
	Type         string `gorm:"not null" json:"type" validate:"required"`
	ID           string `gorm:"index;not null" json:"id" validate:"required"`
	Title        string `json:"title,omitempty"`
	OriginatorID string `gorm:"not null" json:"originator_id" validate:"required"`
}

// Workflow is an ordered decision over a subject. Status always equals
// DeriveStatus of its steps once a transition has been written.
type Workflow struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	FoundationID string         `gorm:"index;not null" json:"foundation_id"`
	Subject      Subject        `gorm:"embedded;embeddedPrefix:subject_" json:"subject"`
	Kind         WorkflowKind   `gorm:"not null" json:"kind"`
	Status       WorkflowStatus `gorm:"index;not null" json:"status"`
	CreatedBy    string         `json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Steps        []Step         `gorm:"foreignKey:WorkflowID;constraint:OnDelete:CASCADE" json:"steps,omitempty"`
}

// Step is one assignee's action within a workflow.
type Step struct {
	ID                string     `gorm:"primaryKey" json:"id"`
	WorkflowID        string     `gorm:"index;not null" json:"workflow_id"`
	Order             int        `gorm:"column:step_order;not null" json:"order"`
	AssigneeID        string     `gorm:"index;not null" json:"assignee_id"`
	Action            StepAction `gorm:"not null" json:"action"`
	Status            StepStatus `gorm:"index;not null" json:"status"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CompletedBy       *string    `json:"completed_by,omitempty"`
	Comments          *string    `json:"comments,omitempty"`
	SignatureArtifact *string    `json:"signature_artifact,omitempty"`
	SignatureOrderRef *string    `gorm:"index" json:"signature_order_ref,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// SignatureSession correlates an external signing or authentication attempt
// with the principal who started it.
type SignatureSession struct {
	OrderRef       string            `gorm:"primaryKey" json:"order_ref"`
	AutoStartToken string            `gorm:"not null" json:"auto_start_token"`
	PrincipalID    string            `gorm:"index;not null" json:"principal_id"`
	Kind           SessionKind       `gorm:"not null" json:"kind"`
	Status         SessionStatus     `gorm:"not null" json:"status"`
	CompletionData datatypes.JSONMap `gorm:"type:jsonb" json:"completion_data,omitempty"`
	FailureReason  string            `json:"failure_reason,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
}

// AuditEntry is an immutable record of a sensitive mutation.
type AuditEntry struct {
	ID           string            `gorm:"primaryKey" json:"id"`
	ActorID      string            `gorm:"index;not null" json:"actor_id"`
	FoundationID *string           `gorm:"index" json:"foundation_id,omitempty"`
	Action       string            `gorm:"index;not null" json:"action"`
	TargetTable  string            `gorm:"index;not null" json:"target_table"`
	TargetID     string            `gorm:"index" json:"target_id"`
	OldValues    datatypes.JSONMap `gorm:"type:jsonb" json:"old_values,omitempty"`
	NewValues    datatypes.JSONMap `gorm:"type:jsonb" json:"new_values,omitempty"`
	Details      datatypes.JSONMap `gorm:"type:jsonb" json:"details,omitempty"`
	IPAddress    string            `json:"ip_address,omitempty"`
	UserAgent    string            `json:"user_agent,omitempty"`
	CreatedAt    time.Time         `gorm:"index" json:"created_at"`
}

// TableName keeps the audit table singular.
func (AuditEntry) TableName() string {
	return "audit_log"
}

func allModels() []interface{} {
	return []interface{}{
		&Principal{}, &Foundation{}, &Membership{},
		&Workflow{}, &Step{}, &SignatureSession{}, &AuditEntry{},
	}
}
