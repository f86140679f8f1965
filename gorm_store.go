package governance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the PostgreSQL-backed RecordStore.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates every table the core uses.
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	}
	return err
}

// missingOrConflict tells apart a row that does not exist from one that no
// longer matched a conditional update.
func (s *GormStore) missingOrConflict(ctx context.Context, model interface{}, column, key string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(model).Where(column+" = ?", key).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func (s *GormStore) GetPrincipal(ctx context.Context, id string) (Principal, error) {
	var p Principal
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return Principal{}, translate(err)
	}
	return p, nil
}

func (s *GormStore) SavePrincipal(ctx context.Context, p *Principal) error {
	return translate(s.db.WithContext(ctx).Save(p).Error)
}

func (s *GormStore) GetFoundation(ctx context.Context, id string) (Foundation, error) {
	var f Foundation
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return Foundation{}, translate(err)
	}
	return f, nil
}

func (s *GormStore) CreateFoundation(ctx context.Context, f *Foundation) error {
	return translate(s.db.WithContext(ctx).Create(f).Error)
}

func (s *GormStore) TransferOwnership(ctx context.Context, id string, next Membership, prev *Membership) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Foundation{}).Where("id = ?", id).Update("owner_id", next.PrincipalID)
		if res.Error != nil {
			return fmt.Errorf("failed to update owner: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := updateMembership(tx, &next); err != nil {
			return fmt.Errorf("failed to promote new owner: %w", err)
		}
		if prev != nil {
			if err := updateMembership(tx, prev); err != nil {
				return fmt.Errorf("failed to demote previous owner: %w", err)
			}
		}
		return nil
	})
}

func (s *GormStore) DeleteFoundation(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("foundation_id = ?", id).Delete(&Membership{}).Error; err != nil {
			return fmt.Errorf("failed to delete memberships: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&Foundation{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete foundation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) GetMembership(ctx context.Context, foundationID, principalID string) (Membership, error) {
	var m Membership
	err := s.db.WithContext(ctx).
		Where("foundation_id = ? AND principal_id = ?", foundationID, principalID).
		First(&m).Error
	if err != nil {
		return Membership{}, translate(err)
	}
	return m, nil
}

func (s *GormStore) ListMemberships(ctx context.Context, foundationID string) ([]Membership, error) {
	var out []Membership
	err := s.db.WithContext(ctx).
		Where("foundation_id = ?", foundationID).
		Order("joined_at ASC, principal_id ASC").
		Find(&out).Error
	return out, err
}

func (s *GormStore) CreateMembership(ctx context.Context, m *Membership) error {
	return translate(s.db.WithContext(ctx).Create(m).Error)
}

func (s *GormStore) UpdateMembership(ctx context.Context, m *Membership) error {
	return updateMembership(s.db.WithContext(ctx), m)
}

func updateMembership(db *gorm.DB, m *Membership) error {
	res := db.Model(&Membership{}).
		Where("foundation_id = ? AND principal_id = ?", m.FoundationID, m.PrincipalID).
		Updates(map[string]interface{}{
			"role":        m.Role,
			"permissions": m.Permissions,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteMembership(ctx context.Context, foundationID, principalID string) error {
	res := s.db.WithContext(ctx).
		Where("foundation_id = ? AND principal_id = ?", foundationID, principalID).
		Delete(&Membership{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateWorkflow(ctx context.Context, wf *Workflow) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(wf).Error)
}

func (s *GormStore) CreateSteps(ctx context.Context, steps []Step) error {
	if len(steps) == 0 {
		return nil
	}
	return translate(s.db.WithContext(ctx).Create(&steps).Error)
}

func (s *GormStore) GetWorkflow(ctx context.Context, id string) (Workflow, error) {
	var wf Workflow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&wf).Error; err != nil {
		return Workflow{}, translate(err)
	}
	return wf, nil
}

func (s *GormStore) ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]Workflow, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if filter.FoundationID != "" {
		query = query.Where("foundation_id = ?", filter.FoundationID)
	}
	if filter.SubjectType != "" {
		query = query.Where("subject_type = ?", filter.SubjectType)
	}
	if filter.SubjectID != "" {
		query = query.Where("subject_id = ?", filter.SubjectID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	var out []Workflow
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) DeleteWorkflow(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workflow_id = ?", id).Delete(&Step{}).Error; err != nil {
			return fmt.Errorf("failed to delete steps: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&Workflow{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete workflow: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) AdvanceWorkflowStatus(ctx context.Context, id string, status WorkflowStatus, at time.Time) (bool, error) {
	updates := map[string]interface{}{"status": status}
	if status == WorkflowCompleted {
		updates["completed_at"] = at
	}
	res := s.db.WithContext(ctx).Model(&Workflow{}).
		Where("id = ? AND status <> ? AND status NOT IN ?", id, status,
			[]WorkflowStatus{WorkflowCompleted, WorkflowRejected}).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) GetStep(ctx context.Context, id string) (Step, error) {
	var st Step
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&st).Error; err != nil {
		return Step{}, translate(err)
	}
	return st, nil
}

func (s *GormStore) ListSteps(ctx context.Context, workflowID string) ([]Step, error) {
	var out []Step
	err := s.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("step_order ASC").
		Find(&out).Error
	return out, err
}

func (s *GormStore) ListPendingSteps(ctx context.Context, assigneeID string) ([]Step, error) {
	var out []Step
	err := s.db.WithContext(ctx).
		Where("assignee_id = ? AND status = ?", assigneeID, StepPending).
		Order("created_at ASC, step_order ASC").
		Find(&out).Error
	return out, err
}

// updatePendingStep applies updates only while the step is pending.
func (s *GormStore) updatePendingStep(ctx context.Context, id string, updates map[string]interface{}) (Step, error) {
	res := s.db.WithContext(ctx).Model(&Step{}).
		Where("id = ? AND status = ?", id, StepPending).
		Updates(updates)
	if res.Error != nil {
		return Step{}, res.Error
	}
	if res.RowsAffected == 0 {
		return Step{}, s.missingOrConflict(ctx, &Step{}, "id", id)
	}
	return s.GetStep(ctx, id)
}

func (s *GormStore) TransitionStep(ctx context.Context, id string, t StepTransition) (Step, error) {
	updates := map[string]interface{}{
		"status":             t.Status,
		"completed_at":       t.CompletedAt,
		"completed_by":       t.CompletedBy,
		"comments":           t.Comments,
		"signature_artifact": t.SignatureArtifact,
	}
	if t.SignatureOrderRef != nil {
		updates["signature_order_ref"] = *t.SignatureOrderRef
	}
	return s.updatePendingStep(ctx, id, updates)
}

func (s *GormStore) ReassignStep(ctx context.Context, id, assigneeID string) (Step, error) {
	return s.updatePendingStep(ctx, id, map[string]interface{}{
		"assignee_id":         assigneeID,
		"signature_order_ref": nil,
	})
}

func (s *GormStore) AttachSignatureOrder(ctx context.Context, id, orderRef string) (Step, error) {
	return s.updatePendingStep(ctx, id, map[string]interface{}{"signature_order_ref": orderRef})
}

func (s *GormStore) CreateSession(ctx context.Context, sess *SignatureSession) error {
	return translate(s.db.WithContext(ctx).Create(sess).Error)
}

func (s *GormStore) GetSession(ctx context.Context, orderRef string) (SignatureSession, error) {
	var sess SignatureSession
	if err := s.db.WithContext(ctx).Where("order_ref = ?", orderRef).First(&sess).Error; err != nil {
		return SignatureSession{}, translate(err)
	}
	return sess, nil
}

func (s *GormStore) FinishSession(ctx context.Context, orderRef string, t SessionTransition) (SignatureSession, error) {
	updates := map[string]interface{}{
		"status":         t.Status,
		"completed_at":   t.CompletedAt,
		"failure_reason": t.FailureReason,
	}
	if t.CompletionData != nil {
		updates["completion_data"] = datatypes.JSONMap(t.CompletionData)
	}
	res := s.db.WithContext(ctx).Model(&SignatureSession{}).
		Where("order_ref = ? AND status = ?", orderRef, SessionPending).
		Updates(updates)
	if res.Error != nil {
		return SignatureSession{}, res.Error
	}
	if res.RowsAffected == 0 {
		return SignatureSession{}, s.missingOrConflict(ctx, &SignatureSession{}, "order_ref", orderRef)
	}
	return s.GetSession(ctx, orderRef)
}

func (s *GormStore) AppendAudit(ctx context.Context, e *AuditEntry) error {
	return s.db.WithContext(ctx).Create(e).Error
}

func (s *GormStore) QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if filter.FoundationID != "" {
		query = query.Where("foundation_id = ?", filter.FoundationID)
	}
	if filter.ActorID != "" {
		query = query.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.TargetTable != "" {
		query = query.Where("target_table = ?", filter.TargetTable)
	}
	if filter.TargetID != "" {
		query = query.Where("target_id = ?", filter.TargetID)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("created_at <= ?", *filter.Until)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var out []AuditEntry
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

var _ RecordStore = (*GormStore)(nil)
