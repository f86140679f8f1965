package governance

import (
	"context"
	"sort"
	"sync"
	"time"
)

type membershipKey struct {
	foundationID string
	principalID  string
}

// MemoryStore is an in-process RecordStore. It applies the same conditional
// update rules as GormStore and is safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	principals  map[string]Principal
	foundations map[string]Foundation
	memberships map[membershipKey]Membership
	workflows   map[string]Workflow
	steps       map[string]Step
	sessions    map[string]SignatureSession
	audit       []AuditEntry

	// FailSteps makes CreateSteps fail with the given error.
	FailSteps error
	// FailAudit makes AppendAudit fail with the given error.
	FailAudit error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		principals:  make(map[string]Principal),
		foundations: make(map[string]Foundation),
		memberships: make(map[membershipKey]Membership),
		workflows:   make(map[string]Workflow),
		steps:       make(map[string]Step),
		sessions:    make(map[string]SignatureSession),
	}
}

func (m *MemoryStore) GetPrincipal(_ context.Context, id string) (Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.principals[id]
	if !ok {
		return Principal{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) SavePrincipal(_ context.Context, p *Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := m.principals[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.principals[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetFoundation(_ context.Context, id string) (Foundation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.foundations[id]
	if !ok {
		return Foundation{}, ErrNotFound
	}
	return f, nil
}

func (m *MemoryStore) CreateFoundation(_ context.Context, f *Foundation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.foundations[f.ID]; ok {
		return ErrConflict
	}
	now := time.Now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now
	m.foundations[f.ID] = *f
	return nil
}

func (m *MemoryStore) TransferOwnership(_ context.Context, id string, next Membership, prev *Membership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.foundations[id]
	if !ok {
		return ErrNotFound
	}
	updates := []Membership{next}
	if prev != nil {
		updates = append(updates, *prev)
	}
	for _, ms := range updates {
		if _, ok := m.memberships[membershipKey{ms.FoundationID, ms.PrincipalID}]; !ok {
			return ErrNotFound
		}
	}

	now := time.Now().UTC()
	f.OwnerID = next.PrincipalID
	f.UpdatedAt = now
	m.foundations[id] = f
	for _, ms := range updates {
		key := membershipKey{ms.FoundationID, ms.PrincipalID}
		ms.JoinedAt = m.memberships[key].JoinedAt
		ms.UpdatedAt = now
		m.memberships[key] = ms
	}
	return nil
}

func (m *MemoryStore) DeleteFoundation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.foundations[id]; !ok {
		return ErrNotFound
	}
	delete(m.foundations, id)
	for k := range m.memberships {
		if k.foundationID == id {
			delete(m.memberships, k)
		}
	}
	return nil
}

func (m *MemoryStore) GetMembership(_ context.Context, foundationID, principalID string) (Membership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ms, ok := m.memberships[membershipKey{foundationID, principalID}]
	if !ok {
		return Membership{}, ErrNotFound
	}
	return ms, nil
}

func (m *MemoryStore) ListMemberships(_ context.Context, foundationID string) ([]Membership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Membership
	for k, ms := range m.memberships {
		if k.foundationID == foundationID {
			out = append(out, ms)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].PrincipalID < out[j].PrincipalID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (m *MemoryStore) CreateMembership(_ context.Context, ms *Membership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := membershipKey{ms.FoundationID, ms.PrincipalID}
	if _, ok := m.memberships[key]; ok {
		return ErrConflict
	}
	now := time.Now().UTC()
	if ms.JoinedAt.IsZero() {
		ms.JoinedAt = now
	}
	ms.UpdatedAt = now
	m.memberships[key] = *ms
	return nil
}

func (m *MemoryStore) UpdateMembership(_ context.Context, ms *Membership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := membershipKey{ms.FoundationID, ms.PrincipalID}
	existing, ok := m.memberships[key]
	if !ok {
		return ErrNotFound
	}
	ms.JoinedAt = existing.JoinedAt
	ms.UpdatedAt = time.Now().UTC()
	m.memberships[key] = *ms
	return nil
}

func (m *MemoryStore) DeleteMembership(_ context.Context, foundationID, principalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := membershipKey{foundationID, principalID}
	if _, ok := m.memberships[key]; !ok {
		return ErrNotFound
	}
	delete(m.memberships, key)
	return nil
}

func (m *MemoryStore) CreateWorkflow(_ context.Context, wf *Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workflows[wf.ID]; ok {
		return ErrConflict
	}
	now := time.Now().UTC()
	if wf.CreatedAt.IsZero() {
		wf.CreatedAt = now
	}
	wf.UpdatedAt = now
	stored := *wf
	stored.Steps = nil
	m.workflows[wf.ID] = stored
	return nil
}

func (m *MemoryStore) CreateSteps(_ context.Context, steps []Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSteps != nil {
		return m.FailSteps
	}
	for _, s := range steps {
		if _, ok := m.steps[s.ID]; ok {
			return ErrConflict
		}
	}
	for _, s := range steps {
		m.steps[s.ID] = s
	}
	return nil
}

func (m *MemoryStore) GetWorkflow(_ context.Context, id string) (Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wf, ok := m.workflows[id]
	if !ok {
		return Workflow{}, ErrNotFound
	}
	return wf, nil
}

func (m *MemoryStore) ListWorkflows(_ context.Context, filter WorkflowFilter) ([]Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Workflow
	for _, wf := range m.workflows {
		if filter.FoundationID != "" && wf.FoundationID != filter.FoundationID {
			continue
		}
		if filter.SubjectType != "" && wf.Subject.Type != filter.SubjectType {
			continue
		}
		if filter.SubjectID != "" && wf.Subject.ID != filter.SubjectID {
			continue
		}
		if filter.Status != "" && wf.Status != filter.Status {
			continue
		}
		out = append(out, wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) DeleteWorkflow(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workflows[id]; !ok {
		return ErrNotFound
	}
	delete(m.workflows, id)
	for sid, s := range m.steps {
		if s.WorkflowID == id {
			delete(m.steps, sid)
		}
	}
	return nil
}

func (m *MemoryStore) AdvanceWorkflowStatus(_ context.Context, id string, status WorkflowStatus, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[id]
	if !ok {
		return false, ErrNotFound
	}
	if wf.Status.Terminal() || wf.Status == status {
		return false, nil
	}
	wf.Status = status
	if status == WorkflowCompleted {
		t := at
		wf.CompletedAt = &t
	}
	wf.UpdatedAt = time.Now().UTC()
	m.workflows[id] = wf
	return true, nil
}

func (m *MemoryStore) GetStep(_ context.Context, id string) (Step, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.steps[id]
	if !ok {
		return Step{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) ListSteps(_ context.Context, workflowID string) ([]Step, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Step
	for _, s := range m.steps {
		if s.WorkflowID == workflowID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m *MemoryStore) ListPendingSteps(_ context.Context, assigneeID string) ([]Step, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Step
	for _, s := range m.steps {
		if s.AssigneeID == assigneeID && s.Status == StepPending {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// pendingStep must be called with m.mu held.
func (m *MemoryStore) pendingStep(id string) (Step, error) {
	s, ok := m.steps[id]
	if !ok {
		return Step{}, ErrNotFound
	}
	if s.Status != StepPending {
		return Step{}, ErrConflict
	}
	return s, nil
}

func (m *MemoryStore) TransitionStep(_ context.Context, id string, t StepTransition) (Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.pendingStep(id)
	if err != nil {
		return Step{}, err
	}
	completedAt := t.CompletedAt
	completedBy := t.CompletedBy
	s.Status = t.Status
	s.CompletedAt = &completedAt
	s.CompletedBy = &completedBy
	s.Comments = t.Comments
	s.SignatureArtifact = t.SignatureArtifact
	if t.SignatureOrderRef != nil {
		s.SignatureOrderRef = t.SignatureOrderRef
	}
	s.UpdatedAt = time.Now().UTC()
	m.steps[id] = s
	return s, nil
}

func (m *MemoryStore) ReassignStep(_ context.Context, id, assigneeID string) (Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.pendingStep(id)
	if err != nil {
		return Step{}, err
	}
	s.AssigneeID = assigneeID
	s.SignatureOrderRef = nil
	s.UpdatedAt = time.Now().UTC()
	m.steps[id] = s
	return s, nil
}

func (m *MemoryStore) AttachSignatureOrder(_ context.Context, id, orderRef string) (Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.pendingStep(id)
	if err != nil {
		return Step{}, err
	}
	ref := orderRef
	s.SignatureOrderRef = &ref
	s.UpdatedAt = time.Now().UTC()
	m.steps[id] = s
	return s, nil
}

func (m *MemoryStore) CreateSession(_ context.Context, s *SignatureSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.OrderRef]; ok {
		return ErrConflict
	}
	m.sessions[s.OrderRef] = *s
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, orderRef string) (SignatureSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[orderRef]
	if !ok {
		return SignatureSession{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) FinishSession(_ context.Context, orderRef string, t SessionTransition) (SignatureSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[orderRef]
	if !ok {
		return SignatureSession{}, ErrNotFound
	}
	if s.Status != SessionPending {
		return SignatureSession{}, ErrConflict
	}
	completedAt := t.CompletedAt
	s.Status = t.Status
	s.CompletedAt = &completedAt
	s.CompletionData = t.CompletionData
	s.FailureReason = t.FailureReason
	m.sessions[orderRef] = s
	return s, nil
}

func (m *MemoryStore) AppendAudit(_ context.Context, e *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAudit != nil {
		return m.FailAudit
	}
	m.audit = append(m.audit, *e)
	return nil
}

func (m *MemoryStore) QueryAudit(_ context.Context, filter AuditFilter) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []AuditEntry
	for i := len(m.audit) - 1; i >= 0; i-- {
		e := m.audit[i]
		if !auditMatches(e, filter) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func auditMatches(e AuditEntry, f AuditFilter) bool {
	if f.FoundationID != "" && (e.FoundationID == nil || *e.FoundationID != f.FoundationID) {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.TargetTable != "" && e.TargetTable != f.TargetTable {
		return false
	}
	if f.TargetID != "" && e.TargetID != f.TargetID {
		return false
	}
	if f.Since != nil && e.CreatedAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && e.CreatedAt.After(*f.Until) {
		return false
	}
	return true
}

var _ RecordStore = (*MemoryStore)(nil)
