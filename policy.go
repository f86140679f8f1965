package governance

import "fmt"

// Mode says how a policy combines its required permissions.
type Mode uint8

const (
	// ModeAll requires every listed permission.
	ModeAll Mode = iota
	// ModeAny requires at least one listed permission.
	ModeAny
)

func (m Mode) String() string {
	if m == ModeAny {
		return "any"
	}
	return "all"
}

// Policy is the immutable permission requirement of one action.
type Policy struct {
	name      string
	required  []Permission
	mode      Mode
	ownerOnly bool
}

// RequireAll builds a policy satisfied when every permission is held. With no
// permissions it admits any member of the foundation.
func RequireAll(name string, perms ...Permission) Policy {
	return Policy{name: name, required: append([]Permission(nil), perms...), mode: ModeAll}
}

// RequireAny builds a policy satisfied when at least one permission is held.
func RequireAny(name string, perms ...Permission) Policy {
	return Policy{name: name, required: append([]Permission(nil), perms...), mode: ModeAny}
}

// OwnerOnly builds a policy only the foundation owner satisfies.
func OwnerOnly(name string) Policy {
	return Policy{name: name, mode: ModeAll, ownerOnly: true}
}

func (p Policy) Name() string    { return p.name }
func (p Policy) Mode() Mode      { return p.mode }
func (p Policy) OwnerOnly() bool { return p.ownerOnly }

// Required returns a copy of the required permissions.
func (p Policy) Required() []Permission {
	return append([]Permission(nil), p.required...)
}

func (p Policy) String() string {
	if p.ownerOnly {
		return fmt.Sprintf("%s(owner)", p.name)
	}
	return fmt.Sprintf("%s(%s %v)", p.name, p.mode, p.required)
}

// satisfiedBy evaluates the permission part of the policy. Permissions not in
// the set count as not granted.
func (p Policy) satisfiedBy(set PermissionSet) bool {
	if p.mode == ModeAny {
		for _, perm := range p.required {
			if set.Has(perm) {
				return true
			}
		}
		return false
	}
	for _, perm := range p.required {
		if !set.Has(perm) {
			return false
		}
	}
	return true
}

// Policies the HTTP layer and callers share.
var (
	PolicyViewFoundation    = RequireAll("foundation.view")
	PolicyDeleteFoundation  = OwnerOnly("foundation.delete")
	PolicyTransferOwnership = OwnerOnly("foundation.transfer")
	PolicyManageMembers     = RequireAll("members.manage", ManageMembers)
	PolicyViewAuditLog      = RequireAny("audit.view", ViewAuditLog, ManageMembers)
	PolicyViewReports       = RequireAll("reports.view", ViewReports)
	PolicyManageDocuments   = RequireAll("documents.manage", ManageDocuments)
	PolicyApproveDocuments  = RequireAll("documents.approve", ApproveDocuments)
	PolicySignDocuments     = RequireAll("documents.sign", SignDocuments)
	PolicyManageExpenses    = RequireAll("expenses.manage", ManageExpenses)
	PolicyApproveExpenses   = RequireAll("expenses.approve", ApproveExpenses)
	PolicyManageMeetings    = RequireAll("meetings.manage", ManageMeetings)
	PolicyManageInvestments = RequireAll("investments.manage", ManageInvestments)
	PolicyManageProjects    = RequireAll("projects.manage", ManageProjects)
	PolicyManageGrants      = RequireAll("grants.manage", ManageGrants)
	PolicyStartWorkflow     = RequireAny("workflows.start",
		ManageDocuments, ManageExpenses, ManageMeetings,
		ManageInvestments, ManageProjects, ManageGrants)
	PolicyManageWorkflows = RequireAny("workflows.manage", ManageMembers, ApproveDocuments, ApproveExpenses)
)

var policyCatalog = func() map[string]Policy {
	m := make(map[string]Policy)
	for _, p := range []Policy{
		PolicyViewFoundation, PolicyDeleteFoundation, PolicyTransferOwnership,
		PolicyManageMembers, PolicyViewAuditLog, PolicyViewReports,
		PolicyManageDocuments, PolicyApproveDocuments, PolicySignDocuments,
		PolicyManageExpenses, PolicyApproveExpenses, PolicyManageMeetings,
		PolicyManageInvestments, PolicyManageProjects, PolicyManageGrants,
		PolicyStartWorkflow, PolicyManageWorkflows,
	} {
		m[p.name] = p
	}
	return m
}()

// LookupPolicy finds a shared policy by name.
func LookupPolicy(name string) (Policy, bool) {
	p, ok := policyCatalog[name]
	return p, ok
}

// DenyReason explains a refused decision.
type DenyReason string

const (
	ReasonOwnerRequired           DenyReason = "owner required"
	ReasonNoTenantAccess          DenyReason = "no tenant access"
	ReasonInsufficientPermissions DenyReason = "insufficient permissions"
	ReasonSignatureNotVerified    DenyReason = "signature not verified"
	ReasonNotAssignee             DenyReason = "not assignee"
)

// Decision is the outcome of an authorization check. A denial is a normal
// value, not an error.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`
}

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a refusing decision with reason.
func Deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// Err converts a denial into a *DeniedError for callers that need an error.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return deny(d.Reason)
}
