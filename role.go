package governance

import "fmt"

// GlobalRole is a platform-wide role that is independent of any foundation.
type GlobalRole string

const (
	GlobalRoleNone  GlobalRole = ""
	GlobalRoleAdmin GlobalRole = "admin"
)

// MemberRole labels a membership inside a foundation. The role only picks the
// default permission set; authorization always reads the stored permissions.
type MemberRole string

const (
	RoleOwner       MemberRole = "owner"
	RoleAdmin       MemberRole = "admin"
	RoleBoardMember MemberRole = "board_member"
	RoleTreasurer   MemberRole = "treasurer"
	RoleMember      MemberRole = "member"
	RoleViewer      MemberRole = "viewer"
)

var roleDefaults = map[MemberRole]PermissionSet{
	RoleOwner: FullPermissionSet(),
	RoleAdmin: FullPermissionSet(),
	RoleBoardMember: NewPermissionSet(
		ManageDocuments, ApproveDocuments, SignDocuments,
		ApproveExpenses, ManageMeetings, ManageInvestments,
		ManageProjects, ManageGrants, ViewReports,
	),
	RoleTreasurer: NewPermissionSet(
		ManageDocuments, ManageExpenses, ApproveExpenses,
		ManageInvestments, ViewReports, ViewAuditLog,
	),
	RoleMember: NewPermissionSet(ManageDocuments, ManageMeetings, ManageProjects),
	RoleViewer: NewPermissionSet(ViewReports),
}

// Valid reports whether r is a known member role.
func (r MemberRole) Valid() bool {
	_, ok := roleDefaults[r]
	return ok
}

// DefaultPermissions returns the permission set a new member with role r gets.
func DefaultPermissions(r MemberRole) (PermissionSet, error) {
	set, ok := roleDefaults[r]
	if !ok {
		return 0, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, r)
	}
	return set, nil
}
