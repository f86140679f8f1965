package governance

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/bits"
	"sort"
)

// Permission is a named capability a membership may hold inside a foundation.
type Permission uint8

const (
	ManageDocuments Permission = iota
	ApproveDocuments
	SignDocuments
	ManageExpenses
	ApproveExpenses
	ManageMeetings
	ManageInvestments
	ManageProjects
	ManageGrants
	ManageMembers
	ViewReports
	ViewAuditLog

	permissionCount
)

var permissionKeys = [permissionCount]string{
	ManageDocuments:   "manage_documents",
	ApproveDocuments:  "approve_documents",
	SignDocuments:     "sign_documents",
	ManageExpenses:    "manage_expenses",
	ApproveExpenses:   "approve_expenses",
	ManageMeetings:    "manage_meetings",
	ManageInvestments: "manage_investments",
	ManageProjects:    "manage_projects",
	ManageGrants:      "manage_grants",
	ManageMembers:     "manage_members",
	ViewReports:       "view_reports",
	ViewAuditLog:      "view_audit_log",
}

var permissionsByKey = func() map[string]Permission {
	m := make(map[string]Permission, permissionCount)
	for p, key := range permissionKeys {
		m[key] = Permission(p)
	}
	return m
}()

// String returns the stored key of the permission.
func (p Permission) String() string {
	if p >= permissionCount {
		return fmt.Sprintf("permission(%d)", uint8(p))
	}
	return permissionKeys[p]
}

// Valid reports whether p is a member of the closed permission enum.
func (p Permission) Valid() bool {
	return p < permissionCount
}

// ParsePermission maps a stored key to its Permission.
func ParsePermission(key string) (Permission, error) {
	p, ok := permissionsByKey[key]
	if !ok {
		return 0, fmt.Errorf("%w: unknown permission %q", ErrInvalidInput, key)
	}
	return p, nil
}

// AllPermissions lists every permission in declaration order.
func AllPermissions() []Permission {
	out := make([]Permission, 0, permissionCount)
	for p := Permission(0); p < permissionCount; p++ {
		out = append(out, p)
	}
	return out
}

// PermissionSet is a bitset over Permission. The zero value grants nothing.
type PermissionSet uint64

// NewPermissionSet builds a set holding perms.
func NewPermissionSet(perms ...Permission) PermissionSet {
	var s PermissionSet
	for _, p := range perms {
		s = s.With(p)
	}
	return s
}

// FullPermissionSet grants every permission.
func FullPermissionSet() PermissionSet {
	return NewPermissionSet(AllPermissions()...)
}

// Has reports whether p is granted. Unknown permissions are never granted.
func (s PermissionSet) Has(p Permission) bool {
	if !p.Valid() {
		return false
	}
	return s&(1<<p) != 0
}

// With returns a copy of s granting p.
func (s PermissionSet) With(p Permission) PermissionSet {
	if !p.Valid() {
		return s
	}
	return s | 1<<p
}

// Without returns a copy of s revoking p.
func (s PermissionSet) Without(p Permission) PermissionSet {
	if !p.Valid() {
		return s
	}
	return s &^ (1 << p)
}

// Len counts granted permissions.
func (s PermissionSet) Len() int {
	return bits.OnesCount64(uint64(s))
}

// List returns the granted permissions in declaration order.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, s.Len())
	for p := Permission(0); p < permissionCount; p++ {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// Map renders the set the way it is persisted: every known key, true or false.
func (s PermissionSet) Map() map[string]bool {
	m := make(map[string]bool, permissionCount)
	for p := Permission(0); p < permissionCount; p++ {
		m[p.String()] = s.Has(p)
	}
	return m
}

// PermissionSetFromMap decodes a stored key map. Unknown keys are dropped and
// missing keys stay false.
func PermissionSetFromMap(m map[string]bool) PermissionSet {
	var s PermissionSet
	for key, granted := range m {
		if !granted {
			continue
		}
		if p, ok := permissionsByKey[key]; ok {
			s = s.With(p)
		}
	}
	return s
}

// Keys returns the granted keys sorted alphabetically.
func (s PermissionSet) Keys() []string {
	keys := make([]string, 0, s.Len())
	for _, p := range s.List() {
		keys = append(keys, p.String())
	}
	sort.Strings(keys)
	return keys
}

func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var m map[string]bool
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to decode permission set: %w", err)
	}
	*s = PermissionSetFromMap(m)
	return nil
}

// Value stores the set as a JSON object column.
func (s PermissionSet) Value() (driver.Value, error) {
	b, err := json.Marshal(s.Map())
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads a JSON object column. NULL decodes to the empty set.
func (s *PermissionSet) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = 0
		return nil
	case []byte:
		return s.UnmarshalJSON(v)
	case string:
		return s.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("unsupported permission set column type %T", value)
	}
}
