package domain

// Role is a principal's position in the fixed authority hierarchy. A
// principal holds at most one role at a time; levels define the ordering and
// two roles may share a level (auditor and document manager are peers).
type Role string

const (
	RoleUser            Role = "user"
	RoleVerifier        Role = "verifier"
	RoleAuditor         Role = "auditor"
	RoleDocumentManager Role = "document_manager"
	RoleModerator       Role = "moderator"
	RoleAdmin           Role = "admin"
)

var roleLevels = map[Role]int{
	RoleUser:            1,
	RoleVerifier:        2,
	RoleAuditor:         3,
	RoleDocumentManager: 3,
	RoleModerator:       4,
	RoleAdmin:           5,
}

// Level returns the hierarchy level of the role, or 0 for unknown roles.
// A zero level never satisfies any requirement.
func (r Role) Level() int {
	return roleLevels[r]
}

// Valid reports whether the role is one of the defined hierarchy members.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Meets reports whether this role's level satisfies the required role's
// level. An invalid role on either side never satisfies.
func (r Role) Meets(required Role) bool {
	have, want := r.Level(), required.Level()
	return have > 0 && want > 0 && have >= want
}
