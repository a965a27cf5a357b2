package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleMeets(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		required Role
		want     bool
	}{
		{"admin meets verifier", RoleAdmin, RoleVerifier, true},
		{"moderator meets verifier", RoleModerator, RoleVerifier, true},
		{"auditor meets verifier", RoleAuditor, RoleVerifier, true},
		{"document manager meets verifier", RoleDocumentManager, RoleVerifier, true},
		{"verifier meets verifier", RoleVerifier, RoleVerifier, true},
		{"user does not meet verifier", RoleUser, RoleVerifier, false},
		{"unassigned does not meet verifier", Role(""), RoleVerifier, false},
		{"auditor and manager are peers", RoleAuditor, RoleDocumentManager, true},
		{"manager does not meet moderator", RoleDocumentManager, RoleModerator, false},
		{"admin meets admin", RoleAdmin, RoleAdmin, true},
		{"moderator does not meet admin", RoleModerator, RoleAdmin, false},
		{"unknown required role never satisfied", RoleAdmin, Role("root"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.Meets(tt.required))
		})
	}
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("superuser").Valid())
}

func TestParseDocumentID(t *testing.T) {
	id, ok := ParseDocumentID("42")
	assert.True(t, ok)
	assert.Equal(t, DocumentID(42), id)

	_, ok = ParseDocumentID("0")
	assert.False(t, ok)

	_, ok = ParseDocumentID("abc")
	assert.False(t, ok)
}
