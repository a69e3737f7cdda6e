package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perito.app/casetrack/internal/entity"
	"perito.app/casetrack/pkg/apperror"
)

func newDefaultPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := NewPolicy(DefaultTable)
	require.NoError(t, err)
	return p
}

func TestPolicyMatchesRoleTable(t *testing.T) {
	p := newDefaultPolicy(t)

	tests := []struct {
		op      Operation
		role    string
		allowed bool
	}{
		{CasoCreate, entity.RolePerito, true},
		{CasoCreate, entity.RoleAssistente, false},
		{CasoDelete, entity.RoleAdmin, true},
		{CasoDelete, entity.RolePerito, false},
		{CasoDelete, entity.RoleAssistente, false},
		{CasoGet, entity.RoleAssistente, true},
		{EvidenciaCreate, entity.RoleAssistente, true},
		{EvidenciaCreate, entity.RolePerito, false},
		{EvidenciaUpdate, entity.RolePerito, false},
		{EvidenciaDownload, entity.RolePerito, true},
		{UserCreate, entity.RolePerito, false},
		{UserList, entity.RoleAssistente, true},
		{UserChangePassword, entity.RoleAssistente, true},
		{ActivityStream, entity.RolePerito, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.op)+"/"+tt.role, func(t *testing.T) {
			assert.Equal(t, tt.allowed, p.Allowed(tt.op, tt.role))
		})
	}
}

func TestPolicyDeniesUnknownRoleAndOperation(t *testing.T) {
	p := newDefaultPolicy(t)

	assert.False(t, p.Allowed(CasoList, "superuser"))
	assert.False(t, p.Allowed(CasoList, ""))
	assert.False(t, p.Allowed(Operation("caso.export"), entity.RoleAdmin))
}

func TestAuthorizeReturnsForbidden(t *testing.T) {
	p := newDefaultPolicy(t)

	err := p.Authorize(CasoDelete, entity.RoleAssistente)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	assert.Equal(t, 403, apperror.MapErrorToStatus(err))

	assert.NoError(t, p.Authorize(CasoDelete, entity.RoleAdmin))
}

func TestEveryOperationHasAdmin(t *testing.T) {
	for op, roles := range DefaultTable {
		assert.Contains(t, roles, entity.RoleAdmin, string(op))
	}
}
