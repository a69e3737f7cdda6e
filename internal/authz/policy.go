// Package authz maps every protected operation to the roles allowed to run it.
package authz

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"perito.app/casetrack/internal/entity"
	"perito.app/casetrack/pkg/apperror"
)

type Operation string

const (
	AuthLogout Operation = "auth.logout"
	AuthMe     Operation = "auth.me"

	UserCreate         Operation = "user.create"
	UserList           Operation = "user.list"
	UserGet            Operation = "user.get"
	UserMe             Operation = "user.me"
	UserUpdate         Operation = "user.update"
	UserDelete         Operation = "user.delete"
	UserResetPassword  Operation = "user.resetPassword"
	UserChangePassword Operation = "user.changePassword"

	CasoCreate        Operation = "caso.create"
	CasoList          Operation = "caso.list"
	CasoGet           Operation = "caso.get"
	CasoUpdate        Operation = "caso.update"
	CasoAppendHistory Operation = "caso.appendHistory"
	CasoDelete        Operation = "caso.delete"

	EvidenciaCreate   Operation = "evidencia.create"
	EvidenciaList     Operation = "evidencia.list"
	EvidenciaGet      Operation = "evidencia.get"
	EvidenciaDownload Operation = "evidencia.download"
	EvidenciaUpdate   Operation = "evidencia.update"
	EvidenciaDelete   Operation = "evidencia.delete"

	ActivityStream Operation = "activity.stream"
)

var (
	allRoles    = []string{entity.RoleAdmin, entity.RolePerito, entity.RoleAssistente}
	adminOnly   = []string{entity.RoleAdmin}
	adminPerito = []string{entity.RoleAdmin, entity.RolePerito}
	adminAssist = []string{entity.RoleAdmin, entity.RoleAssistente}
)

// DefaultTable is the role table loaded into the enforcer.
var DefaultTable = map[Operation][]string{
	AuthLogout:         allRoles,
	AuthMe:             allRoles,
	UserMe:             allRoles,
	UserChangePassword: allRoles,
	ActivityStream:     allRoles,

	UserCreate:        adminOnly,
	UserUpdate:        adminOnly,
	UserDelete:        adminOnly,
	UserResetPassword: adminOnly,
	UserList:          allRoles,
	UserGet:           allRoles,

	CasoCreate:        adminPerito,
	CasoUpdate:        adminPerito,
	CasoAppendHistory: adminPerito,
	CasoList:          allRoles,
	CasoGet:           allRoles,
	CasoDelete:        adminOnly,

	EvidenciaCreate:   adminAssist,
	EvidenciaList:     allRoles,
	EvidenciaGet:      allRoles,
	EvidenciaDownload: allRoles,
	EvidenciaUpdate:   adminOnly,
	EvidenciaDelete:   adminOnly,
}

const modelText = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj
`

const MsgForbidden = "Acesso negado. Permissão insuficiente."

type Policy struct {
	enforcer *casbin.SyncedEnforcer
}

func NewPolicy(table map[Operation][]string) (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	for op, roles := range table {
		for _, role := range roles {
			if _, err := enforcer.AddPolicy(role, string(op)); err != nil {
				return nil, fmt.Errorf("failed to add policy %s/%s: %w", role, op, err)
			}
		}
	}

	return &Policy{enforcer: enforcer}, nil
}

// Allowed never errors on unknown roles or operations; they are simply denied.
func (p *Policy) Allowed(op Operation, role string) bool {
	ok, err := p.enforcer.Enforce(role, string(op))
	allowed := err == nil && ok
	recordDecision(role, op, allowed)
	return allowed
}

func (p *Policy) Authorize(op Operation, role string) error {
	if !p.Allowed(op, role) {
		return apperror.Forbidden(MsgForbidden)
	}
	return nil
}
