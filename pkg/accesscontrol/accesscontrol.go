// Package accesscontrol decides which roles may perform which contract
// actions, using a casbin RBAC model.
package accesscontrol

import (
	"fmt"
	"strings"

	"contract-lifecycle/pkg/config"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("accesscontrol", fx.Provide(New))

// Objects and actions checked by the HTTP boundary.
const (
	ObjectContract = "contract"

	ActionRead    = "read"
	ActionWrite   = "write"
	ActionApprove = "approve"
	ActionDelete  = "delete"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

var defaultPolicies = [][]string{
	{"admin", "*", "*"},
	{"manager", ObjectContract, ActionRead},
	{"manager", ObjectContract, ActionWrite},
	{"manager", ObjectContract, ActionApprove},
	{"manager", ObjectContract, ActionDelete},
	{"member", ObjectContract, ActionRead},
	{"member", ObjectContract, ActionWrite},
	{"viewer", ObjectContract, ActionRead},
	{"system", "*", "*"},
}

// Authorizer answers whether any of a caller's roles grants an action.
type Authorizer interface {
	Allowed(roles []string, object, action string) (bool, error)
}

type casbinAuthorizer struct {
	enforcer *casbin.Enforcer
}

// New loads the model and policy files when configured and otherwise uses
// the built in role table.
func New(cfg *config.Config) (Authorizer, error) {
	if cfg.AccessControl.Model != "" && cfg.AccessControl.Policy != "" {
		e, err := casbin.NewEnforcer(cfg.AccessControl.Model, cfg.AccessControl.Policy)
		if err != nil {
			return nil, fmt.Errorf("load access control policy: %w", err)
		}
		zap.L().Info("access control policy loaded", zap.String("policy", cfg.AccessControl.Policy))
		return &casbinAuthorizer{enforcer: e}, nil
	}
	return NewDefault()
}

// NewDefault builds an authorizer over the built in role table.
func NewDefault() (Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("parse access control model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	if _, err := e.AddPolicies(defaultPolicies); err != nil {
		return nil, fmt.Errorf("load default policies: %w", err)
	}
	return &casbinAuthorizer{enforcer: e}, nil
}

func (a *casbinAuthorizer) Allowed(roles []string, object, action string) (bool, error) {
	for _, role := range roles {
		ok, err := a.enforcer.Enforce(strings.ToLower(role), object, action)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
