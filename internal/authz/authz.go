package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	casbin "github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

type Action string

const (
	// ActionRead covers lookups and availability checks.
	ActionRead Action = "read"
	// ActionBook covers reserve and release from the booking flow.
	ActionBook Action = "book"
	// ActionManage covers every slot mutation made from the admin dashboard.
	ActionManage Action = "manage"
)

const resourceTimeSlots = "timeslots"

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && (r.act == p.act || p.act == "*")
`

// defaultPolicy is loaded when no policy file is configured.
var defaultPolicy = [][]string{
	{"admin", resourceTimeSlots, "*"},
	{"staff", resourceTimeSlots, string(ActionRead)},
	{"staff", resourceTimeSlots, string(ActionBook)},
	{"booking", resourceTimeSlots, string(ActionRead)},
	{"booking", resourceTimeSlots, string(ActionBook)},
}

// Actor is the authenticated caller.
type Actor struct {
	Subject string
	Roles   []string
}

type Authorizer struct {
	enforcer *casbin.Enforcer
}

// NewAuthorizer builds the enforcer from policyFile, a casbin CSV policy. An empty path
// loads the built-in role policy.
func NewAuthorizer(policyFile string) (*Authorizer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("authz model: %w", err)
	}

	path := strings.TrimSpace(policyFile)
	if path != "" {
		e, err := casbin.NewEnforcer(m, fileadapter.NewAdapter(path))
		if err != nil {
			return nil, fmt.Errorf("authz policy %s: %w", path, err)
		}
		return &Authorizer{enforcer: e}, nil
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("authz enforcer: %w", err)
	}
	if _, err := e.AddPolicies(defaultPolicy); err != nil {
		return nil, fmt.Errorf("authz default policy: %w", err)
	}
	return &Authorizer{enforcer: e}, nil
}

// Can reports whether actor may perform action on time slots. Any one of the actor's
// roles, or the subject itself, granting the action is enough.
func (a *Authorizer) Can(actor Actor, action Action) (bool, error) {
	if actor.Subject == "" {
		return false, ErrUnauthenticated
	}
	subjects := append([]string{actor.Subject}, actor.Roles...)
	for _, sub := range subjects {
		if sub == "" {
			continue
		}
		ok, err := a.enforcer.Enforce(sub, resourceTimeSlots, string(action))
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// MustCan returns ErrForbidden when actor lacks action.
func (a *Authorizer) MustCan(actor Actor, action Action) error {
	ok, err := a.Can(actor, action)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s may not %s timeslots", ErrForbidden, actor.Subject, action)
	}
	return nil
}

func (a *Authorizer) CanManageTimeSlots(actor Actor) bool {
	ok, err := a.Can(actor, ActionManage)
	return err == nil && ok
}

type actorKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
