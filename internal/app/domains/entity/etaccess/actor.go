package etaccess

import (
	"context"
	"errors"
)

var (
	ErrInvalidRole     = errors.New("unknown role")
	ErrMissingLocation = errors.New("non-admin staff must belong to a location")
)

// Role 员工角色
type Role string

const (
	RoleReception  Role = "receptie"
	RoleProcessing Role = "procesare"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	switch r {
	case RoleReception, RoleProcessing, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Elevated admin 和 super_admin 不受门店限制
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Actor 当前操作人（访问控制上下文，只包含角色和门店）
type Actor struct {
	UserID   string
	Name     string
	Role     Role
	Location string
}

// NewActor 创建操作人
func NewActor(userID, name string, role Role, location string) (Actor, error) {
	if !role.Valid() {
		return Actor{}, ErrInvalidRole
	}
	if !role.Elevated() && location == "" {
		return Actor{}, ErrMissingLocation
	}
	return Actor{UserID: userID, Name: name, Role: role, Location: location}, nil
}

// IsElevated 是否为高权限角色
func (a Actor) IsElevated() bool {
	return a.Role.Elevated()
}

// CanAccess 门店范围校验
func (a Actor) CanAccess(location string) bool {
	return a.IsElevated() || (a.Location != "" && a.Location == location)
}

// ScopeLocation 查询时的门店过滤条件：普通角色固定为自己的门店
func (a Actor) ScopeLocation(requested string) string {
	if a.IsElevated() {
		return requested
	}
	return a.Location
}

// DisplayName 扫码记录中使用的名称
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.UserID
}

type actorKey struct{}

// WithActor 写入 context
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// FromContext 从 context 读取操作人
func FromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
