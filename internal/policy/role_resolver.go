package policy

import (
	"context"
	"errors"

	"github.com/diewo77/dealership-api/gate"
	"github.com/diewo77/dealership-api/internal/models"
	"gorm.io/gorm"
)

// Resource types guarded by the gate.
const (
	ResourceClient  = "client"
	ResourceVehicle = "vehicle"
	ResourceSale    = "sale"
	ResourceUser    = "user"
)

// DefaultRoles maps user roles to their permission profiles. Admins can do
// everything; sellers run sales and manage clients but only read inventory,
// cannot delete sales and have no access to other users.
func DefaultRoles() gate.Roles {
	return gate.Roles{
		string(models.RoleAdmin): gate.NewStaticProfile(string(models.RoleAdmin), gate.PermissionSuperAdmin),
		string(models.RoleSeller): gate.NewStaticProfile(string(models.RoleSeller),
			gate.NewPermission(ResourceClient, gate.WildcardAll),
			gate.NewPermission(ResourceVehicle, gate.ActionList),
			gate.NewPermission(ResourceVehicle, gate.ActionView),
			gate.NewPermission(ResourceSale, gate.ActionList),
			gate.NewPermission(ResourceSale, gate.ActionView),
			gate.NewPermission(ResourceSale, gate.ActionCreate),
			gate.NewPermission(ResourceSale, gate.ActionUpdate),
			gate.NewPermission(ResourceSale, gate.ActionConclude),
			gate.NewPermission(ResourceSale, gate.ActionCancel),
			gate.NewPermission(ResourceSale, gate.ActionPay),
		),
	}
}

// DBRoleResolver resolves the profile of a user from the role stored on the
// users row.
type DBRoleResolver struct {
	DB    *gorm.DB
	Roles gate.Roles
}

// NewDBRoleResolver creates a resolver over roles.
func NewDBRoleResolver(db *gorm.DB, roles gate.Roles) *DBRoleResolver {
	return &DBRoleResolver{DB: db, Roles: roles}
}

// Resolve returns nil without error for unknown users and unknown roles.
func (r *DBRoleResolver) Resolve(ctx context.Context, userID uint) (gate.Profile, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Select("id", "role").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.Roles.Profile(string(user.Role)), nil
}
