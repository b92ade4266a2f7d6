package domain

import (
	"context"
	"strings"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RolePOS   Role = "pos"
)

// ParseRole accepts a role name case-insensitively. An empty name is RolePOS.
func ParseRole(name string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(name))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RolePOS, "":
		return RolePOS, true
	default:
		return "", false
	}
}

type Capability string

const (
	CapViewDashboard   Capability = "view_dashboard"
	CapCheckout        Capability = "checkout"
	CapManageInventory Capability = "manage_inventory"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {CapViewDashboard, CapCheckout, CapManageInventory},
	RolePOS:   {CapViewDashboard, CapCheckout},
}

func (r Role) Capabilities() []Capability {
	return roleCapabilities[r]
}

func (r Role) Can(c Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}

type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

func (p Profile) Can(c Capability) bool {
	return p.Role.Can(c)
}

type profileKey struct{}

// WithProfile returns a context carrying the profile resolved for this request.
func WithProfile(ctx context.Context, p Profile) context.Context {
	return context.WithValue(ctx, profileKey{}, p)
}

func ProfileFromContext(ctx context.Context) (Profile, bool) {
	p, ok := ctx.Value(profileKey{}).(Profile)
	return p, ok
}

// SignUpInput is the sign-up form.
type SignUpInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Name            string `json:"name"`
	Role            string `json:"role"`
}

const MinPasswordLength = 6

// Validate runs the form checks that never need the store.
func (in SignUpInput) Validate() (Role, error) {
	if strings.TrimSpace(in.Email) == "" {
		return "", NewValidationError("email", MsgEmailRequired)
	}
	if in.Password != in.ConfirmPassword {
		return "", NewValidationError("confirm_password", MsgPasswordMismatch)
	}
	if len(in.Password) < MinPasswordLength {
		return "", NewValidationError("password", MsgPasswordTooShort)
	}
	role, ok := ParseRole(in.Role)
	if !ok {
		return "", NewValidationError("role", MsgInvalidRole)
	}
	return role, nil
}
