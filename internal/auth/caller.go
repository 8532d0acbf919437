package auth

import (
	"context"

	domain "school-registration/internal/domain/registration"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleFamily  Role = "FAMILY"
	RoleTeacher Role = "TEACHER"
)

// Caller is the authenticated identity behind a request. FamilyID is set for
// family accounts only.
type Caller struct {
	UserID   string
	Role     Role
	FamilyID int64
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

type callerKey struct{}

func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFrom(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(Caller)
	return caller, ok
}

// RequireRole returns the caller when its role is one of roles.
func RequireRole(ctx context.Context, roles ...Role) (Caller, error) {
	caller, ok := CallerFrom(ctx)
	if !ok {
		return Caller{}, domain.ErrUnauthenticated
	}
	for _, role := range roles {
		if caller.Role == role {
			return caller, nil
		}
	}
	return Caller{}, domain.ErrForbidden
}

// RequireFamily admits administrators and the family that owns familyID.
func RequireFamily(ctx context.Context, familyID int64) (Caller, error) {
	caller, err := RequireRole(ctx, RoleAdmin, RoleFamily)
	if err != nil {
		return Caller{}, err
	}
	if caller.Role == RoleFamily && caller.FamilyID != familyID {
		return Caller{}, domain.ErrForbidden
	}
	return caller, nil
}
