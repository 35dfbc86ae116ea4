// Package gate provides profile-based authorization: a subject resolves to a
// profile (a named role holding "resource:action" permissions with
// wildcards) and the Gate checks the requested permission against it.
//
// The package has no dependency on domain models; the subject type is a
// type parameter (a user id, a claims struct...).
package gate

import "context"

// Gate is the central authorization checkpoint.
type Gate[U comparable] struct {
	resolver ProfileResolver[U]
}

// NewGate creates a gate resolving profiles through resolver.
func NewGate[U comparable](resolver ProfileResolver[U]) *Gate[U] {
	return &Gate[U]{resolver: resolver}
}

// Authorize returns ErrUnauthorized for a zero subject and ErrForbidden when
// the subject's profile is missing or lacks resource:action. Resolver errors
// are returned as is.
func (g *Gate[U]) Authorize(ctx context.Context, subject U, action Action, resourceType string) error {
	var zero U
	if subject == zero {
		return ErrUnauthorized
	}
	profile, err := g.resolver.Resolve(ctx, subject)
	if err != nil {
		return err
	}
	if profile == nil || !profile.HasPermission(NewPermission(resourceType, action)) {
		return ErrForbidden
	}
	return nil
}
