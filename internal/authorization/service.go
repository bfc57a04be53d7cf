// Package authorization enforces role-based access per organization using a
// casbin policy store backed by the main database.
package authorization

import (
	"context"
	"errors"
)

type Service interface {
	// Authorize checks whether actor may perform action on object within
	// orgID. Actor is "user:<id>" or "system".
	Authorize(ctx context.Context, actor, orgID, object, action string) error
}

var (
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidObject       = errors.New("invalid_object")
	ErrInvalidAction       = errors.New("invalid_action")
	ErrForbidden           = errors.New("forbidden")
)
