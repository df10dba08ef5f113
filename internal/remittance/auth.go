package remittance

import (
	"context"
	"fmt"

	"remittance-escrow-go/internal/models"
)

// Authorizer fails unless the request in ctx acts on behalf of identity.
type Authorizer interface {
	Require(ctx context.Context, identity string) error
}

// CallerAuthorizer trusts the caller identity the transport attached to the
// context, e.g. the subject of a verified bearer token.
type CallerAuthorizer struct{}

func (CallerAuthorizer) Require(ctx context.Context, identity string) error {
	caller := models.CallerFromContext(ctx)
	if caller == "" {
		return fmt.Errorf("%w: no caller identity, %s required", ErrUnauthorized, identity)
	}
	if caller != identity {
		return fmt.Errorf("%w: caller %s is not %s", ErrUnauthorized, caller, identity)
	}
	return nil
}
