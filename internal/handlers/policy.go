package handlers

import (
	"errors"

	"github.com/TwigBush/taskmarket/internal/identity"
)

var errForeignOwner = errors.New("requested owner is not the caller")

// OwnerPolicy resolves which owner a "my tasks" request is scoped to.
//
// Strict policies always scope to the caller and refuse a userEmail query
// parameter naming someone else. Non-strict policies trust the parameter and
// leave the request unscoped when it is absent.
type OwnerPolicy struct {
	Strict bool
}

func (p OwnerPolicy) Resolve(caller identity.Identity, requested string) (owner string, scoped bool, err error) {
	if !p.Strict {
		return requested, requested != "", nil
	}
	owner = caller.Owner()
	if requested != "" && requested != owner {
		return "", false, errForeignOwner
	}
	return owner, true, nil
}
