// Package storeerr translates mongo-driver errors into the domain sentinels
// in errs so services never compare against driver types.
package storeerr

import (
	"errors"
	"fmt"

	"github.com/dalemusser/opshub/internal/domain/errs"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/mongo"
)

// Wrap maps err to a domain error, keeping the original in the chain.
// what names the thing being read or written ("project", "cart").
func Wrap(what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", what, errs.ErrNotFound)
	case wafflemongo.IsDup(err):
		return fmt.Errorf("%s: %w", what, errs.ErrDuplicate)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err):
		return fmt.Errorf("%s: %w: %v", what, errs.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}
