package cache

import (
	"github.com/pkg/errors"
)

var (
	// ErrUnresolvableIdentifier is returned for ids confirmed absent by the backend.
	ErrUnresolvableIdentifier = errors.New("unresolvable identifier")
	ErrClosed                 = errors.New("resolver is closed")
	ErrNoFetch                = errors.New("batch fetch function is not defined")
)

func unresolvable(kind string, id any) error {
	return errors.Wrapf(ErrUnresolvableIdentifier, "%s:%v", kind, id)
}
