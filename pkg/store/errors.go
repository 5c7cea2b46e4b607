package store

import (
	"errors"
	"fmt"

	"github.com/thomasrohde/bindeval/pkg/value"
)

// ErrRootScope is returned by Pop when only the root scope remains.
var ErrRootScope = errors.New("store: cannot pop the root scope")

// MutabilityError reports an assignment to an immutable binding that was
// already initialised. The stored value is left unchanged.
type MutabilityError struct {
	Name      string
	Attempted value.Value
	Current   value.Value
}

func (e *MutabilityError) Error() string {
	return fmt.Sprintf("cannot assign twice to immutable binding `%s` (attempted %s)", e.Name, e.Attempted)
}

// KindMismatchError reports an assignment whose value type differs from the
// binding's. Shadowing through Declare is the way to change a type.
type KindMismatchError struct {
	Name string
	Want string
	Got  string
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("mismatched types for `%s`: expected %s, found %s", e.Name, e.Want, e.Got)
}

// InvalidBindingError is the panic value raised when a BindingID is used
// after its scope ended, or was never issued by this store.
type InvalidBindingError struct {
	ID BindingID
}

func (e *InvalidBindingError) Error() string {
	return fmt.Sprintf("store: binding id %v is not live", e.ID)
}

// UninitializedError is the panic value raised when a reserved binding is
// read before its first assignment.
type UninitializedError struct {
	Name string
}

func (e *UninitializedError) Error() string {
	return fmt.Sprintf("store: binding `%s` read before initialisation", e.Name)
}
