package internal

import (
	"errors"
	"fmt"
)

// Internal-consistency failures. They are raised with panic, wrapped with
// context, and can be matched with errors.Is after recovering.
var (
	ErrNotInjected          = errors.New("recon: collaborator not injected")
	ErrCallbackMismatch     = errors.New("recon: mismatched list of contexts in callback queue")
	ErrAsapOutsideBatch     = errors.New("recon: asap called outside of a batching scope")
	ErrDirtyLengthMismatch  = errors.New("recon: stored dirty length does not match dirty queue length")
	ErrAlreadyInTransaction = errors.New("recon: transaction is already in progress")
	ErrInvalidNode          = errors.New("recon: invalid node description")
	ErrInvalidElementType   = errors.New("recon: invalid element type")
	ErrNoRefOwner           = errors.New("recon: named refs require an owner")
	ErrForeignRelease       = errors.New("recon: released instance is already in the pool")
)

func invariant(err error, format string, args ...any) {
	panic(fmt.Errorf("%w: "+format, append([]any{err}, args...)...))
}
