package ledger

import "errors"

var (
	// ErrCorrupt reports an unreadable backing file or a header that does not
	// match the expected stage columns. The caller decides whether to rebuild
	// or abort; the ledger never repairs itself.
	ErrCorrupt = errors.New("corrupt ledger")

	// ErrInvalidTransition reports an attempt to revert a completed flag.
	// Flags are monotonic; hitting this is a logic bug, not an operational
	// condition.
	ErrInvalidTransition = errors.New("invalid ledger transition")

	// ErrUnknownStage reports a stage column the ledger was not created with.
	ErrUnknownStage = errors.New("unknown ledger stage")
)
