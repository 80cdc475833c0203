package storage

import "errors"

// Sentinel errors for ledger failures. Wrap with fmt.Errorf("...: %w") and
// match with errors.Is.
var (
	// ErrStoreInit means the ledger could not be initialized and is unusable.
	ErrStoreInit = errors.New("ledger: store initialization failed")

	// ErrMigration means an existing ledger could not be migrated to the
	// current schema. Initialization recovers by rebuilding an empty schema.
	ErrMigration = errors.New("ledger: migration failed")

	// ErrNotFound means the edit or delete target does not exist.
	ErrNotFound = errors.New("ledger: not found")

	// ErrPersistence means the blob store write failed. The mutation was
	// rolled back and is not visible to later reads.
	ErrPersistence = errors.New("ledger: persistence failed")

	// ErrInvalidAmount means an amount cannot be stored exactly in the ledger.
	ErrInvalidAmount = errors.New("ledger: amount out of range")

	// ErrUnauthorized means an admin-only operation was attempted without authorization.
	ErrUnauthorized = errors.New("ledger: unauthorized")
)

// IsRetryable reports whether the failed operation may succeed if repeated.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistence)
}
