package catalog

import "context"

// Datastore is the persistence collaborator behind the catalog. The physical
// encoding (Postgres, flat file, ...) is the implementation's business; the
// catalog only requires that Commit durably persists the snapshot it is
// handed before returning.
type Datastore interface {
	// Load returns the persisted snapshot, or a zero snapshot when the
	// store is empty. Called once at startup.
	Load(ctx context.Context) (Snapshot, error)
	// Commit durably persists the snapshot. The catalog calls it after
	// every mutating operation while holding its lock, so implementations
	// see a consistent view and need no locking of their own.
	Commit(ctx context.Context, snap Snapshot) error
}
