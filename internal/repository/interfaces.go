package repository

import "context"

// KeyValueRepository manages durable client-side key-value storage.
// Every write bumps a monotonically increasing revision so that several
// processes sharing one storage file can notice each other's changes.
type KeyValueRepository interface {
	// Load returns the stored values for keys (missing keys are absent
	// from the map) and the current revision.
	Load(ctx context.Context, keys []string) (map[string]string, int64, error)
	// Replace upserts values and deletes removed keys in one transaction
	// and returns the new revision.
	Replace(ctx context.Context, values map[string]string, removed []string) (int64, error)
	// Revision returns the current revision.
	Revision(ctx context.Context) (int64, error)
}
