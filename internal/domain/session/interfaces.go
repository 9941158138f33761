package session

import "context"

// Storage provides durable key-value persistence for the session.
type Storage interface {
	Load(ctx context.Context, keys []string) (map[string]string, int64, error)
	Replace(ctx context.Context, values map[string]string, removed []string) (int64, error)
	Revision(ctx context.Context) (int64, error)
}
