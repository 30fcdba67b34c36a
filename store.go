package ipquery

import "context"

// Store persists resolved records.
// It is called concurrently by all in-flight requests and must be safe for that.
// The record is passed by value; implementations keep it only as long as they need.
type Store interface {
	Store(ctx context.Context, record Record) error
}

// StoreFunc is an adapter to allow the use of an ordinary function as a Store.
type StoreFunc func(ctx context.Context, record Record) error

func (f StoreFunc) Store(ctx context.Context, record Record) error {
	return f(ctx, record)
}
