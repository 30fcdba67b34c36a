// Package store contains ready-made ipquery.Store implementations.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/go-arrower/ipquery"
)

var ErrNotFound = errors.New("not found")

// NewMemory returns a Store keeping all records in memory.
// It is intended for tests and demos, records are never evicted.
func NewMemory() *Memory {
	return &Memory{
		mu:      sync.Mutex{},
		records: []ipquery.Record{},
	}
}

type Memory struct {
	mu      sync.Mutex
	records []ipquery.Record
}

var _ ipquery.Store = (*Memory)(nil)

func (s *Memory) Store(ctx context.Context, record ipquery.Record) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck // return the context's error as is
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)

	return nil
}

// Records returns all stored records in the order they were stored.
func (s *Memory) Records() []ipquery.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]ipquery.Record, len(s.records))
	copy(records, s.records)

	return records
}

// Latest returns the record stored last for ip.
func (s *Memory) Latest(_ context.Context, ip string) (ipquery.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].IP == ip {
			return s.records[i], nil
		}
	}

	return ipquery.Record{}, ErrNotFound
}

func (s *Memory) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records), nil
}
