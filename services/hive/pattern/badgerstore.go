// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pattern

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/hivemind/services/hive/datatypes"
)

// Evidence keys are the prefix plus a big-endian sequence number, so
// Badger's key order is the insertion order.
var (
	evidencePrefix = []byte("ev/")
	sequenceKey    = []byte("ev_seq")
)

// sequenceBandwidth is the lease size for the Badger sequence. Leased
// numbers may be skipped across restarts; ordering is still monotonic.
const sequenceBandwidth = 128

// BadgerConfig holds configuration for a Badger-backed store.
type BadgerConfig struct {
	// Path is the directory for database files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	// Default: true for production, false for testing.
	SyncWrites bool

	// Logger receives Badger's internal log output. If nil, Badger's
	// internal logging is disabled.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns production defaults: durable, synchronous.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryBadgerConfig returns a configuration for tests: in-memory, no
// sync.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{
		InMemory: true,
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore is a Store backed by an embedded BadgerDB.
//
// # Description
//
// Each evidence record is stored as JSON under a monotonically increasing
// sequence key, so iteration in key order reproduces insertion order.
// Records are write-once: the engine never issues updates or deletes for
// evidence keys.
//
// # Thread Safety
//
// Safe for concurrent use. Badger transactions give Query and Recent a
// consistent snapshot; a concurrent Append is never observed half-written.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence

	mu     sync.Mutex
	closed bool
}

// OpenBadger opens a Badger-backed store with the given configuration.
//
// # Inputs
//
//	cfg - Store configuration. Path is required unless InMemory is true.
//
// # Outputs
//
//	*BadgerStore - The opened store. Caller must Close() it.
//	error - Non-nil if the path is invalid or the database cannot open.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	seq, err := db.GetSequence(sequenceKey, sequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open evidence sequence: %w", err)
	}

	return &BadgerStore{db: db, seq: seq}, nil
}

// Append adds one record after validation.
func (s *BadgerStore) Append(ctx context.Context, ev datatypes.Evidence) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvidence, err)
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(&ev)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("next evidence sequence: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(evidenceKey(n), payload)
	})
	if err != nil {
		return fmt.Errorf("append evidence: %w", err)
	}
	return nil
}

// Query returns matching records in insertion order.
func (s *BadgerStore) Query(ctx context.Context, pred func(*datatypes.Evidence) bool) ([]datatypes.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var out []datatypes.Evidence
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(evidencePrefix); it.ValidForPrefix(evidencePrefix); it.Next() {
			var ev datatypes.Evidence
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &ev)
			}); err != nil {
				return fmt.Errorf("decode evidence: %w", err)
			}
			if pred == nil || pred(&ev) {
				out = append(out, ev)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Recent returns the last n records, oldest first.
func (s *BadgerStore) Recent(ctx context.Context, n int) ([]datatypes.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	var newestFirst []datatypes.Evidence
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// In reverse mode, seek past the last possible evidence key.
		seekKey := append(append([]byte{}, evidencePrefix...),
			0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		for it.Seek(seekKey); it.ValidForPrefix(evidencePrefix) && len(newestFirst) < n; it.Next() {
			var ev datatypes.Evidence
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &ev)
			}); err != nil {
				return fmt.Errorf("decode evidence: %w", err)
			}
			newestFirst = append(newestFirst, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reverse to oldest-first.
	out := make([]datatypes.Evidence, len(newestFirst))
	for i, ev := range newestFirst {
		out[len(newestFirst)-1-i] = ev
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *BadgerStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(evidencePrefix); it.ValidForPrefix(evidencePrefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Close releases the sequence lease and closes the database.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.seq.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release evidence sequence: %w", err))
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close badger store: %w", err))
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (s *BadgerStore) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// evidenceKey builds the key for sequence number n.
func evidenceKey(n uint64) []byte {
	key := make([]byte, len(evidencePrefix)+8)
	copy(key, evidencePrefix)
	binary.BigEndian.PutUint64(key[len(evidencePrefix):], n)
	return key
}

var _ Store = (*BadgerStore)(nil)
