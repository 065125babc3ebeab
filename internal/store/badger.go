package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
)

const (
	// Values at or below this size are stored as-is.
	compressThreshold = 1024

	flagRaw  byte = 0
	flagZstd byte = 1
)

// Badger is a Store backed by an embedded badger database. Large values
// (chapter bodies) are zstd-compressed when that makes them smaller.
type Badger struct {
	db      *badger.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// OpenBadger opens or creates a badger database in dir.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	return openBadger(opts)
}

// OpenBadgerInMemory opens a badger database that never touches disk.
func OpenBadgerInMemory() (*Badger, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	return openBadger(opts)
}

func openBadger(opts badger.Options) (*Badger, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Badger{db: db, encoder: encoder, decoder: decoder}, nil
}

// GetItem returns the value stored at key.
func (b *Badger) GetItem(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var raw []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if errors.Is(err, badger.ErrDBClosed) {
		return "", ErrClosed
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}

	value, err := b.decode(raw)
	if err != nil {
		return "", fmt.Errorf("decode %q: %w", key, err)
	}
	return value, nil
}

// SetItem stores value at key.
func (b *Badger) SetItem(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := b.encode(value)
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key.
func (b *Badger) RemoveItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// Close flushes and closes the database.
func (b *Badger) Close() error {
	b.decoder.Close()
	if err := b.encoder.Close(); err != nil {
		_ = b.db.Close()
		return err
	}
	return b.db.Close()
}

// encode prefixes the payload with a flag byte saying how it is stored.
func (b *Badger) encode(value string) []byte {
	if len(value) > compressThreshold {
		compressed := b.encoder.EncodeAll([]byte(value), make([]byte, 1, len(value)/2))
		if len(compressed) < len(value)+1 {
			compressed[0] = flagZstd
			return compressed
		}
	}

	out := make([]byte, 0, len(value)+1)
	out = append(out, flagRaw)
	return append(out, value...)
}

func (b *Badger) decode(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	switch raw[0] {
	case flagRaw:
		return string(raw[1:]), nil
	case flagZstd:
		out, err := b.decoder.DecodeAll(raw[1:], nil)
		if err != nil {
			return "", err
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("unknown value flag %d", raw[0])
	}
}
