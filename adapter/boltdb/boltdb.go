// Package boltdb exposes the buckets of a bolt key/value file as a row source.
//
// A query names a bucket and optionally a key prefix as "bucket/prefix".
// Each row has two columns, the key and the value, in ascending key order,
// which makes a bucket with "group/member" shaped keys a natural input for a GroupingIterator.
package boltdb

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/boltdb/bolt"

	"go.llib.dev/rowstream/pkg/errorkit"
	"go.llib.dev/rowstream/pkg/reflectkit"
	"go.llib.dev/rowstream/pkg/rowiter"
)

const ErrBucketNotFound errorkit.Error = "boltdb: bucket not found"

type Store struct {
	DB *bolt.DB
}

var _ rowiter.Source = Store{}

func Open(path string) (Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return Store{}, err
	}
	return Store{DB: db}, nil
}

func (s Store) Close() error { return s.DB.Close() }

// Put stores the value under the key, creating the bucket when needed.
// Writes wait for open cursors to be closed when the file has to grow,
// so don't Put from the goroutine that holds a cursor.
func (s Store) Put(bucket, key string, value []byte) error {
	return s.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
}

func (s Store) Delete(bucket, key string) error {
	return s.DB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// Open starts a read transaction and returns a cursor over the bucket named by the query.
// The transaction stays open until the cursor is closed.
func (s Store) Open(ctx context.Context, query string, args ...any) (rowiter.Cursor, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(args) != 0 {
		return nil, rowiter.ErrUnsupportedOperation.F("boltdb queries take no arguments")
	}
	bucket, prefix, _ := strings.Cut(query, "/")
	tx, err := s.DB.Begin(false)
	if err != nil {
		return nil, err
	}
	b := tx.Bucket([]byte(bucket))
	if b == nil {
		return nil, errorkit.Merge(ErrBucketNotFound.F("%q", bucket), tx.Rollback())
	}
	return &Cursor{
		ctx:    ctx,
		cursor: b.Cursor(),
		prefix: []byte(prefix),
		guard: rowiter.NewGuard(ctx, rowiter.CloserFunc(func() error {
			return tx.Rollback()
		})),
	}, nil
}

type Cursor struct {
	ctx    context.Context
	cursor *bolt.Cursor
	prefix []byte
	guard  *rowiter.Guard

	started bool
	key     []byte
	value   []byte
	err     error
}

func (c *Cursor) Next() bool {
	if c.guard.IsClosed() || c.err != nil {
		return false
	}
	if err := c.ctx.Err(); err != nil {
		c.err = err
		return false
	}
	var k, v []byte
	if c.started {
		k, v = c.cursor.Next()
	} else {
		c.started = true
		k, v = c.cursor.Seek(c.prefix)
	}
	if k == nil || !bytes.HasPrefix(k, c.prefix) {
		c.key, c.value = nil, nil
		return false
	}
	// bolt owns k and v only while the transaction is open
	c.key = bytes.Clone(k)
	c.value = bytes.Clone(v)
	return true
}

func (c *Cursor) Scan(dest ...any) error {
	if c.key == nil {
		return rowiter.ErrExhausted
	}
	return reflectkit.ScanRow([]any{c.key, c.value}, dest...)
}

func (c *Cursor) Err() error { return c.err }

func (c *Cursor) Close() error {
	c.key, c.value = nil, nil
	return c.guard.Close()
}
