package boltdb_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/boltdb/bolt"

	"go.llib.dev/rowstream/adapter/boltdb"
	"go.llib.dev/rowstream/pkg/rowiter"
	"go.llib.dev/rowstream/pkg/rowiter/rowitercontract"
	"go.llib.dev/testcase"
	"go.llib.dev/testcase/assert"
	"go.llib.dev/testcase/let"
	"go.llib.dev/testcase/random"
)

var rnd = random.New(random.CryptoSeed{})

func openStore(tb testing.TB) boltdb.Store {
	s, err := boltdb.Open(filepath.Join(tb.TempDir(), "rowstream.db"))
	assert.NoError(tb, err)
	tb.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(tb testing.TB, s boltdb.Store, kvs []rowitercontract.KV) string {
	bucket := rnd.StringNWithCharset(8, "abcdefghijklmnopqrstuvwxyz")
	assert.NoError(tb, s.DB.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}))
	for _, kv := range kvs {
		assert.NoError(tb, s.Put(bucket, kv.Key, []byte(kv.Value)))
	}
	return bucket
}

func TestStore_contract(t *testing.T) {
	rowitercontract.Source(func(tb testing.TB) rowitercontract.SourceSubject {
		s := openStore(tb)
		return rowitercontract.SourceSubject{
			Source: s,
			Seed: func(tb testing.TB, kvs []rowitercontract.KV) string {
				return seed(tb, s, kvs)
			},
		}
	}).Test(t)
}

func TestStore(t *testing.T) {
	s := testcase.NewSpec(t)

	store := let.Var(s, func(t *testcase.T) boltdb.Store {
		return openStore(t)
	})
	kvs := let.Var(s, func(t *testcase.T) []rowitercontract.KV {
		return []rowitercontract.KV{
			{Key: "a/1", Value: "x"},
			{Key: "a/2", Value: "y"},
			{Key: "b/1", Value: "z"},
		}
	})
	bucket := let.Var(s, func(t *testcase.T) string {
		return seed(t, store.Get(t), kvs.Get(t))
	})

	scanKV := func(s rowiter.Scanner) (rowitercontract.KV, error) {
		var kv rowitercontract.KV
		err := s.Scan(&kv.Key, &kv.Value)
		return kv, err
	}

	s.Test("a prefix limits the rows to the matching keys", func(t *testcase.T) {
		it, err := rowiter.NewFlat(context.Background(), store.Get(t), bucket.Get(t)+"/a/", scanKV)
		assert.NoError(t, err)
		got, err := rowiter.Collect[rowitercontract.KV](it)
		assert.NoError(t, err)
		assert.Equal(t, kvs.Get(t)[:2], got)
	})

	s.Test("a prefix without matches yields nothing", func(t *testcase.T) {
		it, err := rowiter.NewFlat(context.Background(), store.Get(t), bucket.Get(t)+"/c", scanKV)
		assert.NoError(t, err)
		got, err := rowiter.Collect[rowitercontract.KV](it)
		assert.NoError(t, err)
		assert.Empty(t, got)
	})

	s.Test("keys group into runs", func(t *testcase.T) {
		it, err := rowiter.NewGrouping(context.Background(), store.Get(t), bucket.Get(t),
			func(s rowiter.Scanner) (string, string, error) {
				kv, err := scanKV(s)
				return kv.Group(), kv.Value, err
			},
			func(key string, values []string) string {
				return key + "=" + strings.Join(values, ",")
			})
		assert.NoError(t, err)
		got, err := rowiter.Collect[string](it)
		assert.NoError(t, err)
		assert.Equal(t, []string{"a=x,y", "b=z"}, got)
	})

	s.Test("an unknown bucket is an acquisition error", func(t *testcase.T) {
		_, err := rowiter.NewFlat(context.Background(), store.Get(t), "unknown"+t.Random.UUID(), scanKV)
		assert.ErrorIs(t, boltdb.ErrBucketNotFound, err)
		assert.ErrorIs(t, rowiter.ErrAcquisition, err)
	})

	s.Test("query arguments are rejected", func(t *testcase.T) {
		_, err := store.Get(t).Open(context.Background(), bucket.Get(t), 42)
		assert.ErrorIs(t, rowiter.ErrUnsupportedOperation, err)
	})

	s.Test("a write succeeds after the cursor is closed", func(t *testcase.T) {
		cur, err := store.Get(t).Open(context.Background(), bucket.Get(t))
		assert.NoError(t, err)
		assert.True(t, cur.Next())
		assert.NoError(t, cur.Close())
		assert.NoError(t, cur.Close())
		assert.False(t, cur.Next())

		assert.NoError(t, store.Get(t).Put(bucket.Get(t), "c/1", []byte("w")))
		assert.NoError(t, store.Get(t).Delete(bucket.Get(t), "a/1"))

		it, err := rowiter.NewFlat(context.Background(), store.Get(t), bucket.Get(t), scanKV)
		assert.NoError(t, err)
		got, err := rowiter.Collect[rowitercontract.KV](it)
		assert.NoError(t, err)
		assert.Equal(t, []rowitercontract.KV{
			{Key: "a/2", Value: "y"},
			{Key: "b/1", Value: "z"},
			{Key: "c/1", Value: "w"},
		}, got)
	})

	s.Test("cancellation while reading ends the cursor with the context error", func(t *testcase.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cur, err := store.Get(t).Open(ctx, bucket.Get(t))
		assert.NoError(t, err)
		defer cur.Close()
		assert.True(t, cur.Next())
		cancel()
		assert.False(t, cur.Next())
		assert.ErrorIs(t, context.Canceled, cur.Err())
	})
}
