// Package rowitercontract holds the behavioural contract every rowiter.Source implementation must pass.
package rowitercontract

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"go.llib.dev/rowstream/pkg/rowiter"
	"go.llib.dev/testcase"
	"go.llib.dev/testcase/assert"
	"go.llib.dev/testcase/let"
)

type Contract interface {
	Test(*testing.T)
	Benchmark(*testing.B)
}

// KV is a two-column row.
// Keys are "<group>/<member>", so a run of rows sharing a group can be folded by a GroupingIterator.
type KV struct {
	Key   string
	Value string
}

func (kv KV) Group() string {
	group, _, _ := strings.Cut(kv.Key, "/")
	return group
}

type SourceSubject struct {
	Source rowiter.Source
	// Seed stores the rows and returns a query that reads them back ordered by key.
	// The rows given to Seed are already in ascending key order, and keys are unique.
	Seed func(tb testing.TB, rows []KV) string
}

func Source(mk func(testing.TB) SourceSubject) Contract {
	s := testcase.NewSpec(nil)

	subject := let.Var(s, func(t *testcase.T) SourceSubject {
		return mk(t)
	})
	rows := let.Var(s, func(t *testcase.T) []KV {
		var (
			kvs    []KV
			groups = t.Random.IntBetween(1, 4)
		)
		for g := 0; g < groups; g++ {
			for m, n := 0, t.Random.IntBetween(1, 4); m < n; m++ {
				kvs = append(kvs, KV{
					Key:   fmt.Sprintf("g%02d/%04d", g, m),
					Value: t.Random.StringNWithCharset(8, "abcdefghijklmnopqrstuvwxyz"),
				})
			}
		}
		return kvs
	})
	query := let.Var(s, func(t *testcase.T) string {
		return subject.Get(t).Seed(t, rows.Get(t))
	})

	scanKV := func(s rowiter.Scanner) (KV, error) {
		var kv KV
		err := s.Scan(&kv.Key, &kv.Value)
		return kv, err
	}

	open := func(t *testcase.T) rowiter.Cursor {
		cur, err := subject.Get(t).Source.Open(context.Background(), query.Get(t))
		assert.NoError(t, err)
		t.Cleanup(func() { _ = cur.Close() })
		return cur
	}

	s.Test("Open returns the rows in order, then reports a clean end of data", func(t *testcase.T) {
		cur := open(t)
		var got []KV
		for cur.Next() {
			kv, err := scanKV(cur)
			assert.NoError(t, err)
			got = append(got, kv)
		}
		assert.NoError(t, cur.Err())
		assert.Equal(t, rows.Get(t), got)
		assert.False(t, cur.Next())
		assert.NoError(t, cur.Close())
	})

	s.Test("Close can be called before the rows are drained", func(t *testcase.T) {
		cur := open(t)
		assert.True(t, cur.Next())
		assert.NoError(t, cur.Close())
	})

	s.Test("Open honours a cancelled context", func(t *testcase.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cur, err := subject.Get(t).Source.Open(ctx, query.Get(t))
		if err == nil {
			// lazy sources may only notice the cancellation while reading
			for cur.Next() {
			}
			_ = cur.Close()
			return
		}
		assert.ErrorIs(t, context.Canceled, err)
	})

	s.Test("a FlatIterator drains the source and releases it", func(t *testcase.T) {
		it, err := rowiter.NewFlat(context.Background(), subject.Get(t).Source, query.Get(t), scanKV)
		assert.NoError(t, err)
		vs, err := rowiter.Collect[KV](it)
		assert.NoError(t, err)
		assert.Equal(t, rows.Get(t), vs)
		assert.Equal(t, rowiter.Closed, it.State())
		assert.NoError(t, it.Close())
	})

	s.Test("a GroupingIterator folds the rows of a group", func(t *testcase.T) {
		type Group struct {
			Name string
			KVs  []KV
		}
		it, err := rowiter.NewGrouping(context.Background(), subject.Get(t).Source, query.Get(t),
			func(s rowiter.Scanner) (string, KV, error) {
				kv, err := scanKV(s)
				return kv.Group(), kv, err
			},
			func(name string, kvs []KV) Group {
				return Group{Name: name, KVs: kvs}
			})
		assert.NoError(t, err)

		var exp []Group
		for _, kv := range rows.Get(t) {
			if len(exp) == 0 || exp[len(exp)-1].Name != kv.Group() {
				exp = append(exp, Group{Name: kv.Group()})
			}
			exp[len(exp)-1].KVs = append(exp[len(exp)-1].KVs, kv)
		}

		got, err := rowiter.Collect[Group](it)
		assert.NoError(t, err)
		assert.Equal(t, exp, got)
		assert.Equal(t, rowiter.Closed, it.State())
	})

	s.Test("an abandoned iterator is released by Close", func(t *testcase.T) {
		it, err := rowiter.NewFlat(context.Background(), subject.Get(t).Source, query.Get(t), scanKV)
		assert.NoError(t, err)
		assert.True(t, it.HasNext())
		assert.NoError(t, it.Close())
		assert.Equal(t, rowiter.Closed, it.State())
		assert.False(t, it.HasNext())
		assert.NoError(t, it.Close())
	})

	s.When("there are no rows", func(s *testcase.Spec) {
		rows.Let(s, func(t *testcase.T) []KV { return nil })

		s.Then("the iterator is empty", func(t *testcase.T) {
			it, err := rowiter.NewFlat(context.Background(), subject.Get(t).Source, query.Get(t), scanKV)
			assert.NoError(t, err)
			assert.False(t, it.HasNext())
			assert.Equal(t, rowiter.Closed, it.State())
			_, err = it.Next()
			assert.ErrorIs(t, rowiter.ErrExhausted, err)
		})
	})

	return s.AsSuite("rowiter.Source")
}
