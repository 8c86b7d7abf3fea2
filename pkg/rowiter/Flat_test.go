package rowiter_test

import (
	"context"
	"testing"

	"go.llib.dev/rowstream/pkg/doubles"
	"go.llib.dev/rowstream/pkg/logging"
	"go.llib.dev/rowstream/pkg/rowiter"
	"go.llib.dev/testcase"
	"go.llib.dev/testcase/assert"
	"go.llib.dev/testcase/let"
)

func TestNewFlat(t *testing.T) {
	s := testcase.NewSpec(t)

	var (
		ctx = let.Var(s, func(t *testcase.T) context.Context { return context.Background() })
		src = let.Var(s, func(t *testcase.T) *doubles.Source {
			return &doubles.Source{Rows: rowsOf(1, 2, 3)}
		})
	)
	act := func(t *testcase.T) (*rowiter.FlatIterator[int], error) {
		return rowiter.NewFlat(ctx.Get(t), src.Get(t), query, scanInt, rowiter.WithArgs("a", 1))
	}

	s.Then("the query is opened with the arguments", func(t *testcase.T) {
		it, err := act(t)
		assert.NoError(t, err)
		defer it.Close()
		assert.Equal(t, []string{query}, src.Get(t).Queries)
		assert.Equal(t, [][]any{{"a", 1}}, src.Get(t).Args)
		assert.Equal(t, rowiter.Active, it.State())
	})

	s.When("the cursor can't be acquired", func(s *testcase.Spec) {
		expErr := let.Error(s)

		src.Let(s, func(t *testcase.T) *doubles.Source {
			return &doubles.Source{OpenErr: expErr.Get(t)}
		})

		s.Then("the failure is reported as an acquisition failure", func(t *testcase.T) {
			it, err := act(t)
			assert.Nil(t, it)
			assert.ErrorIs(t, rowiter.ErrAcquisition, err)
			assert.ErrorIs(t, rowiter.ErrDataAccess, err)
			assert.ErrorIs(t, expErr.Get(t), err)
		})
	})

	s.When("the context is nil", func(s *testcase.Spec) {
		ctx.Let(s, func(t *testcase.T) context.Context { return nil })

		s.Then("background context is used", func(t *testcase.T) {
			it, err := act(t)
			assert.NoError(t, err)
			vs, err := rowiter.Collect[int](it)
			assert.NoError(t, err)
			assert.Equal(t, []int{1, 2, 3}, vs)
		})
	})
}

func TestFlatIterator(t *testing.T) {
	s := testcase.NewSpec(t)

	var (
		rows = let.Var(s, func(t *testcase.T) [][]any { return rowsOf(1, 2, 3) })
		src  = let.Var(s, func(t *testcase.T) *doubles.Source {
			return &doubles.Source{Rows: rows.Get(t)}
		})
		logger = let.Var(s, func(t *testcase.T) *logging.Logger {
			l, _ := logging.Stub(t)
			return l
		})
		subject = let.Var(s, func(t *testcase.T) *rowiter.FlatIterator[int] {
			it, err := rowiter.NewFlat(context.Background(), src.Get(t), query, scanInt,
				rowiter.WithLogger(logger.Get(t)))
			assert.NoError(t, err)
			t.Cleanup(func() { _ = it.Close() })
			return it
		})
	)

	drain := func(t *testcase.T) []int {
		var vs []int
		for subject.Get(t).HasNext() {
			v, err := subject.Get(t).Next()
			assert.NoError(t, err)
			vs = append(vs, v)
		}
		return vs
	}

	s.Then("every row is mapped to one element, in cursor order", func(t *testcase.T) {
		assert.Equal(t, []int{1, 2, 3}, drain(t))
	})

	s.Then("the resources are released exactly once after the last row", func(t *testcase.T) {
		drain(t)
		assert.Equal(t, 1, src.Get(t).Closes)
		assert.Equal(t, rowiter.Closed, subject.Get(t).State())
		assert.NoError(t, subject.Get(t).Close())
		assert.NoError(t, subject.Get(t).Close())
		assert.Equal(t, 1, src.Get(t).Closes)
	})

	s.Then("Next after exhaustion reports ErrExhausted", func(t *testcase.T) {
		drain(t)
		_, err := subject.Get(t).Next()
		assert.ErrorIs(t, rowiter.ErrExhausted, err)
		_, err = subject.Get(t).Next()
		assert.ErrorIs(t, rowiter.ErrExhausted, err)
		assert.Equal(t, 1, src.Get(t).Closes)
	})

	s.Then("repeated existence checks don't skip rows", func(t *testcase.T) {
		it := subject.Get(t)
		assert.True(t, it.HasNext())
		assert.True(t, it.HasNext())
		ok, err := it.Peek()
		assert.NoError(t, err)
		assert.True(t, ok)
		v, err := it.Next()
		assert.NoError(t, err)
		assert.Equal(t, 1, v)
		assert.Equal(t, 1, src.Get(t).Pulls)
	})

	s.Then("Next works without a preceding existence check", func(t *testcase.T) {
		it := subject.Get(t)
		for _, exp := range []int{1, 2, 3} {
			got, err := it.Next()
			assert.NoError(t, err)
			assert.Equal(t, exp, got)
		}
		_, err := it.Next()
		assert.ErrorIs(t, rowiter.ErrExhausted, err)
		assert.Equal(t, 1, src.Get(t).Closes)
	})

	s.When("the cursor is empty", func(s *testcase.Spec) {
		rows.Let(s, func(t *testcase.T) [][]any { return nil })

		s.Then("there is nothing to iterate and the resources are released", func(t *testcase.T) {
			assert.False(t, subject.Get(t).HasNext())
			assert.Equal(t, 1, src.Get(t).Closes)
			_, err := subject.Get(t).Next()
			assert.ErrorIs(t, rowiter.ErrExhausted, err)
			assert.Equal(t, 1, src.Get(t).Closes)
		})
	})

	s.When("the iteration is abandoned early", func(s *testcase.Spec) {
		s.Then("Close releases the resources once", func(t *testcase.T) {
			it := subject.Get(t)
			assert.True(t, it.HasNext())
			assert.NoError(t, it.Close())
			assert.Equal(t, rowiter.Closed, it.State())
			assert.False(t, it.HasNext())
			_, err := it.Next()
			assert.ErrorIs(t, rowiter.ErrExhausted, err)
			assert.NoError(t, it.Close())
			assert.Equal(t, 1, src.Get(t).Closes)
		})
	})

	s.When("reading the second row fails", func(s *testcase.Spec) {
		expErr := let.Error(s)

		src.Let(s, func(t *testcase.T) *doubles.Source {
			ds := src.Super(t)
			ds.ReadErr = expErr.Get(t)
			ds.ReadErrOn = 2
			return ds
		})

		s.Then("Next reports a data access failure and releases the resources", func(t *testcase.T) {
			it := subject.Get(t)
			v, err := it.Next()
			assert.NoError(t, err)
			assert.Equal(t, 1, v)

			_, err = it.Next()
			assert.ErrorIs(t, rowiter.ErrDataAccess, err)
			assert.ErrorIs(t, expErr.Get(t), err)
			assert.Equal(t, 1, src.Get(t).Closes)
			assert.Equal(t, rowiter.Closed, it.State())

			_, err = it.Next()
			assert.ErrorIs(t, rowiter.ErrExhausted, err)
		})

		s.Then("Peek surfaces the failure", func(t *testcase.T) {
			it := subject.Get(t)
			_, err := it.Next()
			assert.NoError(t, err)

			ok, err := it.Peek()
			assert.False(t, ok)
			assert.ErrorIs(t, rowiter.ErrDataAccess, err)
			assert.ErrorIs(t, expErr.Get(t), err)
		})

		s.Then("HasNext logs the failure and treats it as the end of the data", func(t *testcase.T) {
			l, out := logging.Stub(t)
			logger.Set(t, l)

			it := subject.Get(t)
			_, err := it.Next()
			assert.NoError(t, err)

			assert.False(t, it.HasNext())
			assert.Equal(t, 1, src.Get(t).Closes)
			assert.Contain(t, out.String(), `"level":"warn"`)
			assert.Contain(t, out.String(), expErr.Get(t).Error())
		})
	})

	s.When("mapping a row fails", func(s *testcase.Spec) {
		expErr := let.Error(s)

		src.Let(s, func(t *testcase.T) *doubles.Source {
			ds := src.Super(t)
			ds.ScanErr = expErr.Get(t)
			ds.ScanErrOn = 2
			return ds
		})

		s.Then("Next reports a data access failure and releases the resources", func(t *testcase.T) {
			it := subject.Get(t)
			_, err := it.Next()
			assert.NoError(t, err)
			assert.True(t, it.HasNext())

			_, err = it.Next()
			assert.ErrorIs(t, rowiter.ErrDataAccess, err)
			assert.ErrorIs(t, expErr.Get(t), err)
			assert.Equal(t, 1, src.Get(t).Closes)
			assert.False(t, it.HasNext())
		})
	})

	s.When("closing the cursor fails", func(s *testcase.Spec) {
		expErr := let.Error(s)

		src.Let(s, func(t *testcase.T) *doubles.Source {
			ds := src.Super(t)
			ds.CloseErr = expErr.Get(t)
			return ds
		})

		s.Then("exhaustion logs the close error instead of failing the iteration", func(t *testcase.T) {
			l, out := logging.Stub(t)
			logger.Set(t, l)

			assert.Equal(t, []int{1, 2, 3}, drain(t))
			assert.Equal(t, 1, src.Get(t).Closes)
			assert.Contain(t, out.String(), "error while releasing resources")
			assert.Contain(t, out.String(), expErr.Get(t).Error())
		})

		s.Then("an explicit Close returns the close error once", func(t *testcase.T) {
			it := subject.Get(t)
			assert.True(t, it.HasNext())
			assert.ErrorIs(t, expErr.Get(t), it.Close())
			assert.NoError(t, it.Close())
			assert.Equal(t, 1, src.Get(t).Closes)
		})
	})

	s.Test("query execution is logged at debug level", func(t *testcase.T) {
		l, out := logging.Stub(t)
		logger.Set(t, l)
		_ = subject.Get(t)
		assert.Contain(t, out.String(), "executing query")
		assert.Contain(t, out.String(), `"level":"debug"`)
	})
}
