package postgresql_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.llib.dev/rowstream/adapter/postgresql"
	"go.llib.dev/rowstream/pkg/env"
	"go.llib.dev/rowstream/pkg/flsql"
	"go.llib.dev/rowstream/pkg/rowiter/rowitercontract"
	"go.llib.dev/testcase/assert"
	"go.llib.dev/testcase/random"
)

var rnd = random.New(random.CryptoSeed{})

func DatabaseDSN(tb testing.TB) string {
	const envKey = "PG_DATABASE_URL"
	u, ok, err := env.Lookup[string](envKey)
	assert.NoError(tb, err)
	if !ok {
		tb.Skipf("env variable is missing %s", envKey)
	}
	return u
}

var (
	connection      *postgresql.Connection
	mutexConnection sync.Mutex
)

func GetConnection(tb testing.TB) postgresql.Connection {
	mutexConnection.Lock()
	defer mutexConnection.Unlock()
	if connection != nil {
		return *connection
	}
	c, err := postgresql.Connect(DatabaseDSN(tb))
	assert.NoError(tb, err)
	connection = &c
	return c
}

func GetSQLConnection(tb testing.TB) flsql.SQLConnection {
	c, err := postgresql.ConnectSQL(DatabaseDSN(tb))
	assert.NoError(tb, err)
	tb.Cleanup(func() { _ = c.Close() })
	return c
}

// SeedKVs creates a throwaway table with the rows and returns the query that reads them back in order.
func SeedKVs(tb testing.TB, c flsql.Queryable, kvs []rowitercontract.KV) string {
	ctx := context.Background()
	table := "rowstream_kvs_" + strings.ToLower(rnd.StringNWithCharset(8, "abcdefghijklmnopqrstuvwxyz"))

	_, err := c.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %s (k TEXT NOT NULL PRIMARY KEY, v TEXT NOT NULL)`, table))
	assert.NoError(tb, err)
	tb.Cleanup(func() {
		_, err := c.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table))
		assert.NoError(tb, err)
	})
	for _, kv := range kvs {
		_, err := c.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (k, v) VALUES ($1, $2)`, table), kv.Key, kv.Value)
		assert.NoError(tb, err)
	}
	return fmt.Sprintf(`SELECT k, v FROM %s ORDER BY k COLLATE "C"`, table)
}
