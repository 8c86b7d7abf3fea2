package postgresql

import (
	"fmt"
	"strconv"

	"go.llib.dev/rowstream/pkg/taste"
)

// Dialect is the PostgreSQL flavour of the taste statements.
type Dialect struct{}

var _ taste.Dialect = Dialect{}

func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (Dialect) UpsertPreference(c taste.Config) string {
	return fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES ($1, $2, $3) ON CONFLICT (%s, %s) DO UPDATE SET %s = EXCLUDED.%s",
		c.Table, c.UserIDColumn, c.ItemIDColumn, c.PreferenceColumn,
		c.UserIDColumn, c.ItemIDColumn,
		c.PreferenceColumn, c.PreferenceColumn)
}

func (Dialect) CreateTable(c taste.Config) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s VARCHAR(255)     NOT NULL,
	%s VARCHAR(255)     NOT NULL,
	%s DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (%s, %s)
)`, c.Table, c.UserIDColumn, c.ItemIDColumn, c.PreferenceColumn, c.UserIDColumn, c.ItemIDColumn)
}
