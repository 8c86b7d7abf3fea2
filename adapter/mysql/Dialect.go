package mysql

import (
	"fmt"

	"go.llib.dev/rowstream/pkg/taste"
)

type Dialect struct{}

var _ taste.Dialect = Dialect{}

func (Dialect) Placeholder(int) string { return "?" }

func (Dialect) UpsertPreference(c taste.Config) string {
	return fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE %s = VALUES(%s)",
		c.Table, c.UserIDColumn, c.ItemIDColumn, c.PreferenceColumn,
		c.PreferenceColumn, c.PreferenceColumn)
}

func (Dialect) CreateTable(c taste.Config) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s VARCHAR(255) NOT NULL,
	%s VARCHAR(255) NOT NULL,
	%s DOUBLE       NOT NULL,
	PRIMARY KEY (%s, %s)
)`, c.Table, c.UserIDColumn, c.ItemIDColumn, c.PreferenceColumn, c.UserIDColumn, c.ItemIDColumn)
}
