package taste

import (
	"fmt"
	"sort"
	"strings"

	"go.llib.dev/rowstream/pkg/flsql"
)

// Dialect covers the parts of the SQL text that differ between databases.
type Dialect interface {
	// Placeholder returns the bind parameter marker of the n-th (1-based) argument.
	Placeholder(n int) string
	// UpsertPreference returns the statement that inserts a preference, or overwrites its value.
	// It takes the user id, the item id and the value as arguments, in this order.
	UpsertPreference(c Config) string
	// CreateTable returns the DDL of the preference table.
	CreateTable(c Config) string
}

// GenericDialect uses "?" placeholders and an ON CONFLICT upsert.
type GenericDialect struct{}

func (GenericDialect) Placeholder(int) string { return "?" }

func (d GenericDialect) UpsertPreference(c Config) string {
	return fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES (?, ?, ?) ON CONFLICT (%s, %s) DO UPDATE SET %s = excluded.%s",
		c.Table, c.UserIDColumn, c.ItemIDColumn, c.PreferenceColumn,
		c.UserIDColumn, c.ItemIDColumn,
		c.PreferenceColumn, c.PreferenceColumn)
}

func (d GenericDialect) CreateTable(c Config) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s VARCHAR(255) NOT NULL,
	%s VARCHAR(255) NOT NULL,
	%s FLOAT NOT NULL,
	PRIMARY KEY (%s, %s)
)`, c.Table, c.UserIDColumn, c.ItemIDColumn, c.PreferenceColumn, c.UserIDColumn, c.ItemIDColumn)
}

// Statements is every SQL statement the DataModel runs.
type Statements struct {
	// Users reads (item id, preference, user id) ordered by user id, then item id.
	Users string
	// User reads (item id, preference) of one user, ordered by item id.
	User string
	// Items reads the distinct item ids in order.
	Items string
	// Item reads a row when the item has at least one preference.
	Item string
	// PreferencesForItem reads (preference, user id) of one item, ordered by user id.
	PreferencesForItem string
	// UsersPreferringItem reads the distinct user ids of one item in order.
	UsersPreferringItem string
	NumUsers            string
	NumItems            string
	SetPreference       string
	RemovePreference    string
	CreateTable         string
	DropTable           string
}

func NewStatements(c Config, d Dialect) Statements {
	var (
		t    = c.Table
		user = flsql.ColumnName(c.UserIDColumn)
		item = flsql.ColumnName(c.ItemIDColumn)
		pref = flsql.ColumnName(c.PreferenceColumn)
		p    = d.Placeholder

		userRow   = flsql.JoinColumnName([]flsql.ColumnName{item, pref, user}, "%s", ", ")
		userOrder = flsql.JoinColumnName([]flsql.ColumnName{user, item}, "%s", ", ")
	)
	return Statements{
		Users:               fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", userRow, t, userOrder),
		User:                fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = %s ORDER BY %s", item, pref, t, user, p(1), item),
		Items:               fmt.Sprintf("SELECT DISTINCT %s FROM %s ORDER BY %s", item, t, item),
		Item:                fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s", t, item, p(1)),
		PreferencesForItem:  fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = %s ORDER BY %s", pref, user, t, item, p(1), user),
		UsersPreferringItem: fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s = %s ORDER BY %s", user, t, item, p(1), user),
		NumUsers:            fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM %s", user, t),
		NumItems:            fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM %s", item, t),
		SetPreference:       d.UpsertPreference(c),
		RemovePreference:    fmt.Sprintf("DELETE FROM %s WHERE %s = %s AND %s = %s", t, user, p(1), item, p(2)),
		CreateTable:         d.CreateTable(c),
		DropTable:           fmt.Sprintf("DROP TABLE IF EXISTS %s", t),
	}
}

// All lists the statements by name, for validation and diagnostics.
func (s Statements) All() map[string]string {
	return map[string]string{
		"users":                 s.Users,
		"user":                  s.User,
		"items":                 s.Items,
		"item":                  s.Item,
		"preferences for item":  s.PreferencesForItem,
		"users preferring item": s.UsersPreferringItem,
		"number of users":       s.NumUsers,
		"number of items":       s.NumItems,
		"set preference":        s.SetPreference,
		"remove preference":     s.RemovePreference,
		"create table":          s.CreateTable,
		"drop table":            s.DropTable,
	}
}

func (s Statements) Validate() error {
	var missing []string
	for name, stmt := range s.All() {
		if strings.TrimSpace(stmt) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return ErrInvalidConfig.F("empty SQL statement(s): %s", strings.Join(missing, ", "))
}
