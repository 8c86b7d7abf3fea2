// Package mysql connects the row iterators and the taste data model to MySQL and MariaDB.
package mysql

import (
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"

	"go.llib.dev/rowstream/pkg/flsql"
)

type Connection = flsql.SQLConnection

// Connect opens a pooled connection.
// The DSN uses the go-sql-driver format, e.g. user:pass@tcp(localhost:3306)/db.
func Connect(dsn string) (Connection, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return Connection{}, err
	}
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return Connection{}, err
	}
	// connections must be closed by the driver before the server or a middleware drops them.
	db.SetConnMaxLifetime(time.Minute * 3)
	db.SetMaxOpenConns(10)
	// idle connection count matches the open limit, otherwise connections churn.
	db.SetMaxIdleConns(10)
	return flsql.SQLConnectionAdapter(db), nil
}

// ParseDSN parses a go-sql-driver DSN with the options the adapter relies on turned on.
func ParseDSN(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ParseTime = true
	return cfg, nil
}
