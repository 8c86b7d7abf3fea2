package cli

import (
	"io"

	"go.llib.dev/rowstream/adapter/boltdb"
	"go.llib.dev/rowstream/adapter/mysql"
	"go.llib.dev/rowstream/adapter/postgresql"
	"go.llib.dev/rowstream/pkg/flsql"
	"go.llib.dev/rowstream/pkg/taste"
	"go.llib.dev/rowstream/pkg/taste/tastedemo"
)

// backend is what a command works with.
// Relational drivers get a DataModel, the bolt driver gets a key/value Store.
type backend struct {
	Model *taste.DataModel
	Store *boltdb.Store
	io.Closer
}

func (app *App) openBackend() (backend, error) {
	c := app.Config
	if err := c.Validate(); err != nil {
		return backend{}, err
	}
	if c.Driver == DriverBolt {
		s, err := boltdb.Open(c.DSN)
		if err != nil {
			return backend{}, err
		}
		return backend{Store: &s, Closer: s}, nil
	}

	var (
		conn    flsql.Connection
		dialect taste.Dialect
	)
	switch c.Driver {
	case DriverPostgres:
		pc, err := postgresql.ConnectSQL(c.DSN)
		if err != nil {
			return backend{}, err
		}
		conn, dialect = pc, postgresql.Dialect{}
	case DriverPGX:
		pc, err := postgresql.Connect(c.DSN)
		if err != nil {
			return backend{}, err
		}
		conn, dialect = pc, postgresql.Dialect{}
	case DriverMySQL:
		mc, err := mysql.Connect(c.DSN)
		if err != nil {
			return backend{}, err
		}
		conn, dialect = mc, mysql.Dialect{}
	case DriverDemo:
		dialect = taste.GenericDialect{}
		conn = app.demoTable(taste.NewStatements(c.Taste, dialect)).Memory
	default:
		return backend{}, ErrUnsupportedDriver.F("%q", c.Driver)
	}

	m, err := taste.New(conn, dialect, c.Taste)
	if err != nil {
		_ = conn.Close()
		return backend{}, err
	}
	m.Logger = app.Logger
	return backend{Model: m, Closer: conn}, nil
}

func (app *App) demoTable(stmts taste.Statements) *tastedemo.Table {
	if app.Demo == nil {
		app.Demo = tastedemo.NewTable(stmts)
		app.Demo.Put(tastedemo.RandomPreferences(app.Config.DemoUsers)...)
	}
	return app.Demo
}
