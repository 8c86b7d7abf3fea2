package taste

import (
	"context"
	"math"

	"go.llib.dev/rowstream/pkg/flsql"
	"go.llib.dev/rowstream/pkg/logging"
	"go.llib.dev/rowstream/pkg/rowiter"
)

// New validates the configuration and prepares the statements of a DataModel.
func New(conn flsql.Connection, dialect Dialect, config Config) (*DataModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	m := &DataModel{
		Connection: conn,
		Dialect:    dialect,
		Config:     config,
	}
	m.stmts = NewStatements(config, dialect)
	if err := m.stmts.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// DataModel reads and writes preferences stored in a single table.
// Every method takes a connection from Connection for the time of the call,
// except Users, Items and UsersPreferringItem, whose iterators hold it until they are drained or closed.
type DataModel struct {
	Connection flsql.Connection
	Dialect    Dialect
	Config     Config
	Factory    Factory
	// Logger [optional]
	//
	// default: logging.Default
	Logger *logging.Logger

	stmts Statements
}

func (m *DataModel) Statements() Statements { return m.stmts }

func (m *DataModel) logger() *logging.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return &logging.Default
}

func (m *DataModel) opts(args ...any) []rowiter.Option {
	return []rowiter.Option{rowiter.WithArgs(args...), rowiter.WithLogger(m.logger())}
}

// Users streams every user with its preferences.
// The iterator holds a connection until it is drained or closed.
func (m *DataModel) Users(ctx context.Context) (rowiter.Iterator[User], error) {
	m.logger().Debug(ctx, "retrieving all users")
	it, err := rowiter.NewGrouping(ctx, m.Connection, m.stmts.Users, m.splitUserRow, m.Factory.user, m.opts()...)
	if err != nil {
		m.logger().Warn(ctx, "exception while retrieving users", logging.ErrField(err))
		return nil, err
	}
	return it, nil
}

func (m *DataModel) splitUserRow(s rowiter.Scanner) (string, Preference, error) {
	var (
		itemID, userID string
		value          float64
	)
	if err := s.Scan(&itemID, &value, &userID); err != nil {
		return "", Preference{}, err
	}
	return userID, m.Factory.preference(userID, itemID, value), nil
}

// User returns a user with every preference it has.
// A user without preferences doesn't exist, and User reports ErrNotFound for it.
func (m *DataModel) User(ctx context.Context, id string) (User, error) {
	ctx = logging.ContextWith(ctx, logging.Field("user_id", id))
	m.logger().Debug(ctx, "retrieving user")
	it, err := rowiter.NewFlat(ctx, m.Connection, m.stmts.User, func(s rowiter.Scanner) (Preference, error) {
		var (
			itemID string
			value  float64
		)
		if err := s.Scan(&itemID, &value); err != nil {
			return Preference{}, err
		}
		return m.Factory.preference(id, itemID, value), nil
	}, m.opts(id)...)
	if err != nil {
		m.logger().Warn(ctx, "exception while retrieving user", logging.ErrField(err))
		return User{}, err
	}
	prefs, err := rowiter.Collect[Preference](it)
	if err != nil {
		m.logger().Warn(ctx, "exception while retrieving user", logging.ErrField(err))
		return User{}, err
	}
	if len(prefs) == 0 {
		return User{}, ErrNotFound.F("user %q", id)
	}
	return m.Factory.user(id, prefs), nil
}

// Items streams the distinct items that have at least one preference.
func (m *DataModel) Items(ctx context.Context) (rowiter.Iterator[Item], error) {
	m.logger().Debug(ctx, "retrieving all items")
	it, err := rowiter.NewFlat(ctx, m.Connection, m.stmts.Items, func(s rowiter.Scanner) (Item, error) {
		var id string
		if err := s.Scan(&id); err != nil {
			return Item{}, err
		}
		return m.Factory.item(id), nil
	}, m.opts()...)
	if err != nil {
		m.logger().Warn(ctx, "exception while retrieving items", logging.ErrField(err))
		return nil, err
	}
	return it, nil
}

// Item returns the item, or ErrNotFound when no preference mentions it.
// With assumeExists, the lookup is skipped and the item is built right away.
func (m *DataModel) Item(ctx context.Context, id string, assumeExists bool) (Item, error) {
	if assumeExists {
		return m.Factory.item(id), nil
	}
	ctx = logging.ContextWith(ctx, logging.Field("item_id", id))
	m.logger().Debug(ctx, "retrieving item")
	it, err := rowiter.NewFlat(ctx, m.Connection, m.stmts.Item, func(s rowiter.Scanner) (struct{}, error) {
		return struct{}{}, nil
	}, m.opts(id)...)
	if err != nil {
		m.logger().Warn(ctx, "exception while retrieving item", logging.ErrField(err))
		return Item{}, err
	}
	_, found, err := rowiter.First[struct{}](it)
	if err != nil {
		m.logger().Warn(ctx, "exception while retrieving item", logging.ErrField(err))
		return Item{}, err
	}
	if !found {
		return Item{}, ErrNotFound.F("item %q", id)
	}
	return m.Factory.item(id), nil
}

// PreferencesForItem returns every preference expressed for an existing item, ordered by user id.
func (m *DataModel) PreferencesForItem(ctx context.Context, itemID string) ([]Preference, error) {
	item, err := m.Item(ctx, itemID, false)
	if err != nil {
		return nil, err
	}
	ctx = logging.ContextWith(ctx, logging.Field("item_id", itemID))
	m.logger().Debug(ctx, "retrieving preferences for item")
	seq, err := flsql.QueryMany(m.Connection, ctx, func(s flsql.Scanner) (Preference, error) {
		var (
			value  float64
			userID string
		)
		if err := s.Scan(&value, &userID); err != nil {
			return Preference{}, err
		}
		return m.Factory.preference(userID, item.ID, value), nil
	}, m.stmts.PreferencesForItem, itemID)
	if err != nil {
		err = rowiter.ErrDataAccess.Wrap(err)
		m.logger().Warn(ctx, "exception while retrieving prefs for item", logging.ErrField(err))
		return nil, err
	}
	var prefs []Preference
	for p, err := range seq {
		if err != nil {
			err = rowiter.ErrDataAccess.Wrap(err)
			m.logger().Warn(ctx, "exception while retrieving prefs for item", logging.ErrField(err))
			return nil, err
		}
		prefs = append(prefs, p)
	}
	return prefs, nil
}

// UsersPreferringItem streams the users that have a preference for the item.
// The users are built without their preferences.
func (m *DataModel) UsersPreferringItem(ctx context.Context, itemID string) (rowiter.Iterator[User], error) {
	ctx = logging.ContextWith(ctx, logging.Field("item_id", itemID))
	m.logger().Debug(ctx, "retrieving users preferring item")
	it, err := rowiter.NewFlat(ctx, m.Connection, m.stmts.UsersPreferringItem, func(s rowiter.Scanner) (User, error) {
		var id string
		if err := s.Scan(&id); err != nil {
			return User{}, err
		}
		return m.Factory.user(id, nil), nil
	}, m.opts(itemID)...)
	if err != nil {
		m.logger().Warn(ctx, "exception while retrieving users preferring item", logging.ErrField(err))
		return nil, err
	}
	return it, nil
}

func (m *DataModel) NumUsers(ctx context.Context) (int, error) {
	return m.count(ctx, "users", m.stmts.NumUsers)
}

func (m *DataModel) NumItems(ctx context.Context) (int, error) {
	return m.count(ctx, "items", m.stmts.NumItems)
}

func (m *DataModel) count(ctx context.Context, name, query string) (int, error) {
	m.logger().Debug(ctx, "retrieving number of "+name+" in model", logging.Field("query", query))
	var n int
	if err := m.Connection.QueryRowContext(ctx, query).Scan(&n); err != nil {
		m.logger().Warn(ctx, "exception while retrieving number of "+name, logging.ErrField(err))
		return 0, rowiter.ErrDataAccess.Wrap(err)
	}
	return n, nil
}

// SetPreference stores the preference, or overwrites the value of an existing one.
func (m *DataModel) SetPreference(ctx context.Context, userID, itemID string, value float64) error {
	if err := checkIDs(userID, itemID); err != nil {
		return err
	}
	if math.IsNaN(value) {
		return ErrInvalidArgument.F("invalid value: %v", value)
	}
	ctx = logging.ContextWith(ctx, logging.Fields{"user_id": userID, "item_id": itemID})
	m.logger().Debug(ctx, "setting preference", logging.Field("value", value))
	if _, err := m.Connection.ExecContext(ctx, m.stmts.SetPreference, userID, itemID, value); err != nil {
		m.logger().Warn(ctx, "exception while setting preference", logging.ErrField(err))
		return rowiter.ErrDataAccess.Wrap(err)
	}
	return nil
}

func (m *DataModel) RemovePreference(ctx context.Context, userID, itemID string) error {
	if err := checkIDs(userID, itemID); err != nil {
		return err
	}
	ctx = logging.ContextWith(ctx, logging.Fields{"user_id": userID, "item_id": itemID})
	m.logger().Debug(ctx, "removing preference")
	if _, err := m.Connection.ExecContext(ctx, m.stmts.RemovePreference, userID, itemID); err != nil {
		m.logger().Warn(ctx, "exception while removing preference", logging.ErrField(err))
		return rowiter.ErrDataAccess.Wrap(err)
	}
	return nil
}

func checkIDs(userID, itemID string) error {
	if userID == "" || itemID == "" {
		return ErrInvalidArgument.F("user id or item id is empty")
	}
	return nil
}

// Refresh is a no-op, every read goes to the table.
func (m *DataModel) Refresh(ctx context.Context) error { return nil }

// Migration creates and drops the preference table.
func (m *DataModel) Migration() flsql.MigrationStep[flsql.Connection] {
	return flsql.MigrationStep[flsql.Connection]{
		UpQuery:   m.stmts.CreateTable,
		DownQuery: m.stmts.DropTable,
	}
}
