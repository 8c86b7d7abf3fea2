// Package cli implements the rowstream command line.
//
// Every command prints its results as JSON lines, so the output can be piped into other tools.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	uuid "github.com/satori/go.uuid"
	"github.com/spf13/cobra"

	"go.llib.dev/rowstream/pkg/errorkit"
	"go.llib.dev/rowstream/pkg/logging"
	"go.llib.dev/rowstream/pkg/rowiter"
	"go.llib.dev/rowstream/pkg/taste"
	"go.llib.dev/rowstream/pkg/taste/tastedemo"
)

type App struct {
	Out    io.Writer
	Config Config
	// Logger [optional]
	Logger *logging.Logger
	// Demo [optional] is the table the demo driver serves.
	// When nil, a table with random preferences is made on first use.
	Demo *tastedemo.Table
}

func Execute(ctx context.Context) error {
	config, err := LoadConfig()
	if err != nil {
		return err
	}
	app := &App{Out: os.Stdout, Config: config}
	return app.Command().ExecuteContext(ctx)
}

func (app *App) logger() *logging.Logger {
	if app.Logger != nil {
		return app.Logger
	}
	return &logging.Default
}

func (app *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "rowstream",
		Short: "Stream users, items and preferences out of a preference table",
		Long: `rowstream reads a (user, item, preference) table row by row
and prints what it finds as JSON lines.

Examples:
  rowstream users
  rowstream --driver pgx --dsn postgres://localhost/taste user alice
  rowstream --driver bolt --dsn ./data.db kv list prefs --group`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := logging.ContextWith(cmd.Context(),
				logging.Field("invocation_id", uuid.NewV4().String()),
				logging.Field("command", cmd.Name()),
				logging.Field("driver", app.Config.Driver))
			cmd.SetContext(ctx)
			return nil
		},
	}
	root.SetOut(app.Out)

	flags := root.PersistentFlags()
	flags.StringVar(&app.Config.Driver, "driver", app.Config.Driver, "data source driver: "+strings.Join(Drivers, ", "))
	flags.StringVar(&app.Config.DSN, "dsn", app.Config.DSN, "data source name, defaults to DATABASE_URL")
	flags.StringVar(&app.Config.Taste.Table, "table", app.Config.Taste.Table, "preference table name")

	root.AddCommand(
		app.usersCmd(),
		app.userCmd(),
		app.itemsCmd(),
		app.itemCmd(),
		app.prefsCmd(),
		app.countCmd(),
		app.setCmd(),
		app.removeCmd(),
		app.migrateCmd(),
		app.kvCmd(),
	)
	return root
}

// withModel opens the configured relational backend for the duration of fn.
func (app *App) withModel(cmd *cobra.Command, fn func(ctx context.Context, m *taste.DataModel) error) (rErr error) {
	ctx := cmd.Context()
	b, err := app.openBackend()
	if err != nil {
		return err
	}
	defer errorkit.Finish(&rErr, b.Close)
	if b.Model == nil {
		return errorkit.WithDetail(ErrUnsupportedDriver.F("%s doesn't serve the preference table", app.Config.Driver),
			"use the kv command to read %s buckets", app.Config.Driver)
	}
	app.logger().Debug(ctx, "running command", logging.Field("backend", b.String()))
	if err := fn(ctx, b.Model); err != nil {
		app.logger().Error(ctx, "command failed", logging.ErrField(err))
		return err
	}
	return nil
}

func (app *App) encode(v any) error {
	return json.NewEncoder(app.Out).Encode(v)
}

func encodeAll[E any](app *App, it rowiter.Iterator[E]) error {
	for v, err := range rowiter.All(it) {
		if err != nil {
			return err
		}
		if err := app.encode(v); err != nil {
			return err
		}
	}
	return nil
}

func (app *App) usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List every user with its preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withModel(cmd, func(ctx context.Context, m *taste.DataModel) error {
				it, err := m.Users(ctx)
				if err != nil {
					return err
				}
				return encodeAll(app, it)
			})
		},
	}
}

func (app *App) userCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user ID",
		Short: "Show one user with its preferences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withModel(cmd, func(ctx context.Context, m *taste.DataModel) error {
				u, err := m.User(ctx, args[0])
				if err != nil {
					return err
				}
				return app.encode(u)
			})
		},
	}
}

func (app *App) itemsCmd() *cobra.Command {
	var withUsers bool
	cmd := &cobra.Command{
		Use:   "items",
		Short: "List the items that have at least one preference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withModel(cmd, func(ctx context.Context, m *taste.DataModel) error {
				it, err := m.Items(ctx)
				if err != nil {
					return err
				}
				if !withUsers {
					return encodeAll(app, it)
				}
				items, err := rowiter.Collect[taste.Item](it)
				if err != nil {
					return err
				}
				for _, item := range items {
					users, err := m.UsersPreferringItem(ctx, item.ID)
					if err != nil {
						return err
					}
					ids, err := rowiter.Collect[taste.User](users)
					if err != nil {
						return err
					}
					out := struct {
						taste.Item
						Users []string `json:"users"`
					}{Item: item}
					for _, u := range ids {
						out.Users = append(out.Users, u.ID)
					}
					if err := app.encode(out); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&withUsers, "users", false, "list the users preferring each item")
	return cmd
}

func (app *App) itemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "item ID",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withModel(cmd, func(ctx context.Context, m *taste.DataModel) error {
				item, err := m.Item(ctx, args[0], false)
				if err != nil {
					return err
				}
				return app.encode(item)
			})
		},
	}
}

func (app *App) prefsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prefs ITEM",
		Short: "List the preferences expressed for an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withModel(cmd, func(ctx context.Context, m *taste.DataModel) error {
				prefs, err := m.PreferencesForItem(ctx, args[0])
				if err != nil {
					return err
				}
				for _, p := range prefs {
					if err := app.encode(p); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func (app *App) countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count the users and the items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withModel(cmd, func(ctx context.Context, m *taste.DataModel) error {
				users, err := m.NumUsers(ctx)
				if err != nil {
					return err
				}
				items, err := m.NumItems(ctx)
				if err != nil {
					return err
				}
				return app.encode(map[string]int{"users": users, "items": items})
			})
		},
	}
}

func (app *App) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set USER ITEM VALUE",
		Short: "Store a preference, replacing the previous value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return taste.ErrInvalidArgument.F("preference value %q: %w", args[2], err)
			}
			return app.withModel(cmd, func(ctx context.Context, m *taste.DataModel) error {
				if err := m.SetPreference(ctx, args[0], args[1], value); err != nil {
					return err
				}
				return app.encode(taste.Preference{UserID: args[0], ItemID: args[1], Value: value})
			})
		},
	}
}

func (app *App) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove USER ITEM",
		Short: "Remove a preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withModel(cmd, func(ctx context.Context, m *taste.DataModel) error {
				return m.RemovePreference(ctx, args[0], args[1])
			})
		},
	}
}

func (app *App) migrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the preference table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withModel(cmd, func(ctx context.Context, m *taste.DataModel) error {
				step := m.Migration()
				if down {
					return step.MigrateDown(m.Connection, ctx)
				}
				return step.MigrateUp(m.Connection, ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "drop the table instead")
	return cmd
}

func (app *App) kvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kv",
		Short: "Work with the buckets of a bolt file (--driver bolt)",
	}
	var group bool
	list := &cobra.Command{
		Use:   "list BUCKET[/PREFIX]",
		Short: "List the key/value pairs of a bucket in key order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd, func(ctx context.Context, b backend) error {
				if group {
					it, err := rowiter.NewGrouping(ctx, b.Store, args[0], splitKV, aggregateKV, rowiter.WithLogger(app.logger()))
					if err != nil {
						return err
					}
					return encodeAll[Group](app, it)
				}
				it, err := rowiter.NewFlat(ctx, b.Store, args[0], scanKV, rowiter.WithLogger(app.logger()))
				if err != nil {
					return err
				}
				return encodeAll[KV](app, it)
			})
		},
	}
	list.Flags().BoolVar(&group, "group", false, "fold runs of adjacent keys sharing the part before the first '/' into one entry (keys come in byte order)")
	put := &cobra.Command{
		Use:   "put BUCKET KEY VALUE",
		Short: "Store a value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd, func(ctx context.Context, b backend) error {
				return b.Store.Put(args[0], args[1], []byte(args[2]))
			})
		},
	}
	cmd.AddCommand(list, put)
	return cmd
}

func (app *App) withStore(cmd *cobra.Command, fn func(ctx context.Context, b backend) error) (rErr error) {
	if app.Config.Driver != DriverBolt {
		return ErrUnsupportedDriver.F("kv needs the %s driver, not %s", DriverBolt, app.Config.Driver)
	}
	b, err := app.openBackend()
	if err != nil {
		return err
	}
	defer errorkit.Finish(&rErr, b.Close)
	return fn(cmd.Context(), b)
}

type KV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Group struct {
	Key     string `json:"key"`
	Entries []KV   `json:"entries"`
}

func scanKV(s rowiter.Scanner) (KV, error) {
	var kv KV
	if err := s.Scan(&kv.Key, &kv.Value); err != nil {
		return KV{}, err
	}
	return kv, nil
}

func splitKV(s rowiter.Scanner) (string, KV, error) {
	kv, err := scanKV(s)
	if err != nil {
		return "", KV{}, err
	}
	group, _, _ := strings.Cut(kv.Key, "/")
	return group, kv, nil
}

func aggregateKV(key string, kvs []KV) Group {
	return Group{Key: key, Entries: kvs}
}

func (b backend) String() string {
	switch {
	case b.Model != nil:
		return fmt.Sprintf("table %s", b.Model.Config.Table)
	case b.Store != nil:
		return fmt.Sprintf("bolt %s", b.Store.DB.Path())
	default:
		return "none"
	}
}
