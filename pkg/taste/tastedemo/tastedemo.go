// Package tastedemo serves a preference table from memory,
// for demos and for tests that need a DataModel without a database server.
package tastedemo

import (
	"context"
	"database/sql/driver"
	"fmt"
	"sort"
	"sync"

	"github.com/Pallinder/go-randomdata"

	"go.llib.dev/rowstream/adapter/memory"
	"go.llib.dev/rowstream/pkg/flsql"
	"go.llib.dev/rowstream/pkg/rowiter"
	"go.llib.dev/rowstream/pkg/taste"
)

// NewTable returns an empty table that answers the given statements.
func NewTable(stmts taste.Statements) *Table {
	t := &Table{
		Statements: stmts,
		prefs:      make(map[key]float64),
	}
	t.Memory = memory.NewMemory()
	t.Memory.ExecFunc = t.exec
	t.Memory.Fallback = t.fallback
	t.publish()
	return t
}

// Table keeps the preferences in a map and re-registers the results of every read statement on each change.
type Table struct {
	Memory     *memory.Memory
	Statements taste.Statements

	m     sync.Mutex
	prefs map[key]float64
}

type key struct{ UserID, ItemID string }

func (t *Table) Put(prefs ...taste.Preference) {
	t.m.Lock()
	defer t.m.Unlock()
	for _, p := range prefs {
		t.prefs[key{UserID: p.UserID, ItemID: p.ItemID}] = p.Value
	}
	t.publish()
}

// Preferences returns the stored preferences ordered by user id, then item id.
func (t *Table) Preferences() []taste.Preference {
	t.m.Lock()
	defer t.m.Unlock()
	return t.sorted()
}

func (t *Table) exec(ctx context.Context, query string, args ...any) (flsql.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.m.Lock()
	defer t.m.Unlock()
	switch query {
	case t.Statements.SetPreference:
		if len(args) != 3 {
			return nil, fmt.Errorf("tastedemo: set preference expects 3 arguments, got %d", len(args))
		}
		k := key{UserID: fmt.Sprint(args[0]), ItemID: fmt.Sprint(args[1])}
		v, ok := args[2].(float64)
		if !ok {
			return nil, fmt.Errorf("tastedemo: preference value must be a float64, got %T", args[2])
		}
		t.prefs[k] = v
		t.publish()
		return driver.RowsAffected(1), nil
	case t.Statements.RemovePreference:
		if len(args) != 2 {
			return nil, fmt.Errorf("tastedemo: remove preference expects 2 arguments, got %d", len(args))
		}
		k := key{UserID: fmt.Sprint(args[0]), ItemID: fmt.Sprint(args[1])}
		if _, ok := t.prefs[k]; !ok {
			return driver.RowsAffected(0), nil
		}
		delete(t.prefs, k)
		t.publish()
		return driver.RowsAffected(1), nil
	case t.Statements.CreateTable:
		return driver.RowsAffected(0), nil
	case t.Statements.DropTable:
		t.prefs = make(map[key]float64)
		t.publish()
		return driver.RowsAffected(0), nil
	default:
		return nil, rowiter.ErrUnsupportedOperation.F("tastedemo: %s", query)
	}
}

func (t *Table) sorted() []taste.Preference {
	var prefs []taste.Preference
	for k, v := range t.prefs {
		prefs = append(prefs, taste.Preference{UserID: k.UserID, ItemID: k.ItemID, Value: v})
	}
	sort.Slice(prefs, func(i, j int) bool {
		if prefs[i].UserID != prefs[j].UserID {
			return prefs[i].UserID < prefs[j].UserID
		}
		return prefs[i].ItemID < prefs[j].ItemID
	})
	return prefs
}

func (t *Table) publish() {
	var (
		s       = t.Statements
		prefs   = t.sorted()
		users   [][]any
		byUser  = map[string][][]any{}
		byItem  = map[string][]taste.Preference{}
		userIDs = map[string]struct{}{}
	)
	for _, p := range prefs {
		users = append(users, []any{p.ItemID, p.Value, p.UserID})
		byUser[p.UserID] = append(byUser[p.UserID], []any{p.ItemID, p.Value})
		byItem[p.ItemID] = append(byItem[p.ItemID], p)
		userIDs[p.UserID] = struct{}{}
	}

	t.Memory.Reset()
	t.Memory.Set(users, s.Users)
	t.Memory.Set([][]any{{len(userIDs)}}, s.NumUsers)
	t.Memory.Set([][]any{{len(byItem)}}, s.NumItems)

	var itemIDs []string
	for id := range byItem {
		itemIDs = append(itemIDs, id)
	}
	sort.Strings(itemIDs)
	var items [][]any
	for _, id := range itemIDs {
		items = append(items, []any{id})
	}
	t.Memory.Set(items, s.Items)

	for id, rows := range byUser {
		t.Memory.Set(rows, s.User, id)
	}
	for id, ps := range byItem {
		var (
			rows  [][]any
			users [][]any
		)
		// ps is ordered by user id already
		for _, p := range ps {
			rows = append(rows, []any{p.Value, p.UserID})
			users = append(users, []any{p.UserID})
		}
		t.Memory.Set([][]any{{1}}, s.Item, id)
		t.Memory.Set(rows, s.PreferencesForItem, id)
		t.Memory.Set(users, s.UsersPreferringItem, id)
	}
}

// fallback answers the lookups of ids that have no rows.
func (t *Table) fallback(query string, args ...any) ([][]any, error) {
	switch query {
	case t.Statements.User, t.Statements.Item, t.Statements.PreferencesForItem, t.Statements.UsersPreferringItem:
		return nil, nil
	default:
		return nil, memory.ErrUnknownQuery.F("%s", query)
	}
}

// RandomPreferences generates preferences for the given number of users,
// each rating a few items from a shared pool.
func RandomPreferences(users int) []taste.Preference {
	var items []string
	for i, n := 0, randomdata.Number(3, 8); i < n; i++ {
		items = append(items, fmt.Sprintf("%s-%d", randomdata.Noun(), i))
	}
	var prefs []taste.Preference
	for u := 0; u < users; u++ {
		userID := fmt.Sprintf("%s-%d", randomdata.SillyName(), u)
		seen := map[string]struct{}{}
		for i, n := 0, randomdata.Number(1, len(items)+1); i < n; i++ {
			item := items[randomdata.Number(0, len(items))]
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			prefs = append(prefs, taste.Preference{
				UserID: userID,
				ItemID: item,
				Value:  float64(randomdata.Number(10, 51)) / 10,
			})
		}
	}
	return prefs
}
