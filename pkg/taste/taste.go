// Package taste is a preference data model over a relational table of (user, item, preference) rows.
//
// Every user is the run of rows sharing a user id,
// so iterating the users streams the table ordered by user id
// and folds each run into one User with a GroupingIterator.
package taste

import (
	"regexp"

	"go.llib.dev/rowstream/pkg/errorkit"
)

const (
	ErrNotFound        errorkit.Error = "taste: not found"
	ErrInvalidArgument errorkit.Error = "taste: invalid argument"
	ErrInvalidConfig   errorkit.Error = "taste: invalid configuration"
)

type User struct {
	ID          string       `json:"id"`
	Preferences []Preference `json:"preferences,omitempty"`
}

type Item struct {
	ID string `json:"id"`
}

type Preference struct {
	UserID string  `json:"user_id,omitempty"`
	ItemID string  `json:"item_id"`
	Value  float64 `json:"value"`
}

// Config names the preference table and its columns.
type Config struct {
	Table            string `env:"ROWSTREAM_TABLE" default:"taste_preferences"`
	UserIDColumn     string `env:"ROWSTREAM_USER_ID_COLUMN" default:"user_id"`
	ItemIDColumn     string `env:"ROWSTREAM_ITEM_ID_COLUMN" default:"item_id"`
	PreferenceColumn string `env:"ROWSTREAM_PREFERENCE_COLUMN" default:"preference"`
}

func DefaultConfig() Config {
	return Config{
		Table:            "taste_preferences",
		UserIDColumn:     "user_id",
		ItemIDColumn:     "item_id",
		PreferenceColumn: "preference",
	}
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Validate rejects empty and non-identifier names, since they end up in SQL text.
func (c Config) Validate() error {
	var errs []error
	for _, f := range []struct{ name, value string }{
		{name: "table", value: c.Table},
		{name: "user id column", value: c.UserIDColumn},
		{name: "item id column", value: c.ItemIDColumn},
		{name: "preference column", value: c.PreferenceColumn},
	} {
		if f.value == "" {
			errs = append(errs, ErrInvalidConfig.F("%s is empty", f.name))
			continue
		}
		if !identifier.MatchString(f.value) {
			errs = append(errs, ErrInvalidConfig.F("%s is not an SQL identifier: %q", f.name, f.value))
		}
	}
	return errorkit.Merge(errs...)
}

// Factory builds the entities out of the values read from the table.
// Any nil function falls back to the plain constructor.
type Factory struct {
	BuildUser       func(id string, prefs []Preference) User
	BuildItem       func(id string) Item
	BuildPreference func(userID, itemID string, value float64) Preference
}

func (f Factory) user(id string, prefs []Preference) User {
	if f.BuildUser != nil {
		return f.BuildUser(id, prefs)
	}
	return User{ID: id, Preferences: prefs}
}

func (f Factory) item(id string) Item {
	if f.BuildItem != nil {
		return f.BuildItem(id)
	}
	return Item{ID: id}
}

func (f Factory) preference(userID, itemID string, value float64) Preference {
	if f.BuildPreference != nil {
		return f.BuildPreference(userID, itemID, value)
	}
	return Preference{UserID: userID, ItemID: itemID, Value: value}
}
