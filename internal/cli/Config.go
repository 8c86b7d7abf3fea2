package cli

import (
	"go.llib.dev/rowstream/pkg/env"
	"go.llib.dev/rowstream/pkg/errorkit"
	"go.llib.dev/rowstream/pkg/taste"
)

const ErrUnsupportedDriver errorkit.Error = "unsupported driver"

const (
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
	DriverMySQL    = "mysql"
	DriverBolt     = "bolt"
	DriverDemo     = "demo"
)

var Drivers = []string{DriverPostgres, DriverPGX, DriverMySQL, DriverBolt, DriverDemo}

type Config struct {
	Driver string `env:"ROWSTREAM_DRIVER" default:"demo"`
	DSN    string `env:"DATABASE_URL"`
	// DemoUsers is the number of random users the demo driver starts with.
	DemoUsers int `env:"ROWSTREAM_DEMO_USERS" default:"5"`

	Taste taste.Config
}

func LoadConfig() (Config, error) {
	var c Config
	if err := env.Load(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var known bool
	for _, d := range Drivers {
		if d == c.Driver {
			known = true
			break
		}
	}
	if !known {
		return ErrUnsupportedDriver.F("%q (supported: %v)", c.Driver, Drivers)
	}
	if c.Driver != DriverDemo && c.DSN == "" {
		return taste.ErrInvalidConfig.F("the %s driver needs a DSN (--dsn or DATABASE_URL)", c.Driver)
	}
	return c.Taste.Validate()
}
