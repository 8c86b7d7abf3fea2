// Package env loads configuration structures from environment variables.
//
//	type Config struct {
//		DSN    string        `env:"DATABASE_URL" required:"true"`
//		Driver string        `env:"ROWSTREAM_DRIVER" default:"postgres"`
//		Wait   time.Duration `env:"WAIT" default:"5s"`
//	}
package env

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"go.llib.dev/rowstream/pkg/errorkit"
)

const ErrLoadInvalidData errorkit.Error = "ErrLoadInvalidData"

const envTagKey = "env"

var (
	tagsForDefaultValue = []string{"env-default", "default"}
	tagsForRequired     = []string{"env-required", "required"}
	tagsForSeparator    = []string{"env-separator", "separator"}
)

// Load populates the exported fields of the struct behind ptr
// which carry an `env` tag. Nested structs are visited recursively.
func Load[T any](ptr *T) error {
	if ptr == nil {
		return ErrLoadInvalidData.F("nil value received")
	}
	rv := reflect.ValueOf(ptr).Elem()
	if rv.Kind() != reflect.Struct {
		return ErrLoadInvalidData.F("non-struct type received: %T", *ptr)
	}
	return loadVisitStruct(rv)
}

func loadVisitStruct(rStruct reflect.Value) error {
	var errs []error
	for i, numField := 0, rStruct.NumField(); i < numField; i++ {
		rStructField := rStruct.Type().Field(i)
		if !rStructField.IsExported() {
			continue
		}
		field := rStruct.Field(i)
		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Time{}) {
			errs = append(errs, loadVisitStruct(field))
			continue
		}
		key, ok := rStructField.Tag.Lookup(envTagKey)
		if !ok {
			continue
		}
		opts, err := getLookupOptions(rStructField.Tag)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		val, ok, err := lookup(field.Type(), key, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("error parsing the value for %s: %w", rStructField.Name, err))
			continue
		}
		if ok {
			field.Set(val)
		}
	}
	return errorkit.Merge(errs...)
}

// Lookup reads a single environment variable as T.
func Lookup[T any](key string, opts ...LookupOption) (T, bool, error) {
	var conf lookupOptions
	for _, opt := range opts {
		opt.configure(&conf)
	}
	val, ok, err := lookup(reflect.TypeOf((*T)(nil)).Elem(), key, conf)
	if err != nil || !ok {
		return *new(T), ok, err
	}
	return val.Interface().(T), true, nil
}

type LookupOption interface{ configure(*lookupOptions) }

type funcLookupOption func(*lookupOptions)

func (fn funcLookupOption) configure(options *lookupOptions) { fn(options) }

func DefaultValue(val string) LookupOption {
	return funcLookupOption(func(options *lookupOptions) {
		options.DefaultValue = &val
	})
}

func Required() LookupOption {
	return funcLookupOption(func(options *lookupOptions) {
		options.IsRequired = true
	})
}

func ListSeparator(sep string) LookupOption {
	return funcLookupOption(func(options *lookupOptions) {
		options.Separator = sep
	})
}

type lookupOptions struct {
	DefaultValue *string
	IsRequired   bool
	Separator    string
}

func getLookupOptions(tag reflect.StructTag) (lookupOptions, error) {
	var opts lookupOptions
	for _, key := range tagsForDefaultValue {
		if value, ok := tag.Lookup(key); ok {
			opts.DefaultValue = &value
			break
		}
	}
	for _, key := range tagsForRequired {
		value, ok := tag.Lookup(key)
		if !ok {
			continue
		}
		isRequired, err := strconv.ParseBool(value)
		if err != nil {
			return opts, err
		}
		opts.IsRequired = isRequired
		break
	}
	for _, key := range tagsForSeparator {
		if value, ok := tag.Lookup(key); ok {
			opts.Separator = value
			break
		}
	}
	return opts, nil
}

func lookup(typ reflect.Type, key string, opts lookupOptions) (reflect.Value, bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok && opts.DefaultValue != nil {
		ok = true
		raw = *opts.DefaultValue
	}
	if !ok {
		if opts.IsRequired {
			return reflect.Value{}, false, fmt.Errorf("missing environment variable: %s", key)
		}
		return reflect.Value{}, false, nil
	}
	rv, err := parse(typ, raw, opts)
	if err != nil {
		return reflect.Value{}, false, err
	}
	return rv, true, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func parse(typ reflect.Type, raw string, opts lookupOptions) (reflect.Value, error) {
	rv := reflect.New(typ).Elem()
	if typ == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return rv, err
		}
		rv.SetInt(int64(d))
		return rv, nil
	}
	switch typ.Kind() {
	case reflect.String:
		rv.SetString(raw)
	case reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return rv, err
		}
		rv.SetBool(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(raw, 10, typ.Bits())
		if err != nil {
			return rv, err
		}
		rv.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(raw, 10, typ.Bits())
		if err != nil {
			return rv, err
		}
		rv.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(raw, typ.Bits())
		if err != nil {
			return rv, err
		}
		rv.SetFloat(v)
	case reflect.Slice:
		sep := opts.Separator
		if sep == "" {
			sep = ","
		}
		var parts []string
		if raw != "" {
			parts = strings.Split(raw, sep)
		}
		slice := reflect.MakeSlice(typ, 0, len(parts))
		for _, part := range parts {
			elem, err := parse(typ.Elem(), strings.TrimSpace(part), opts)
			if err != nil {
				return rv, err
			}
			slice = reflect.Append(slice, elem)
		}
		rv.Set(slice)
	default:
		return rv, fmt.Errorf("%s type is not supported", typ.String())
	}
	return rv, nil
}
