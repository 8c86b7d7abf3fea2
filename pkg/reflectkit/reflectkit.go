// Package reflectkit holds the reflection helpers that in-process row sources use
// to copy column values into Scan destinations.
package reflectkit

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
)

// SymbolicName returns the type name of the value, pointers excluded.
func SymbolicName(e any) string {
	t := reflect.TypeOf(e)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.String()
}

// Link will make destination interface be linked with the src value.
// When src is not assignable but convertible to the destination type, the converted value is used.
// A nil src sets the destination to its zero value.
func Link(src, ptr any) (err error) {
	vPtr := reflect.ValueOf(ptr)
	if vPtr.Kind() != reflect.Ptr || vPtr.IsNil() {
		return errors.New(`pointer type destination expected`)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			err = errors.New(fmt.Sprint(recovered))
		}
	}()

	dst := vPtr.Elem()
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	val := reflect.ValueOf(src)
	switch {
	case val.Type().AssignableTo(dst.Type()):
		dst.Set(val)
	case isTextual(val.Type()) && isTextual(dst.Type()):
		dst.Set(val.Convert(dst.Type()))
	case isNumber(val.Kind()) && isNumber(dst.Kind()):
		dst.Set(val.Convert(dst.Type()))
	case dst.Kind() == reflect.Ptr && val.Type().AssignableTo(dst.Type().Elem()):
		p := reflect.New(dst.Type().Elem())
		p.Elem().Set(val)
		dst.Set(p)
	default:
		return fmt.Errorf("reflectkit: value of type %s is not assignable to type %s", val.Type(), dst.Type())
	}
	return nil
}

// ScanRow copies the column values of row into dest the way sql.Rows.Scan does:
// a nil destination skips the column and a sql.Scanner destination receives the raw value.
func ScanRow(row []any, dest ...any) error {
	if len(dest) != len(row) {
		return fmt.Errorf("reflectkit: expected %d destination arguments in Scan, not %d", len(row), len(dest))
	}
	for i, d := range dest {
		if d == nil {
			continue
		}
		if scanner, ok := d.(sql.Scanner); ok {
			if err := scanner.Scan(row[i]); err != nil {
				return fmt.Errorf("reflectkit: scanning column %d into %s: %w", i, SymbolicName(d), err)
			}
			continue
		}
		if err := Link(row[i], d); err != nil {
			return fmt.Errorf("reflectkit: scanning column %d into %s: %w", i, SymbolicName(d), err)
		}
	}
	return nil
}

func isTextual(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.String:
		return true
	case reflect.Slice:
		return typ.Elem().Kind() == reflect.Uint8
	default:
		return false
	}
}

func isNumber(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
