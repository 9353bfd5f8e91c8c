package entity

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
)

// ErrNotSerializable is returned for payloads that cannot cross the wire as
// plain JSON values.
var ErrNotSerializable = errors.New("payload is not serializable")

const maxPayloadDepth = 32

var (
	closerType        = reflect.TypeFor[io.Closer]()
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// ValidatePayload checks that v is a tree of objects, arrays and scalars.
// Open handles (anything implementing io.Closer), channels, functions
// (including iterators), unsafe pointers, complex numbers and non-finite
// floats are rejected, as are structures nested deeper than a fixed limit,
// which also catches reference cycles.
func ValidatePayload(v any) error {
	return validateValue(reflect.ValueOf(v), "$", 0)
}

func validateValue(v reflect.Value, path string, depth int) error {
	if depth > maxPayloadDepth {
		return fmt.Errorf("%w: %s nested deeper than %d", ErrNotSerializable, path, maxPayloadDepth)
	}
	if !v.IsValid() {
		return nil
	}

	t := v.Type()
	if t.Implements(closerType) && !isNil(v) {
		return fmt.Errorf("%w: %s holds an open handle (%s)", ErrNotSerializable, path, t)
	}
	if t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) {
		return nil
	}

	switch v.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return nil
	case reflect.Float32, reflect.Float64:
		if f := v.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrNotSerializable, path)
		}
		return nil
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return validateValue(v.Elem(), path, depth+1)
	case reflect.Slice:
		if v.IsNil() || t.Elem().Kind() == reflect.Uint8 {
			return nil
		}
		fallthrough
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := validateValue(v.Index(i), fmt.Sprintf("%s[%d]", path, i), depth+1); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		switch t.Key().Kind() {
		case reflect.String,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		default:
			if !t.Key().Implements(textMarshalerType) {
				return fmt.Errorf("%w: %s has unsupported key type %s", ErrNotSerializable, path, t.Key())
			}
		}
		iter := v.MapRange()
		for iter.Next() {
			if err := validateValue(iter.Value(), fmt.Sprintf("%s.%v", path, iter.Key()), depth+1); err != nil {
				return err
			}
		}
		return nil
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || f.Tag.Get("json") == "-" {
				continue
			}
			if err := validateValue(v.Field(i), path+"."+f.Name, depth+1); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %s has unsupported kind %s", ErrNotSerializable, path, v.Kind())
	}
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
