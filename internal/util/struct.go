package util

import (
	"reflect"

	"github.com/pkg/errors"
)

// IsStructInitialized reports an error naming the first nil pointer, interface,
// map or func field of the struct s points to. Fields tagged `wire:"-"` are skipped.
func IsStructInitialized(s any) error {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return errors.New("struct is nil")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return errors.Errorf("expected struct, got %s", v.Kind())
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get("wire") == "-" {
			continue
		}

		f := v.Field(i)
		switch f.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Func, reflect.Slice, reflect.Chan:
			if f.IsNil() {
				return errors.Errorf("field %s is not initialized", field.Name)
			}
		default:
		}
	}

	return nil
}
