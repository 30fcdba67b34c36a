package aassert

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

// NumFields asserts that the struct object has the expected number of exported fields.
// Fields of nested structs are counted as well, so are the struct fields themselves.
//
// Use it next to code mapping one struct onto another, e.g. a record onto a database row,
// so that a new field does not go unnoticed by the mapping.
func NumFields(t *testing.T, expected int, object any, msgAndArgs ...any) bool {
	t.Helper()

	value := reflect.ValueOf(object)
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}

	if !value.IsValid() || value.Kind() != reflect.Struct {
		return assert.Fail(t, "invalid argument, it has to be a struct", msgAndArgs...)
	}

	fields := countFields(value.Type())
	if fields != expected {
		return assert.Fail(t, fmt.Sprintf("struct %s changed, it has: %d fields, expected: %d",
			value.Type(), fields, expected), msgAndArgs...)
	}

	return true
}

func countFields(typ reflect.Type) int {
	for typ.Kind() == reflect.Ptr || typ.Kind() == reflect.Slice || typ.Kind() == reflect.Array || typ.Kind() == reflect.Map {
		typ = typ.Elem()
	}

	if typ.Kind() != reflect.Struct {
		return 0
	}

	var fields int

	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		fields += 1 + countFields(field.Type)
	}

	return fields
}
