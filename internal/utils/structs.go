package utils

import (
	"fmt"
	"reflect"
)

var ColumnTag = "db"

// StructTagValues returns the db column names declared on a struct, in field
// order. Unexported fields and fields tagged "-" are skipped.
func StructTagValues(input any) []string {
	columns := make([]string, 0)
	eachColumn(input, func(column string, _ reflect.Value) {
		columns = append(columns, column)
	})
	return columns
}

// StructToMap maps db column names to field values, minus any column listed
// in omit.
func StructToMap(input any, omit ...string) map[string]any {
	result := make(map[string]any)
	eachColumn(input, func(column string, value reflect.Value) {
		for _, o := range omit {
			if o == column {
				return
			}
		}
		result[column] = value.Interface()
	})
	return result
}

func eachColumn(input any, fn func(column string, value reflect.Value)) {
	itemValue := reflect.ValueOf(input)
	if itemValue.Kind() == reflect.Ptr {
		itemValue = itemValue.Elem()
	}

	if itemValue.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}

	itemType := itemValue.Type()

	for i := 0; i < itemValue.NumField(); i++ {
		if itemType.Field(i).PkgPath != "" {
			continue
		}

		tagValue := itemType.Field(i).Tag.Get(ColumnTag)
		if tagValue == "" || tagValue == "-" {
			continue
		}

		fn(tagValue, itemValue.Field(i))
	}
}

func ErrorWrapOrNil(err error, msg string) error {
	if err == nil {
		return nil
	}

	if msg == "" {
		return err
	}

	return fmt.Errorf("%s: %w", msg, err)
}
