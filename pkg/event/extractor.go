package event

import (
	"reflect"
	"strings"
)

// DefaultFieldExtractor reads fields by their JSON name, descending into
// embedded structs.
type DefaultFieldExtractor struct{}

func (e *DefaultFieldExtractor) ExtractFields(obj interface{}, fields []string) map[string]interface{} {
	result := make(map[string]interface{})
	if obj == nil || len(fields) == 0 {
		return result
	}

	val := reflect.ValueOf(obj)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return result
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return result
	}

	wanted := make(map[string]bool, len(fields))
	for _, f := range fields {
		wanted[f] = true
	}
	collect(val, wanted, result)
	return result
}

func collect(val reflect.Value, wanted map[string]bool, out map[string]interface{}) {
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collect(val.Field(i), wanted, out)
			continue
		}
		if !field.IsExported() {
			continue
		}

		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		if wanted[name] {
			out[name] = val.Field(i).Interface()
		}
	}
}

// ExtractChanges returns {"field": {"old": x, "new": y}} for every tracked
// field whose value differs.
func (e *DefaultFieldExtractor) ExtractChanges(old, new interface{}, fields []string) map[string]interface{} {
	changes := make(map[string]interface{})
	if old == nil || new == nil || len(fields) == 0 {
		return changes
	}

	oldFields := e.ExtractFields(old, fields)
	newFields := e.ExtractFields(new, fields)

	for field, newValue := range newFields {
		if oldValue, exists := oldFields[field]; exists && !reflect.DeepEqual(oldValue, newValue) {
			changes[field] = map[string]interface{}{
				"old": oldValue,
				"new": newValue,
			}
		}
	}
	return changes
}
