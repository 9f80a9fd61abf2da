package querybuilder

import (
	"errors"
	"reflect"
	"strings"
	"sync"
)

var (
	errNilModel       = errors.New("model cannot be nil")
	errNotStructModel = errors.New("model must be struct")
	errNoModelColumns = errors.New("model has no db columns")
)

// Conflict renders ON CONFLICT (target...). With no Update columns the insert
// is skipped on conflict; otherwise the listed columns take the EXCLUDED row.
type Conflict struct {
	Target []string
	Update []string
}

func (c Conflict) clause() string {
	if len(c.Target) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("ON CONFLICT (")
	buf.WriteString(strings.Join(c.Target, ", "))
	buf.WriteString(")")
	if len(c.Update) == 0 {
		buf.WriteString(" DO NOTHING")
		return buf.String()
	}
	buf.WriteString(" DO UPDATE SET ")
	for i, col := range c.Update {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(col)
		buf.WriteString(" = EXCLUDED.")
		buf.WriteString(col)
	}
	return buf.String()
}

// InsertModel inserts one row built from the model's db tags. conflict may be
// nil for a plain insert.
func InsertModel(table string, model any, conflict *Conflict) (string, []any, error) {
	cols, vals, err := columnsAndValuesFromModel(model)
	if err != nil {
		return "", nil, err
	}
	insert := InsertInto(table).Columns(cols...).Values(vals...)
	if conflict != nil {
		insert.Suffix(conflict.clause())
	}
	return insert.ToSQL()
}

type modelField struct {
	index  int
	column string
}

// fieldsByType caches the tagged exported fields of each model type; the
// table models are fixed so the cache stays small.
var fieldsByType sync.Map

func modelFields(typ reflect.Type) []modelField {
	if cached, ok := fieldsByType.Load(typ); ok {
		return cached.([]modelField)
	}
	fields := make([]modelField, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		col := strings.TrimSpace(strings.Split(field.Tag.Get("db"), ",")[0])
		if col == "" || col == "-" {
			continue
		}
		fields = append(fields, modelField{index: i, column: col})
	}
	actual, _ := fieldsByType.LoadOrStore(typ, fields)
	return actual.([]modelField)
}

func columnsAndValuesFromModel(model any) ([]string, []any, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, nil, errNilModel
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, nil, errNotStructModel
	}

	fields := modelFields(value.Type())
	if len(fields) == 0 {
		return nil, nil, errNoModelColumns
	}
	cols := make([]string, 0, len(fields))
	vals := make([]any, 0, len(fields))
	for _, f := range fields {
		cols = append(cols, f.column)
		vals = append(vals, value.Field(f.index).Interface())
	}
	return cols, vals, nil
}
