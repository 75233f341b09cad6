// Package table loads materialized record sets into gota data frames and
// decodes them into typed rows.
package table

import (
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/yourusername/racing-form/internal/models"
)

// naValue is the cell text gota reads as missing
const naValue = "NaN"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Frame is a named-column record set
type Frame struct {
	df dataframe.DataFrame
}

// FromRecords creates a new Frame from rows keyed by column name. Every row
// is widened to the union of column names; absent cells are missing.
func FromRecords(records []map[string]any) (*Frame, error) {
	if len(records) == 0 {
		return nil, models.ErrEmptyTable
	}

	colSet := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			colSet[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(colSet))
	for k := range colSet {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	cells := make([][]string, 0, len(records)+1)
	cells = append(cells, columns)
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			v, ok := rec[col]
			if !ok {
				row[i] = naValue
				continue
			}
			row[i] = formatCell(v)
		}
		cells = append(cells, row)
	}

	df := dataframe.LoadRecords(cells,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(columnTypes(columns)),
		dataframe.NaNValues([]string{naValue, "NA", "<nil>", ""}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to load records: %w", df.Err)
	}
	return &Frame{df: df}, nil
}

// FromCSV creates a new Frame from a CSV stream with a header row
func FromCSV(r io.Reader) (*Frame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{naValue, "NA", ""}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", df.Err)
	}
	if df.Nrow() == 0 {
		return nil, models.ErrEmptyTable
	}
	return &Frame{df: df}, nil
}

// Len returns the number of rows
func (f *Frame) Len() int {
	return f.df.Nrow()
}

// Where returns the rows whose column equals value
func (f *Frame) Where(column string, value any) *Frame {
	return &Frame{df: f.df.Filter(dataframe.F{Colname: column, Comparator: series.Eq, Comparando: value})}
}

// Err reports a deferred gota error, e.g. from Where on an unknown column
func (f *Frame) Err() error {
	return f.df.Err
}

// PerformanceRows decodes every row into a PerformanceRow
func (f *Frame) PerformanceRows() ([]models.PerformanceRow, error) {
	return Decode[models.PerformanceRow](f)
}

// SettlementInputs decodes every row into a SettlementInput
func (f *Frame) SettlementInputs() ([]models.SettlementInput, error) {
	return Decode[models.SettlementInput](f)
}

// Decode maps columns onto the json-tagged fields of T. Columns without a
// matching field are ignored; fields without a column keep their zero value.
func Decode[T any](f *Frame) ([]T, error) {
	if f == nil {
		return nil, models.ErrEmptyTable
	}
	if f.df.Err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", f.df.Err)
	}

	var zero T
	typ := reflect.TypeOf(zero)
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("failed to decode frame: %s is not a struct", typ)
	}

	present := make(map[string]series.Series)
	for _, name := range f.df.Names() {
		present[name] = f.df.Col(name)
	}

	bindings := make([]binding, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		col := jsonName(field)
		if col == "" {
			continue
		}
		s, ok := present[col]
		if !ok {
			continue
		}
		bindings = append(bindings, binding{index: i, column: col, series: s})
	}

	out := make([]T, f.df.Nrow())
	for row := range out {
		v := reflect.ValueOf(&out[row]).Elem()
		for _, b := range bindings {
			if err := assign(v.Field(b.index), b.series.Elem(row)); err != nil {
				return nil, fmt.Errorf("failed to decode row %d column %s: %w", row, b.column, err)
			}
		}
	}
	return out, nil
}

type binding struct {
	index  int
	column string
	series series.Series
}

func jsonName(field reflect.StructField) string {
	if !field.IsExported() || field.Anonymous {
		return ""
	}
	tag := field.Tag.Get("json")
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

func assign(dst reflect.Value, e series.Element) error {
	if e.IsNA() {
		return nil
	}

	if dst.Type() == reflect.TypeOf(time.Time{}) {
		t, err := ParseTime(e.String())
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	}

	target := dst
	if dst.Kind() == reflect.Pointer {
		target = reflect.New(dst.Type().Elem()).Elem()
	}

	switch target.Kind() {
	case reflect.String:
		target.SetString(e.String())
	case reflect.Int, reflect.Int32, reflect.Int64:
		raw := strings.TrimSpace(e.String())
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			target.SetInt(n)
			break
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		target.SetInt(int64(math.Round(f)))
	case reflect.Float32, reflect.Float64:
		target.SetFloat(e.Float())
	case reflect.Bool:
		b, err := e.Bool()
		if err != nil {
			return err
		}
		target.SetBool(b)
	default:
		return fmt.Errorf("unsupported field kind %s", target.Kind())
	}

	if dst.Kind() == reflect.Pointer {
		ptr := reflect.New(dst.Type().Elem())
		ptr.Elem().Set(target)
		dst.Set(ptr)
	}
	return nil
}

// ParseTime parses the timestamp layouts storage and CSV exports produce
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", models.ErrMalformedDate, s)
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return naValue
	case string:
		return val
	case time.Time:
		if val.IsZero() {
			return naValue
		}
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339Nano)
	case *time.Time:
		if val == nil {
			return naValue
		}
		return formatCell(*val)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return naValue
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return formatCell(float64(val))
	case fmt.Stringer:
		return val.String()
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return naValue
		}
		return formatCell(rv.Elem().Interface())
	}
	return fmt.Sprint(v)
}

// columnTypes keeps every column as text; numeric conversion happens per
// field at decode time so integer ids never round-trip through float.
func columnTypes(columns []string) map[string]series.Type {
	types := make(map[string]series.Type, len(columns))
	for _, c := range columns {
		types[c] = series.String
	}
	return types
}
