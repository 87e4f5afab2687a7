package output

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
	"unicode"
)

// TableFormatter prints structs, slices of structs, slices of scalars and
// maps as aligned columns. Anything else is printed as JSON.
//
// Columns come from exported fields named by their json tag. A field tagged
// `table:"-"` is never shown and one tagged `table:"wide"` only with Wide.
type TableFormatter struct {
	Wide bool
}

func (f *TableFormatter) Format(w io.Writer, data any) error {
	if data == nil {
		return nil
	}
	g, ok := f.layout(reflect.ValueOf(data))
	if !ok {
		return (&JSONFormatter{}).Format(w, data)
	}
	return g.write(w)
}

// grid is a header line plus rows of cells.
type grid struct {
	head []string
	rows [][]string
}

func (g *grid) write(w io.Writer) error {
	if g.head == nil && g.rows == nil {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(g.head) > 0 {
		fmt.Fprintln(tw, strings.Join(g.head, "\t"))
	}
	for _, r := range g.rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

func (f *TableFormatter) layout(v reflect.Value) (*grid, bool) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return &grid{}, true
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		g := &grid{head: []string{"FIELD", "VALUE"}}
		for _, c := range f.columns(v.Type()) {
			g.rows = append(g.rows, []string{c.name, cell(v.Field(c.index))})
		}
		return g, true

	case reflect.Map:
		g := &grid{head: []string{"KEY", "VALUE"}}
		for it := v.MapRange(); it.Next(); {
			g.rows = append(g.rows, []string{cell(it.Key()), cell(it.Value())})
		}
		slices.SortFunc(g.rows, func(a, b []string) int { return cmp.Compare(a[0], b[0]) })
		return g, true

	case reflect.Slice, reflect.Array:
		elem := v.Type().Elem()
		if elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Struct {
			g := &grid{head: []string{"VALUE"}}
			for i := range v.Len() {
				g.rows = append(g.rows, []string{cell(v.Index(i))})
			}
			return g, true
		}

		cols := f.columns(elem)
		g := &grid{head: make([]string, len(cols))}
		for i, c := range cols {
			g.head[i] = strings.ToUpper(c.name)
		}
		for i := range v.Len() {
			item := reflect.Indirect(v.Index(i))
			if !item.IsValid() {
				continue
			}
			row := make([]string, len(cols))
			for j, c := range cols {
				row[j] = cell(item.Field(c.index))
			}
			g.rows = append(g.rows, row)
		}
		return g, true
	}
	return nil, false
}

type column struct {
	index int
	name  string
}

func (f *TableFormatter) columns(t reflect.Type) []column {
	var cols []column
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		switch sf.Tag.Get("table") {
		case "-":
			continue
		case "wide":
			if !f.Wide {
				continue
			}
		}
		cols = append(cols, column{index: i, name: columnName(sf)})
	}
	return cols
}

// columnName is the json name of sf, or its Go name in snake_case.
func columnName(sf reflect.StructField) string {
	if name, _, _ := strings.Cut(sf.Tag.Get("json"), ","); name != "" && name != "-" {
		return name
	}
	return snake(sf.Name)
}

// snake converts a Go identifier to snake_case, keeping initialisms
// together: BorrowedByID becomes borrowed_by_id.
func snake(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i, r := range rs {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && !unicode.IsUpper(rs[i-1])
			endOfRun := i > 0 && i+1 < len(rs) && unicode.IsUpper(rs[i-1]) && unicode.IsLower(rs[i+1])
			if prevLower || endOfRun {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

var timeType = reflect.TypeFor[time.Time]()

// cell renders one value. Empty strings, nil pointers, zero times and empty
// collections print as "-".
func cell(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "-"
		}
		v = v.Elem()
	}

	if v.Type() == timeType {
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return "-"
		}
		return t.Local().Format("2006-01-02 15:04")
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}

	switch v.Kind() {
	case reflect.String:
		return cmp.Or(v.String(), "-")
	case reflect.Bool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', 2, 64)
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	}

	if b, err := json.Marshal(v.Interface()); err == nil {
		return string(b)
	}
	return fmt.Sprint(v.Interface())
}
