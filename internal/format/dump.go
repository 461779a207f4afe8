package format

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// MaxDumpDepth bounds how deep Dump descends into nested values.
const MaxDumpDepth = 16

const (
	nullToken      = "NULL"
	recursionToken = "*RECURSION*"
	depthToken     = "*MAX DEPTH*"
)

// Dump renders value as an indented key/value listing headed by name.
// Maps are listed in key order, slices by index and structs by field.
// Nested containers are indented two spaces per level. A map, slice or
// pointer reached again through itself prints as *RECURSION*.
func Dump(name string, value any) string {
	return DumpWith(name, value, "\n")
}

// DumpWith is Dump with a caller-chosen line break ("<br>" for HTML sinks,
// "\n" elsewhere).
func DumpWith(name string, value any, lineBreak string) string {
	d := &dumper{lineBreak: lineBreak, seen: map[visit]bool{}}
	d.b.WriteString(name)
	d.b.WriteString(":")
	d.b.WriteString(lineBreak)

	rv := reflect.ValueOf(value)
	if (rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice) && rv.IsNil() {
		return d.b.String()
	}
	if isContainer(rv) {
		d.entries(rv, 0)
	} else {
		d.value(0, "value", rv)
	}
	return d.b.String()
}

// Inline renders v on one line without following references, so it is safe
// for arbitrary recovered panic values. Composite values print as their type.
func Inline(v any) (s string) {
	defer func() {
		if p := recover(); p != nil {
			s = fmt.Sprintf("(%T)", v)
		}
	}()
	switch x := v.(type) {
	case nil:
		return nullToken
	case string:
		return x
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return scalar(rv)
}

// visit identifies a reference by address and type, so a struct and its
// first field never collide.
type visit struct {
	ptr uintptr
	typ reflect.Type
}

type dumper struct {
	b         strings.Builder
	lineBreak string
	seen      map[visit]bool
}

// enter marks rv as being walked. It reports false when rv is already on
// the current path.
func (d *dumper) enter(rv reflect.Value) (visit, bool) {
	v := visit{ptr: rv.Pointer(), typ: rv.Type()}
	if v.ptr == 0 {
		return v, true
	}
	if d.seen[v] {
		return v, false
	}
	d.seen[v] = true
	return v, true
}

func (d *dumper) leave(v visit) { delete(d.seen, v) }

func (d *dumper) entries(rv reflect.Value, depth int) {
	if depth >= MaxDumpDepth {
		d.raw(depth, depthToken)
		return
	}
	if rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice {
		v, ok := d.enter(rv)
		if !ok {
			d.raw(depth, recursionToken)
			return
		}
		defer d.leave(v)
	}

	switch rv.Kind() {
	case reflect.Map:
		type kv struct {
			key string
			val reflect.Value
		}
		items := make([]kv, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			items = append(items, kv{key: keyString(iter.Key()), val: iter.Value()})
		}
		sort.Slice(items, func(i, j int) bool { return items[i].key < items[j].key })
		for _, it := range items {
			d.value(depth, it.key, it.val)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			d.value(depth, strconv.Itoa(i), rv.Index(i))
		}
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			d.value(depth, t.Field(i).Name, rv.Field(i))
		}
	}
}

func (d *dumper) value(depth int, key string, rv reflect.Value) {
	for rv.Kind() == reflect.Interface && !rv.IsNil() {
		rv = rv.Elem()
	}
	if !rv.IsValid() || isNil(rv) {
		d.line(depth, key, nullToken)
		return
	}
	if text, ok := described(rv); ok {
		d.line(depth, key, text)
		return
	}
	if rv.Kind() == reflect.Pointer {
		v, ok := d.enter(rv)
		if !ok {
			d.line(depth, key, recursionToken)
			return
		}
		defer d.leave(v)
		d.value(depth, key, rv.Elem())
		return
	}
	if isContainer(rv) {
		d.line(depth, key, "("+containerLabel(rv)+")")
		d.entries(rv, depth+1)
		return
	}
	d.line(depth, key, scalar(rv))
}

func (d *dumper) line(depth int, key, text string) {
	d.raw(depth, key+" = "+text)
}

func (d *dumper) raw(depth int, text string) {
	d.b.WriteString(strings.Repeat("  ", depth))
	d.b.WriteString(" - ")
	d.b.WriteString(text)
	d.b.WriteString(d.lineBreak)
}

func isNil(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

func isContainer(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return false
		}
		// Byte slices read better as strings.
		return rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array, reflect.Struct:
		return true
	default:
		return false
	}
}

func containerLabel(rv reflect.Value) string {
	switch rv.Kind() {
	case reflect.Map:
		return "map"
	case reflect.Struct:
		return rv.Type().String()
	default:
		return "list"
	}
}

// described renders errors and Stringers through their own methods. A
// method that panics falls back to the structural dump.
func described(rv reflect.Value) (text string, ok bool) {
	if !rv.CanInterface() {
		return "", false
	}
	defer func() {
		if recover() != nil {
			text, ok = "", false
		}
	}()
	switch x := rv.Interface().(type) {
	case error:
		return "(" + rv.Type().String() + ") " + strconv.Quote(x.Error()), true
	case fmt.Stringer:
		return strconv.Quote(x.String()), true
	}
	return "", false
}

func keyString(rv reflect.Value) string {
	for rv.Kind() == reflect.Interface && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return scalar(rv)
}

// scalar formats a leaf value from its reflect kind alone. Composite
// values never reach fmt.
func scalar(rv reflect.Value) string {
	if !rv.IsValid() || isNil(rv) {
		return nullToken
	}
	switch rv.Kind() {
	case reflect.String:
		return strconv.Quote(rv.String())
	case reflect.Bool:
		if rv.Bool() {
			return "TRUE"
		}
		return "FALSE"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.Complex64:
		return strconv.FormatComplex(rv.Complex(), 'g', -1, 64)
	case reflect.Complex128:
		return strconv.FormatComplex(rv.Complex(), 'g', -1, 128)
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return strconv.Quote(string(rv.Bytes()))
		}
	}
	return "(" + rv.Type().String() + ")"
}
