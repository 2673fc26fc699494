package jsont

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Context is the data-lookup interface a template expands against.
//
// PushName enters a section and returns the value found there (nil if
// undefined). Pop leaves it. Next drives a repeated section: the first call
// starts iterating the list under the cursor and every call reports whether
// there is an element to expand. Lookup resolves a dotted name relative to the
// cursor.
type Context interface {
	PushName(name string) (any, error)
	Pop()
	Next() (bool, error)
	Lookup(name string) (any, bool, error)
}

// Field reads one path segment out of a plain data value: a key of a map or
// a decimal index into a slice.
func Field(v any, key string) (any, bool) {
	switch c := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		val, ok := c[key]
		return val, ok
	case []any:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(c) {
			return nil, false
		}
		return c[i], true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	}
	return nil, false
}

// Len returns the length of a list value. ok is false for non-lists.
func Len(v any) (int, bool) {
	if l, ok := v.([]any); ok {
		return len(l), true
	}
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len(), true
	}
	return 0, false
}

// Truthy reports whether a section over v should expand its body.
// nil, false, zero numbers, empty strings and empty collections are false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	}
	return true
}

// DataContext is a Context over a plain data value such as a decoded JSON
// document.
type DataContext struct {
	frames []*dataFrame
}

type dataFrame struct {
	value     any
	iterating bool
	index     int
	length    int
}

func (f *dataFrame) current() any {
	if f.iterating {
		v, _ := Field(f.value, strconv.Itoa(f.index))
		return v
	}
	return f.value
}

// NewDataContext returns a Context rooted at data.
func NewDataContext(data any) *DataContext {
	return &DataContext{frames: []*dataFrame{{value: data}}}
}

func (c *DataContext) top() *dataFrame {
	return c.frames[len(c.frames)-1]
}

// PushName implements Context.
func (c *DataContext) PushName(name string) (any, error) {
	var v any
	if name == "@" {
		v = c.top().current()
	} else {
		v, _ = Field(c.top().current(), name)
	}
	c.frames = append(c.frames, &dataFrame{value: v})
	return v, nil
}

// Pop implements Context.
func (c *DataContext) Pop() {
	if len(c.frames) > 1 {
		c.frames = c.frames[:len(c.frames)-1]
	}
}

// Next implements Context.
func (c *DataContext) Next() (bool, error) {
	f := c.top()
	if !f.iterating {
		n, ok := Len(f.value)
		if !ok {
			return false, fmt.Errorf("cannot iterate over %T", f.value)
		}
		if n == 0 {
			return false, nil
		}
		f.iterating, f.index, f.length = true, 0, n
		return true, nil
	}

	if f.index >= f.length-1 {
		f.iterating = false
		return false, nil
	}
	f.index++
	return true, nil
}

// Lookup implements Context. Names not found under the cursor are looked up
// in enclosing sections, innermost first.
func (c *DataContext) Lookup(name string) (any, bool, error) {
	if name == "@" {
		return c.top().current(), true, nil
	}

	parts := strings.Split(name, ".")
	for i := len(c.frames) - 1; i >= 0; i-- {
		v := c.frames[i].current()
		found := true
		for _, p := range parts {
			if v, found = Field(v, p); !found {
				break
			}
		}
		if found {
			return v, true, nil
		}
	}
	return nil, false, nil
}
