package ir

import (
	"fmt"
	"iter"
	"math"
	"strings"
)

// ValueKind identifies which variant a Value holds.
type ValueKind int

const (
	// KindInvalid is the zero Value; every accessor reports false for it.
	KindInvalid ValueKind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Value is a property value: a string, integer, float, boolean, list of
// values or nested property map.
type Value struct {
	kind ValueKind
	s    string
	i    int64
	f    float64
	b    bool
	list []Value
	m    *Properties
}

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int returns an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List returns a list Value. The items are copied.
func List(items ...Value) Value {
	return Value{kind: KindList, list: append([]Value(nil), items...)}
}

// Map returns a nested property map Value. The map is copied.
func Map(p Properties) Value {
	cloned := p.Clone()
	return Value{kind: KindMap, m: &cloned}
}

// unsigned keeps values that fit an int64 as Int and stores larger ones as
// Float rather than wrapping them negative.
func unsigned(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}
	return Int(int64(u))
}

// ValueOf converts a Go value into a Value. Strings, booleans, all integer
// and float types, Value, []Value, []string and Properties are mapped to the
// matching variant (unsigned integers above math.MaxInt64 become Float); anything else is stored as its fmt.Sprint form.
func ValueOf(v any) Value {
	switch typed := v.(type) {
	case Value:
		return typed
	case string:
		return String(typed)
	case bool:
		return Bool(typed)
	case int:
		return Int(int64(typed))
	case int8:
		return Int(int64(typed))
	case int16:
		return Int(int64(typed))
	case int32:
		return Int(int64(typed))
	case int64:
		return Int(typed)
	case uint:
		return unsigned(uint64(typed))
	case uint64:
		return unsigned(typed)
	case uint8:
		return Int(int64(typed))
	case uint16:
		return Int(int64(typed))
	case uint32:
		return Int(int64(typed))
	case float32:
		return Float(float64(typed))
	case float64:
		return Float(typed)
	case []Value:
		return List(typed...)
	case []string:
		items := make([]Value, 0, len(typed))
		for _, item := range typed {
			items = append(items, String(item))
		}
		return Value{kind: KindList, list: items}
	case Properties:
		return Map(typed)
	case fmt.Stringer:
		return String(typed.String())
	default:
		return String(fmt.Sprint(v))
	}
}

// Kind reports the variant held by v.
func (v Value) Kind() ValueKind { return v.kind }

// IsValid reports whether v holds any variant.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsInt returns the integer held by v.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// AsFloat returns the float held by v.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsList returns a copy of the items held by v.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]Value(nil), v.list...), true
}

// AsMap returns a copy of the nested properties held by v.
func (v Value) AsMap() (Properties, bool) {
	if v.kind != KindMap || v.m == nil {
		return Properties{}, false
	}
	return v.m.Clone(), true
}

// Equal reports whether two values hold the same variant and content.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == other.s
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindBool:
		return v.b == other.b
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		var left, right Properties
		if v.m != nil {
			left = *v.m
		}
		if other.m != nil {
			right = *other.m
		}
		return left.Equal(right)
	default:
		return true
	}
}

// String renders v for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return fmt.Sprint(v.i)
	case KindFloat:
		return fmt.Sprint(v.f)
	case KindBool:
		return fmt.Sprint(v.b)
	case KindList:
		parts := make([]string, 0, len(v.list))
		for _, item := range v.list {
			parts = append(parts, item.String())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		if v.m == nil {
			return "{}"
		}
		parts := make([]string, 0, v.m.Len())
		for key, item := range v.m.All() {
			parts = append(parts, key+": "+item.String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return ""
	}
}

func (v Value) clone() Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.clone()
		}
		v.list = items
	case KindMap:
		if v.m != nil {
			cloned := v.m.Clone()
			v.m = &cloned
		}
	}
	return v
}

// Property is a single key/value entry.
type Property struct {
	Key   string
	Value Value
}

// Properties is an insertion-ordered attribute bag. Keys are free-form;
// namespaced keys such as "html:class" are a convention only.
//
// The zero value is an empty bag ready to use.
type Properties struct {
	entries []Property
}

// NewProperties builds a bag from alternating key/value pairs. A trailing key
// without a value is ignored.
func NewProperties(pairs ...any) Properties {
	var p Properties
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			key = fmt.Sprint(pairs[i])
		}
		p.Set(key, ValueOf(pairs[i+1]))
	}
	return p
}

func (p Properties) index(key string) int {
	for i := range p.entries {
		if p.entries[i].Key == key {
			return i
		}
	}
	return -1
}

// Set stores value under key. Replacing an existing key keeps its position.
func (p *Properties) Set(key string, value Value) {
	if i := p.index(key); i >= 0 {
		p.entries[i].Value = value
		return
	}
	p.entries = append(p.entries, Property{Key: key, Value: value})
}

// With returns a copy of p with key set to value. p itself is not modified.
func (p Properties) With(key string, value Value) Properties {
	out := Properties{entries: make([]Property, len(p.entries), len(p.entries)+1)}
	copy(out.entries, p.entries)
	out.Set(key, value)
	return out
}

// Delete removes key and reports whether it was present.
func (p *Properties) Delete(key string) bool {
	i := p.index(key)
	if i < 0 {
		return false
	}
	p.entries = append(p.entries[:i:i], p.entries[i+1:]...)
	return true
}

// Get returns the value stored under key.
func (p Properties) Get(key string) (Value, bool) {
	if i := p.index(key); i >= 0 {
		return p.entries[i].Value, true
	}
	return Value{}, false
}

// GetString returns the string stored under key. A missing key or a value of
// another type reports false.
func (p Properties) GetString(key string) (string, bool) {
	v, _ := p.Get(key)
	return v.AsString()
}

// GetInt returns the integer stored under key.
func (p Properties) GetInt(key string) (int64, bool) {
	v, _ := p.Get(key)
	return v.AsInt()
}

// GetFloat returns the float stored under key.
func (p Properties) GetFloat(key string) (float64, bool) {
	v, _ := p.Get(key)
	return v.AsFloat()
}

// GetBool returns the boolean stored under key.
func (p Properties) GetBool(key string) (bool, bool) {
	v, _ := p.Get(key)
	return v.AsBool()
}

// StringOr returns the string stored under key, or fallback.
func (p Properties) StringOr(key, fallback string) string {
	if s, ok := p.GetString(key); ok {
		return s
	}
	return fallback
}

// Has reports whether key is present, whatever its type.
func (p Properties) Has(key string) bool {
	return p.index(key) >= 0
}

// Len returns the number of entries.
func (p Properties) Len() int {
	return len(p.entries)
}

// IsEmpty reports whether the bag has no entries.
func (p Properties) IsEmpty() bool {
	return len(p.entries) == 0
}

// Keys returns the keys in insertion order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p.entries))
	for _, entry := range p.entries {
		keys = append(keys, entry.Key)
	}
	return keys
}

// All iterates over the entries in insertion order.
func (p Properties) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, entry := range p.entries {
			if !yield(entry.Key, entry.Value) {
				return
			}
		}
	}
}

// Namespace returns the entries whose key starts with prefix, in order.
func (p Properties) Namespace(prefix string) Properties {
	var out Properties
	for _, entry := range p.entries {
		if strings.HasPrefix(entry.Key, prefix) {
			out.entries = append(out.entries, Property{Key: entry.Key, Value: entry.Value.clone()})
		}
	}
	return out
}

// Clone returns a deep copy of p.
func (p Properties) Clone() Properties {
	if len(p.entries) == 0 {
		return Properties{}
	}
	out := Properties{entries: make([]Property, len(p.entries))}
	for i, entry := range p.entries {
		out.entries[i] = Property{Key: entry.Key, Value: entry.Value.clone()}
	}
	return out
}

// Equal reports whether both bags hold the same entries in the same order.
func (p Properties) Equal(other Properties) bool {
	if len(p.entries) != len(other.entries) {
		return false
	}
	for i := range p.entries {
		if p.entries[i].Key != other.entries[i].Key || !p.entries[i].Value.Equal(other.entries[i].Value) {
			return false
		}
	}
	return true
}
