package ezo

import "fmt"

// CodeEntry binds a domain value to its single character wire code and
// optional display metadata.
type CodeEntry[T comparable] struct {
	Value  T
	Code   byte
	Name   string
	Symbol string
}

// CodeTable is a static bidirectional mapping between domain values and
// single character wire codes. Reverse lookups are case-insensitive.
//
// Tables are built once at package initialization and are read-only
// afterwards, so they are safe for concurrent use.
type CodeTable[T comparable] struct {
	entries []CodeEntry[T]
	byValue map[T]int
	byCode  map[byte]int
}

// NewCodeTable builds a table from entries. It panics on duplicate values or
// on codes that collide case-insensitively, since a table is program data.
func NewCodeTable[T comparable](entries ...CodeEntry[T]) *CodeTable[T] {
	t := &CodeTable[T]{
		entries: make([]CodeEntry[T], len(entries)),
		byValue: make(map[T]int, len(entries)),
		byCode:  make(map[byte]int, len(entries)),
	}
	copy(t.entries, entries)

	for i, e := range t.entries {
		if _, dup := t.byValue[e.Value]; dup {
			panic(fmt.Sprintf("ezo: duplicate code table value %v", e.Value))
		}
		key := foldCode(e.Code)
		if _, dup := t.byCode[key]; dup {
			panic(fmt.Sprintf("ezo: duplicate code table code %q", e.Code))
		}
		t.byValue[e.Value] = i
		t.byCode[key] = i
	}

	return t
}

// CodeOf returns the wire code of v.
func (t *CodeTable[T]) CodeOf(v T) (byte, bool) {
	i, ok := t.byValue[v]
	if !ok {
		return 0, false
	}

	return t.entries[i].Code, true
}

// ValueOf returns the value whose code matches c, ignoring case.
func (t *CodeTable[T]) ValueOf(c byte) (T, bool) {
	i, ok := t.byCode[foldCode(c)]
	if !ok {
		var zero T
		return zero, false
	}

	return t.entries[i].Value, true
}

// Parse looks up a single character field as reported by a device.
func (t *CodeTable[T]) Parse(field string) (T, bool) {
	if len(field) != 1 {
		var zero T
		return zero, false
	}

	return t.ValueOf(field[0])
}

// NameOf returns the display name of v.
func (t *CodeTable[T]) NameOf(v T) (string, bool) {
	i, ok := t.byValue[v]
	if !ok {
		return "", false
	}

	return t.entries[i].Name, true
}

// SymbolOf returns the unit symbol of v.
func (t *CodeTable[T]) SymbolOf(v T) (string, bool) {
	i, ok := t.byValue[v]
	if !ok {
		return "", false
	}

	return t.entries[i].Symbol, true
}

// Values returns all values in table order.
func (t *CodeTable[T]) Values() []T {
	values := make([]T, len(t.entries))
	for i, e := range t.entries {
		values[i] = e.Value
	}

	return values
}

func foldCode(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}

	return c
}

// RestartReason is the reason for the last restart reported by "Status".
type RestartReason int

const (
	RestartUnknown RestartReason = iota
	RestartPoweredOff
	RestartSoftwareReset
	RestartBrownOut
	RestartWatchdog
)

// RestartReasons maps restart reasons to their wire codes.
var RestartReasons = NewCodeTable(
	CodeEntry[RestartReason]{Value: RestartUnknown, Code: 'U', Name: "unknown"},
	CodeEntry[RestartReason]{Value: RestartPoweredOff, Code: 'P', Name: "powered off"},
	CodeEntry[RestartReason]{Value: RestartSoftwareReset, Code: 'S', Name: "software reset"},
	CodeEntry[RestartReason]{Value: RestartBrownOut, Code: 'B', Name: "brown out"},
	CodeEntry[RestartReason]{Value: RestartWatchdog, Code: 'W', Name: "watchdog"},
)

// ParseRestartReason maps a device reported code to a RestartReason.
// Unrecognized codes map to RestartUnknown.
func ParseRestartReason(field string) RestartReason {
	if r, ok := RestartReasons.Parse(field); ok {
		return r
	}

	return RestartUnknown
}

// Code returns the wire code of r.
func (r RestartReason) Code() byte {
	c, _ := RestartReasons.CodeOf(r)
	return c
}

func (r RestartReason) String() string {
	if name, ok := RestartReasons.NameOf(r); ok {
		return name
	}

	return fmt.Sprintf("RestartReason(%d)", int(r))
}
