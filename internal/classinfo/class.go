package classinfo

import (
	"slices"
)

// ClassID identifies a class across the IR and the registry.
type ClassID string

// MemberKind distinguishes how a member is stored.
type MemberKind uint8

const (
	// MemberField is plain storage on the instance.
	MemberField MemberKind = iota
	// MemberAccessor is an accessor pair backed by getter/setter functions.
	MemberAccessor
)

func (k MemberKind) String() string {
	switch k {
	case MemberField:
		return "field"
	case MemberAccessor:
		return "accessor"
	default:
		return "unknown"
	}
}

// Member describes a named member of a class.
type Member struct {
	Name   string     `msgpack:"name"`
	Kind   MemberKind `msgpack:"kind"`
	Getter string     `msgpack:"getter,omitempty"`
	Setter string     `msgpack:"setter,omitempty"`
}

// IsAccessor reports whether the member is an accessor pair.
func (m Member) IsAccessor() bool { return m.Kind == MemberAccessor }

// Class is the structural description of a class supplied by the front-end.
type Class struct {
	ID ClassID
	// Functions lists the function names the class declares.
	Functions []string
	// Call is the invocation capability: the function run when an
	// instance is itself invoked. Empty when instances are not callable.
	Call    string
	Members map[string]Member
}

// NewClass returns an empty class with the given id.
func NewClass(id ClassID) *Class {
	return &Class{ID: id, Members: make(map[string]Member)}
}

// Declares reports whether fn is one of the class functions.
func (c *Class) Declares(fn string) bool {
	if c == nil || fn == "" {
		return false
	}
	return slices.Contains(c.Functions, fn)
}

// Member looks up a member by name.
func (c *Class) Member(name string) (Member, bool) {
	if c == nil {
		return Member{}, false
	}
	m, ok := c.Members[name]
	return m, ok
}

// Accessor returns the member only when it is an accessor pair.
func (c *Class) Accessor(name string) (Member, bool) {
	m, ok := c.Member(name)
	if !ok || !m.IsAccessor() {
		return Member{}, false
	}
	return m, true
}

// Callable reports the invocation capability, if any.
func (c *Class) Callable() (string, bool) {
	if c == nil || c.Call == "" {
		return "", false
	}
	return c.Call, true
}

// MemberNames returns member names in sorted order.
func (c *Class) MemberNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Members))
	for name := range c.Members {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (c *Class) clone() *Class {
	out := &Class{
		ID:        c.ID,
		Functions: slices.Clone(c.Functions),
		Call:      c.Call,
		Members:   make(map[string]Member, len(c.Members)),
	}
	for name, m := range c.Members {
		out.Members[name] = m
	}
	return out
}
