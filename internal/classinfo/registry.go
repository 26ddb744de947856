package classinfo

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// MemberRef names a member of a class.
type MemberRef struct {
	Class  ClassID
	Member string
}

func (r MemberRef) String() string {
	return string(r.Class) + "." + r.Member
}

// CompareMemberRefs orders refs by class, then member.
func CompareMemberRefs(a, b MemberRef) int {
	if c := strings.Compare(string(a.Class), string(b.Class)); c != 0 {
		return c
	}
	return strings.Compare(a.Member, b.Member)
}

// Registry maps class identities to their metadata.
//
// A Registry has a single writer: the lowering pass removes accessor
// declarations in place and there is no locking. Concurrent lowering of
// independent units needs independent registries.
type Registry struct {
	classes map[ClassID]*Class
	order   []ClassID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[ClassID]*Class)}
}

// Define adds c to the registry. Class and member names must be unique and non-empty.
// Consistency between members and declared functions is not checked here; see Validate.
func (r *Registry) Define(c *Class) error {
	if c == nil {
		return errors.New("nil class")
	}
	if c.ID == "" {
		return errors.New("class with empty name")
	}
	if _, exists := r.classes[c.ID]; exists {
		return fmt.Errorf("class %s defined twice", c.ID)
	}
	if c.Members == nil {
		c.Members = make(map[string]Member)
	}
	for name, m := range c.Members {
		if name == "" || m.Name != name {
			return fmt.Errorf("class %s: member key %q does not match member name %q", c.ID, name, m.Name)
		}
	}
	r.classes[c.ID] = c
	r.order = append(r.order, c.ID)
	return nil
}

// Lookup returns the class registered under id.
func (r *Registry) Lookup(id ClassID) (*Class, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.classes[id]
	return c, ok
}

// Classes returns classes in definition order.
func (r *Registry) Classes() []*Class {
	if r == nil {
		return nil
	}
	out := make([]*Class, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.classes[id])
	}
	return out
}

// Len returns the number of registered classes.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.classes)
}

// RemoveAccessor deletes the accessor declaration of ref.Member from ref.Class.
// Returns false when the class is unknown or the member is not an accessor pair
// (already removed, or a plain field which is never removed).
func (r *Registry) RemoveAccessor(ref MemberRef) bool {
	c, ok := r.Lookup(ref.Class)
	if !ok {
		return false
	}
	if _, ok := c.Accessor(ref.Member); !ok {
		return false
	}
	delete(c.Members, ref.Member)
	return true
}

// Accessors lists every accessor pair still declared, sorted.
func (r *Registry) Accessors() []MemberRef {
	var out []MemberRef
	for _, c := range r.Classes() {
		for _, name := range c.MemberNames() {
			if c.Members[name].IsAccessor() {
				out = append(out, MemberRef{Class: c.ID, Member: name})
			}
		}
	}
	slices.SortFunc(out, CompareMemberRefs)
	return out
}

// Validate checks that every accessor and invocation capability refers to a
// declared function. The lowering pass reports the same problems as contract
// violations when it reaches them; Validate finds them up front.
func (r *Registry) Validate() error {
	var errs []error
	for _, c := range r.Classes() {
		if c.Call != "" && !c.Declares(c.Call) {
			errs = append(errs, fmt.Errorf("class %s: call function %q is not declared", c.ID, c.Call))
		}
		for _, name := range c.MemberNames() {
			m := c.Members[name]
			switch m.Kind {
			case MemberField:
				continue
			case MemberAccessor:
				if m.Getter == "" && m.Setter == "" {
					errs = append(errs, fmt.Errorf("class %s: accessor %s has neither getter nor setter", c.ID, name))
				}
				if m.Getter != "" && !c.Declares(m.Getter) {
					errs = append(errs, fmt.Errorf("class %s: getter %q of %s is not declared", c.ID, m.Getter, name))
				}
				if m.Setter != "" && !c.Declares(m.Setter) {
					errs = append(errs, fmt.Errorf("class %s: setter %q of %s is not declared", c.ID, m.Setter, name))
				}
			default:
				errs = append(errs, fmt.Errorf("class %s: member %s has unknown kind %d", c.ID, name, m.Kind))
			}
		}
	}
	return errors.Join(errs...)
}
