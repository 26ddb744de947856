package classinfo

import (
	"bytes"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when snapshotPayload changes.
const snapshotSchemaVersion uint16 = 2

// snapshotPayload is the msgpack form of a registry.
type snapshotPayload struct {
	Schema  uint16        `msgpack:"schema"`
	Classes []classRecord `msgpack:"classes"`
}

// classRecord is the msgpack form of a Class. Members are sorted by name.
type classRecord struct {
	ID        ClassID  `msgpack:"id"`
	Functions []string `msgpack:"functions"`
	Call      string   `msgpack:"call,omitempty"`
	Members   []Member `msgpack:"members"`
}

func recordOf(c *Class) classRecord {
	rec := classRecord{
		ID:        c.ID,
		Functions: c.Functions,
		Call:      c.Call,
		Members:   make([]Member, 0, len(c.Members)),
	}
	for _, name := range c.MemberNames() {
		rec.Members = append(rec.Members, c.Members[name])
	}
	return rec
}

func (rec classRecord) class() (*Class, error) {
	c := NewClass(rec.ID)
	c.Functions = rec.Functions
	c.Call = rec.Call
	for _, m := range rec.Members {
		if _, dup := c.Members[m.Name]; dup {
			return nil, fmt.Errorf("class %s: duplicate member %q", rec.ID, m.Name)
		}
		c.Members[m.Name] = m
	}
	return c, nil
}

// WriteSnapshot encodes the registry to w. Equal registries produce
// identical bytes.
func (r *Registry) WriteSnapshot(w io.Writer) error {
	classes := r.Classes()
	payload := snapshotPayload{
		Schema:  snapshotSchemaVersion,
		Classes: make([]classRecord, len(classes)),
	}
	for i, c := range classes {
		payload.Classes[i] = recordOf(c)
	}
	return msgpack.NewEncoder(w).Encode(&payload)
}

// Snapshot returns the encoded registry.
func (r *Registry) Snapshot() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.WriteSnapshot(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadSnapshot decodes a registry written by WriteSnapshot.
func ReadSnapshot(rd io.Reader) (*Registry, error) {
	var payload snapshotPayload
	if err := msgpack.NewDecoder(rd).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode registry snapshot: %w", err)
	}
	if payload.Schema != snapshotSchemaVersion {
		return nil, fmt.Errorf("registry snapshot schema %d, want %d", payload.Schema, snapshotSchemaVersion)
	}
	reg := NewRegistry()
	for _, rec := range payload.Classes {
		c, err := rec.class()
		if err != nil {
			return nil, fmt.Errorf("registry snapshot: %w", err)
		}
		if err := reg.Define(c); err != nil {
			return nil, fmt.Errorf("registry snapshot: %w", err)
		}
	}
	return reg, nil
}

// Restore decodes a registry from Snapshot bytes.
func Restore(data []byte) (*Registry, error) {
	return ReadSnapshot(bytes.NewReader(data))
}

// Clone returns a deep copy of the registry. The lowering pass removes
// accessors in place, so callers that still need the original metadata
// clone before lowering.
func (r *Registry) Clone() *Registry {
	out := NewRegistry()
	for _, c := range r.Classes() {
		cc := c.clone()
		out.classes[cc.ID] = cc
		out.order = append(out.order, cc.ID)
	}
	return out
}
