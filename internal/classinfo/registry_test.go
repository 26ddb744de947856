package classinfo

import (
	"bytes"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func sampleRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	a := NewClass("A")
	a.Functions = []string{"get_x", "set_x", "call_impl"}
	a.Call = "call_impl"
	a.Members["x"] = Member{Name: "x", Kind: MemberAccessor, Getter: "get_x", Setter: "set_x"}
	a.Members["y"] = Member{Name: "y", Kind: MemberField}
	if err := reg.Define(a); err != nil {
		t.Fatalf("define A: %v", err)
	}
	b := NewClass("B")
	b.Functions = []string{"get_x"}
	b.Members["x"] = Member{Name: "x", Kind: MemberAccessor, Getter: "get_x"}
	if err := reg.Define(b); err != nil {
		t.Fatalf("define B: %v", err)
	}
	return reg
}

func TestRegistry_DefineRejectsDuplicates(t *testing.T) {
	reg := sampleRegistry(t)
	if err := reg.Define(NewClass("A")); err == nil {
		t.Fatal("expected duplicate class error")
	}
	if err := reg.Define(NewClass("")); err == nil {
		t.Fatal("expected empty name error")
	}
	bad := NewClass("C")
	bad.Members["x"] = Member{Name: "y"}
	if err := reg.Define(bad); err == nil {
		t.Fatal("expected mismatched member key error")
	}
}

func TestRegistry_RemoveAccessor(t *testing.T) {
	reg := sampleRegistry(t)

	if !reg.RemoveAccessor(MemberRef{Class: "A", Member: "x"}) {
		t.Fatal("expected A.x to be removed")
	}
	if reg.RemoveAccessor(MemberRef{Class: "A", Member: "x"}) {
		t.Fatal("second removal must report false")
	}
	if reg.RemoveAccessor(MemberRef{Class: "A", Member: "y"}) {
		t.Fatal("plain fields are never removed")
	}
	if reg.RemoveAccessor(MemberRef{Class: "Z", Member: "x"}) {
		t.Fatal("unknown class must report false")
	}

	a, _ := reg.Lookup("A")
	if _, ok := a.Member("x"); ok {
		t.Fatal("A.x still declared")
	}
	if _, ok := a.Member("y"); !ok {
		t.Fatal("A.y must survive")
	}
	b, _ := reg.Lookup("B")
	if _, ok := b.Accessor("x"); !ok {
		t.Fatal("B.x must survive removal of A.x")
	}
}

func TestRegistry_Accessors(t *testing.T) {
	reg := sampleRegistry(t)
	got := reg.Accessors()
	if len(got) != 2 || got[0].String() != "A.x" || got[1].String() != "B.x" {
		t.Fatalf("unexpected accessors: %v", got)
	}
}

func TestRegistry_Validate(t *testing.T) {
	reg := sampleRegistry(t)
	if err := reg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	bad := NewClass("Bad")
	bad.Call = "missing_call"
	bad.Members["p"] = Member{Name: "p", Kind: MemberAccessor}
	bad.Members["q"] = Member{Name: "q", Kind: MemberAccessor, Getter: "nope"}
	if err := reg.Define(bad); err != nil {
		t.Fatalf("define: %v", err)
	}
	err := reg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"missing_call", "neither getter nor setter", `getter "nope"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestRegistry_SnapshotRoundTrip(t *testing.T) {
	reg := sampleRegistry(t)

	data, err := reg.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	restored, err := Restore(data)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	again, err := restored.Snapshot()
	if err != nil {
		t.Fatalf("snapshot restored: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Fatal("snapshot of restored registry differs")
	}

	a, ok := restored.Lookup("A")
	if !ok {
		t.Fatal("class A missing after restore")
	}
	if call, ok := a.Callable(); !ok || call != "call_impl" {
		t.Fatalf("unexpected call capability %q", call)
	}
	if m, ok := a.Accessor("x"); !ok || m.Getter != "get_x" || m.Setter != "set_x" {
		t.Fatalf("unexpected accessor %+v", m)
	}
	if names := restored.Classes(); len(names) != 2 || names[0].ID != "A" || names[1].ID != "B" {
		t.Fatal("definition order not preserved")
	}
}

func TestRestore_Garbage(t *testing.T) {
	if _, err := Restore([]byte{0xc1}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRegistry_CloneIsIndependent(t *testing.T) {
	reg := sampleRegistry(t)
	clone := reg.Clone()

	reg.RemoveAccessor(MemberRef{Class: "A", Member: "x"})

	a, _ := clone.Lookup("A")
	if _, ok := a.Accessor("x"); !ok {
		t.Fatal("removal leaked into clone")
	}
	if clone.Len() != reg.Len() {
		t.Fatalf("clone has %d classes, want %d", clone.Len(), reg.Len())
	}
}

func TestRegistry_SnapshotIsDeterministic(t *testing.T) {
	reg := NewRegistry()
	c := NewClass("Wide")
	for _, name := range []string{"f", "e", "d", "c", "b", "a"} {
		c.Members[name] = Member{Name: name, Kind: MemberField}
	}
	c.Functions = []string{"get_g"}
	c.Members["g"] = Member{Name: "g", Kind: MemberAccessor, Getter: "get_g"}
	if err := reg.Define(c); err != nil {
		t.Fatalf("define: %v", err)
	}

	first, err := reg.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	for i := range 50 {
		again, err := reg.Clone().Snapshot()
		if err != nil {
			t.Fatalf("snapshot %d: %v", i, err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("snapshot %d differs from the first", i)
		}
	}
}

func TestRestore_DuplicateMember(t *testing.T) {
	var buf bytes.Buffer
	err := msgpack.NewEncoder(&buf).Encode(&snapshotPayload{
		Schema: snapshotSchemaVersion,
		Classes: []classRecord{{
			ID:      "A",
			Members: []Member{{Name: "x"}, {Name: "x"}},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Restore(buf.Bytes()); err == nil || !strings.Contains(err.Error(), "duplicate member") {
		t.Fatalf("expected duplicate member error, got %v", err)
	}
}
