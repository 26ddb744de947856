package source

import (
	"math"
	"testing"
)

func TestLoc_String(t *testing.T) {
	tests := []struct {
		name     string
		loc      Loc
		expected string
	}{
		{name: "unit", loc: UnitLoc("a.flow.toml"), expected: "a.flow.toml"},
		{name: "block", loc: BlockLoc("a.flow.toml", 2), expected: "a.flow.toml:bb2"},
		{name: "op", loc: OpLoc("a.flow.toml", 2, 7), expected: "a.flow.toml:bb2:7"},
		{name: "empty unit", loc: OpLoc("", 0, 0), expected: "<unit>:bb0:0"},
		{name: "op without block", loc: Loc{Unit: "u", Block: NoIndex, Op: 3}, expected: "u"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestOpLoc_Overflow(t *testing.T) {
	loc := OpLoc("u", 0, math.MaxInt32+1)
	if loc.Op != NoIndex {
		t.Fatalf("expected NoIndex for overflowing op index, got %d", loc.Op)
	}
}

func TestLoc_Compare(t *testing.T) {
	a := OpLoc("a", 0, 1)
	b := OpLoc("a", 0, 2)
	c := OpLoc("a", 1, 0)
	d := OpLoc("b", 0, 0)

	if a.Compare(b) >= 0 || b.Compare(c) >= 0 || c.Compare(d) >= 0 {
		t.Fatal("expected a < b < c < d")
	}
	if UnitLoc("a").Compare(a) >= 0 {
		t.Fatal("unit-level location must sort before its ops")
	}
	if a.Compare(a) != 0 {
		t.Fatal("location must compare equal to itself")
	}
}
