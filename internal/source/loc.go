package source

import (
	"fmt"

	"fortio.org/safecast"
)

// NoIndex marks a Loc component that does not apply (e.g. a unit-level finding).
const NoIndex int32 = -1

// Loc points at an operation inside a translation unit.
type Loc struct {
	Unit  string
	Block int32 // block ID, NoIndex for unit-level locations
	Op    int32 // operation index in the block, NoIndex for block-level locations
}

// UnitLoc returns a location covering a whole unit.
func UnitLoc(unit string) Loc {
	return Loc{Unit: unit, Block: NoIndex, Op: NoIndex}
}

// BlockLoc returns a location covering a whole block.
func BlockLoc(unit string, block int32) Loc {
	return Loc{Unit: unit, Block: block, Op: NoIndex}
}

// OpLoc returns the location of operation idx in block.
// Indices that do not fit into int32 collapse to NoIndex.
func OpLoc(unit string, block int32, idx int) Loc {
	op, err := safecast.Conv[int32](idx)
	if err != nil {
		op = NoIndex
	}
	return Loc{Unit: unit, Block: block, Op: op}
}

func (l Loc) HasBlock() bool { return l.Block != NoIndex }

func (l Loc) HasOp() bool { return l.Block != NoIndex && l.Op != NoIndex }

// String renders unit:bbN:opM, dropping the parts that do not apply.
func (l Loc) String() string {
	unit := l.Unit
	if unit == "" {
		unit = "<unit>"
	}
	switch {
	case l.HasOp():
		return fmt.Sprintf("%s:bb%d:%d", unit, l.Block, l.Op)
	case l.HasBlock():
		return fmt.Sprintf("%s:bb%d", unit, l.Block)
	default:
		return unit
	}
}

// Compare orders locations by unit, block, then op. Unit-level locations sort first.
func (l Loc) Compare(other Loc) int {
	if l.Unit != other.Unit {
		if l.Unit < other.Unit {
			return -1
		}
		return 1
	}
	if l.Block != other.Block {
		if l.Block < other.Block {
			return -1
		}
		return 1
	}
	if l.Op != other.Op {
		if l.Op < other.Op {
			return -1
		}
		return 1
	}
	return 0
}
