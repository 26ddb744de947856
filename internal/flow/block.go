package flow

import "slices"

// Link is an exit edge carrying values into the target's inputs.
type Link struct {
	Target BlockID
	Args   []Value
}

// Block is an ordered sequence of operations over its inputs.
//
// Exits are only followed by the interpreter: with HasSwitch the switch
// value selects Exits[0] when false and Exits[1] when true, otherwise a
// single exit is taken unconditionally. A block without exits ends the run.
type Block struct {
	ID     BlockID
	Inputs []VarID
	Ops    []Op

	HasSwitch bool
	Switch    Value
	Exits     []Link
}

// IsInput reports whether v is bound as a block input.
func (b *Block) IsInput(v VarID) bool {
	return slices.Contains(b.Inputs, v)
}

// DefIndex returns the index of the op assigning v, or -1.
func (b *Block) DefIndex(v VarID) int {
	for i := range b.Ops {
		if b.Ops[i].Defines(v) {
			return i
		}
	}
	return -1
}

// Append adds op at the end of the block.
func (b *Block) Append(op Op) {
	b.Ops = append(b.Ops, op)
}

// InsertBefore inserts op at index idx, shifting later ops.
func (b *Block) InsertBefore(idx int, op Op) {
	b.Ops = slices.Insert(b.Ops, idx, op)
}

// Goto sets a single unconditional exit.
func (b *Block) Goto(target BlockID, args ...Value) {
	b.HasSwitch = false
	b.Switch = Value{}
	b.Exits = []Link{{Target: target, Args: args}}
}

// Branch sets a two-way exit on cond.
func (b *Block) Branch(cond Value, ifFalse, ifTrue Link) {
	b.HasSwitch = true
	b.Switch = cond
	b.Exits = []Link{ifFalse, ifTrue}
}

func (b *Block) clone() *Block {
	out := &Block{
		ID:        b.ID,
		Inputs:    slices.Clone(b.Inputs),
		Ops:       make([]Op, len(b.Ops)),
		HasSwitch: b.HasSwitch,
		Switch:    b.Switch,
		Exits:     make([]Link, len(b.Exits)),
	}
	for i := range b.Ops {
		out.Ops[i] = b.Ops[i].Clone()
	}
	for i, l := range b.Exits {
		out.Exits[i] = Link{Target: l.Target, Args: slices.Clone(l.Args)}
	}
	return out
}
