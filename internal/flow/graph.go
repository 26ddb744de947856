package flow

// Graph is the IR of one translation unit: an ordered collection of blocks.
type Graph struct {
	Name   string
	Blocks []*Block
	Entry  BlockID

	nextVar VarID
}

func NewGraph(name string) *Graph {
	return &Graph{Name: name, Entry: 0}
}

// NewBlock appends an empty block with the given inputs.
func (g *Graph) NewBlock(inputs ...VarID) *Block {
	b := &Block{ID: BlockID(len(g.Blocks)), Inputs: inputs}
	for _, v := range inputs {
		g.NoteVar(v)
	}
	g.Blocks = append(g.Blocks, b)
	return b
}

// Block returns the block with the given id, or nil.
func (g *Graph) Block(id BlockID) *Block {
	if id < 0 || int(id) >= len(g.Blocks) {
		return nil
	}
	return g.Blocks[id]
}

// NewVar allocates a variable unused anywhere in the graph.
func (g *Graph) NewVar() VarID {
	v := g.nextVar
	g.nextVar++
	return v
}

// NoteVar records that v is in use so NewVar never returns it.
func (g *Graph) NoteVar(v VarID) {
	if v >= g.nextVar {
		g.nextVar = v + 1
	}
}

// VarMark returns the allocator position; ResetVars rewinds to it.
func (g *Graph) VarMark() VarID { return g.nextVar }

func (g *Graph) ResetVars(mark VarID) { g.nextVar = mark }

// NoteVars scans every block and raises the allocator past all variables seen.
func (g *Graph) NoteVars() {
	for _, b := range g.Blocks {
		for _, v := range b.Inputs {
			g.NoteVar(v)
		}
		for i := range b.Ops {
			op := &b.Ops[i]
			if op.HasResult {
				g.NoteVar(op.Result)
			}
			for _, a := range op.Args {
				if v, ok := a.AsVar(); ok {
					g.NoteVar(v)
				}
			}
		}
	}
}

// Clone deep-copies the graph.
func (g *Graph) Clone() *Graph {
	out := &Graph{Name: g.Name, Entry: g.Entry, nextVar: g.nextVar}
	out.Blocks = make([]*Block, len(g.Blocks))
	for i, b := range g.Blocks {
		out.Blocks[i] = b.clone()
	}
	return out
}

// OpCount returns the number of operations across all blocks.
func (g *Graph) OpCount() int {
	n := 0
	for _, b := range g.Blocks {
		n += len(b.Ops)
	}
	return n
}
