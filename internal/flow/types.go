package flow

type VarID int32
type BlockID int32

const (
	NoVarID   VarID   = -1
	NoBlockID BlockID = -1
)
