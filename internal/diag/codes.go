package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// IR model
	IRInfo            Code = 1000
	IRUndefinedVar    Code = 1001
	IRDuplicateDef    Code = 1002
	IRBadOperands     Code = 1003
	IRBadExitTarget   Code = 1004
	IRBadExitArity    Code = 1005
	IRSyntax          Code = 1006
	IRUnknownClassRef Code = 1007

	// class metadata
	MetaInfo              Code = 2000
	MetaDuplicateClass    Code = 2001
	MetaDuplicateMember   Code = 2002
	MetaUndeclaredFunc    Code = 2003
	MetaBadMemberKind     Code = 2004
	MetaEmptyAccessorPair Code = 2005

	// lowering
	LowerInfo              Code = 3000
	LowerUnresolvedClass   Code = 3001
	LowerContractViolation Code = 3002
	LowerMalformedIR       Code = 3003
	LowerRemovedAccessor   Code = 3004

	// project / io
	ProjInfo         Code = 4000
	ProjLoadError    Code = 4001
	ProjBadManifest  Code = 4002
	ProjBackupFailed Code = 4003

	// observability
	ObsInfo    Code = 5000
	ObsTimings Code = 5001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:            "Unknown error",
		IRInfo:                 "IR information",
		IRUndefinedVar:         "Variable used before definition",
		IRDuplicateDef:         "Variable defined twice",
		IRBadOperands:          "Wrong operands for operation",
		IRBadExitTarget:        "Exit link targets a missing block",
		IRBadExitArity:         "Exit link arity does not match target inputs",
		IRSyntax:               "Malformed operation text",
		IRUnknownClassRef:      "Instantiation of an unregistered class",
		MetaInfo:               "Class metadata information",
		MetaDuplicateClass:     "Duplicate class definition",
		MetaDuplicateMember:    "Duplicate member definition",
		MetaUndeclaredFunc:     "Member refers to an undeclared function",
		MetaBadMemberKind:      "Unknown member kind",
		MetaEmptyAccessorPair:  "Accessor pair without getter and setter",
		LowerInfo:              "Lowering information",
		LowerUnresolvedClass:   "Instance class not resolvable in block",
		LowerContractViolation: "Class metadata contradicts lowering",
		LowerMalformedIR:       "Malformed IR",
		LowerRemovedAccessor:   "Accessor declaration removed",
		ProjInfo:               "Project information",
		ProjLoadError:          "Failed to load unit",
		ProjBadManifest:        "Invalid manifest",
		ProjBackupFailed:       "Registry backup failed",
		ObsInfo:                "Observability information",
		ObsTimings:             "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("IR%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("META%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("LOW%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
