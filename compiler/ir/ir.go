package ir

import (
	"encoding/json"
)

type (
	Program struct {
		Funcs []Func `json:"functions"`
	}

	Func struct {
		Name   string  `json:"name"`
		Args   []Param `json:"args,omitempty"`
		Instrs []Instr `json:"instrs"`
	}

	Param struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}

	// Instr is either a label marker (Label set, everything else empty)
	// or an operation (Op set). Value keeps the constant literal as raw
	// JSON so it round-trips byte for byte.
	Instr struct {
		Op     string          `json:"op,omitempty"`
		Dest   string          `json:"dest,omitempty"`
		Type   string          `json:"type,omitempty"`
		Value  json.RawMessage `json:"value,omitempty"`
		Args   []string        `json:"args,omitempty"`
		Labels []string        `json:"labels,omitempty"`
		Label  string          `json:"label,omitempty"`
	}
)

const (
	Const = "const"
	Jmp   = "jmp"
	Br    = "br"
	Ret   = "ret"
)

func (x Instr) IsLabel() bool {
	return x.Label != ""
}

func (x Instr) IsTerminator() bool {
	return x.Op == Jmp || x.Op == Br || x.Op == Ret
}

func (x Instr) IsBranch() bool {
	return x.Op == Jmp || x.Op == Br
}

func (x Instr) IsConst() bool {
	return x.Op == Const
}
