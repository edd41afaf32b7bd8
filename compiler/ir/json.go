package ir

import (
	"bytes"
	"encoding/json"
	"io"

	"tlog.app/go/errors"
)

// Decode parses a whole program. The schema is strict: unknown fields
// anywhere in the document are rejected.
func Decode(data []byte) (p *Program, err error) {
	d := json.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()

	p = &Program{}

	err = d.Decode(p)
	if err != nil {
		return nil, errors.Wrap(err, "parse program")
	}

	err = d.Decode(&json.RawMessage{})
	if err != io.EOF {
		return nil, errors.New("trailing data after program")
	}

	err = p.validate()
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Encode serializes the program as a single JSON line.
// Empty optional fields are omitted.
func Encode(p *Program) (data []byte, err error) {
	data, err = json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "serialize program")
	}

	return data, nil
}

func (p *Program) validate() error {
	for i := range p.Funcs {
		f := &p.Funcs[i]

		if f.Name == "" {
			return errors.New("function #%d: missing name", i)
		}

		if f.Instrs == nil {
			return errors.New("func %v: missing instrs", f.Name)
		}

		for j, x := range f.Instrs {
			err := x.validate()
			if err != nil {
				return errors.Wrap(err, "func %v: instr #%d", f.Name, j)
			}
		}
	}

	return nil
}

func (x Instr) validate() error {
	switch {
	case x.IsLabel():
		if x.Op != "" || x.Dest != "" || x.Type != "" || x.Value != nil || len(x.Args) != 0 || len(x.Labels) != 0 {
			return errors.New("label marker carries operation fields")
		}
	case x.Op == "":
		return errors.New("instruction with neither op nor label")
	case x.IsConst():
		if x.Value == nil {
			return errors.New("const lacks a literal value")
		}

		if len(x.Args) != 0 {
			return errors.New("const with argument references")
		}
	case x.IsBranch():
		if len(x.Labels) == 0 {
			return errors.New("%v without target labels", x.Op)
		}

		if x.Dest != "" {
			return errors.New("%v with a destination", x.Op)
		}
	}

	return nil
}
