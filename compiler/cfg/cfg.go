package cfg

import (
	"github.com/briltools/brilopt/compiler/ir"
	"tlog.app/go/errors"
)

type (
	// Block is a maximal straight-line run of instructions. Only the
	// first instruction may be a label marker and only the last may be
	// a terminator.
	Block struct {
		Code []ir.Instr
		Next []int
	}

	Graph struct {
		Blocks []Block
	}
)

// Build partitions the function body into basic blocks and computes
// successor edges. Blocks keep the order they first appear in;
// they are never merged, split or reordered.
func Build(f *ir.Func) (g *Graph, err error) {
	g = &Graph{}

	var cur Block

	flush := func() {
		if len(cur.Code) == 0 {
			return
		}

		g.Blocks = append(g.Blocks, cur)
		cur = Block{}
	}

	for _, x := range f.Instrs {
		// Label always starts a new block.
		if x.IsLabel() {
			flush()
		}

		cur.Code = append(cur.Code, x)

		// Terminator always ends the block.
		if x.IsTerminator() {
			flush()
		}
	}

	flush()

	label := map[string]int{}

	for i, b := range g.Blocks {
		if l := b.Code[0].Label; l != "" {
			label[l] = i
		}
	}

	for i := range g.Blocks {
		b := &g.Blocks[i]
		last := b.Code[len(b.Code)-1]

		switch {
		case last.IsBranch():
			for _, l := range last.Labels {
				j, ok := label[l]
				if !ok {
					return nil, errors.New("undefined label: %v", l)
				}

				b.Next = append(b.Next, j)
			}
		case last.Op == ir.Ret:
		case i+1 < len(g.Blocks):
			// Fallthrough.
			b.Next = append(b.Next, i+1)
		}
	}

	return g, nil
}

// Flatten concatenates the blocks back into a single instruction
// sequence replacing the function body.
func (g *Graph) Flatten() []ir.Instr {
	total := 0
	for _, b := range g.Blocks {
		total += len(b.Code)
	}

	r := make([]ir.Instr, 0, total)

	for _, b := range g.Blocks {
		r = append(r, b.Code...)
	}

	return r
}
