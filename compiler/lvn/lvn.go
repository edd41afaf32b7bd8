package lvn

import (
	"context"
	"strconv"

	"github.com/briltools/brilopt/compiler/cfg"
	"github.com/briltools/brilopt/compiler/ir"
	"github.com/briltools/brilopt/compiler/set"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	num = int

	kind int

	// expr is a canonical value expression. Structurally equal
	// expressions share one value number.
	expr struct {
		Kind kind
		Op   string // opcode; declared type for consts; var name for opaque
		Key  string // const literal text or encoded argument numbers
	}

	// state is the numbering state of a single block. It is created
	// fresh per block and dropped afterwards, numbering never crosses
	// block boundaries.
	state struct {
		var2num map[string]num
		val2num map[expr]num

		exprs [][]num // value number -> argument numbers
		cname []string

		lastw map[string]int // var -> index of its last write

		used set.Bitmap
	}

	// slot is the pass 1 record for one instruction: the number
	// assigned to its destination (-1 if none) and the resolved
	// numbers of its arguments.
	slot struct {
		n    num
		args []num
	}
)

const (
	kindConst kind = iota
	kindOp
	kindOpaque
)

// Run optimizes every block of the graph in place. Blocks are
// independent, no state is shared between them.
func Run(ctx context.Context, g *cfg.Graph) error {
	tr := tlog.SpanFromContext(ctx)

	for i := range g.Blocks {
		b := &g.Blocks[i]
		before := len(b.Code)

		err := block(b)
		if err != nil {
			return errors.Wrap(err, "block %d", i)
		}

		if tr.If("dump_lvn") {
			tr.Printw("block optimized", "block", i, "before", before, "after", len(b.Code))
		}
	}

	return nil
}

func block(b *cfg.Block) error {
	s := &state{
		var2num: map[string]num{},
		val2num: map[expr]num{},
		lastw:   map[string]int{},
	}

	// Pass 1: number every definition, mark effect arguments used.
	slots := make([]slot, len(b.Code))

	for i, x := range b.Code {
		sl, err := s.number(x)
		if err != nil {
			return errors.Wrap(err, "instr #%d", i)
		}

		slots[i] = sl

		if x.Dest != "" {
			s.lastw[x.Dest] = i
		}
	}

	// A successor may read any variable this block wrote last,
	// those values are live-out and must survive.
	liveOut := len(b.Next) != 0

	if liveOut {
		for _, n := range s.var2num {
			s.used.Set(n)
		}
	}

	// Pass 2: transitive closure of the used set.
	queue := make([]num, 0, s.used.Size())

	s.used.Range(func(i int) bool {
		queue = append(queue, i)

		return true
	})

	for len(queue) != 0 {
		n := queue[0]
		queue = queue[1:]

		for _, a := range s.exprs[n] {
			if s.used.IsSet(a) {
				continue
			}

			s.used.Set(a)
			queue = append(queue, a)
		}
	}

	// Pass 3: keep the first producer of every used number, drop the
	// rest, rewrite arguments to canonical producer names.
	out := b.Code[:0]

	for i, x := range b.Code {
		sl := slots[i]

		if sl.n >= 0 {
			switch {
			case s.used.IsSet(sl.n):
				// Values are single-producer after this pass.
				s.used.Clear(sl.n)
				s.cname[sl.n] = x.Dest
			case liveOut && s.lastw[x.Dest] == i:
				// Redundant locally, but a successor may read
				// this name. Keep the write.
			default:
				continue
			}
		}

		for j, a := range sl.args {
			if c := s.cname[a]; c != "" {
				x.Args[j] = c
			}
		}

		out = append(out, x)
	}

	b.Code = out

	return nil
}

// number assigns a value number to the instruction destination, if any,
// resolving arguments through the variable map with the opaque fallback
// for names defined outside the block.
func (s *state) number(x ir.Instr) (sl slot, err error) {
	sl.n = -1

	if x.IsLabel() {
		return sl, nil
	}

	if x.Op == "" {
		return sl, errors.New("instruction without an opcode")
	}

	sl.args = make([]num, len(x.Args))

	for i, a := range x.Args {
		sl.args[i] = s.resolve(a)
	}

	if x.Dest == "" {
		// Effect instruction: arguments are live, no number assigned.
		for _, n := range sl.args {
			s.used.Set(n)
		}

		return sl, nil
	}

	var e expr

	if x.IsConst() {
		if x.Value == nil {
			return sl, errors.New("const %v lacks a literal value", x.Dest)
		}

		e = expr{Kind: kindConst, Op: x.Type, Key: string(x.Value)}
	} else {
		e = expr{Kind: kindOp, Op: x.Op, Key: argkey(sl.args)}
	}

	n, ok := s.val2num[e]
	if !ok {
		n = s.alloc(e, sl.args)
	}

	s.var2num[x.Dest] = n
	sl.n = n

	return sl, nil
}

// resolve maps a variable name to its current value number. A name with
// no local definition is an incoming live value: it gets an opaque
// number of its own, reused for later references to the same name and
// never aliased with a computed expression.
func (s *state) resolve(name string) num {
	n, ok := s.var2num[name]
	if ok {
		return n
	}

	n = s.alloc(expr{Kind: kindOpaque, Op: name}, nil)
	s.var2num[name] = n
	s.cname[n] = name

	return n
}

func (s *state) alloc(e expr, args []num) num {
	n := len(s.exprs)

	s.val2num[e] = n
	s.exprs = append(s.exprs, args)
	s.cname = append(s.cname, "")

	return n
}

func argkey(args []num) string {
	b := make([]byte, 0, 3*len(args))

	for _, n := range args {
		b = strconv.AppendInt(b, int64(n), 10)
		b = append(b, ',')
	}

	return string(b)
}
