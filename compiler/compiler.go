package compiler

import (
	"context"
	"fmt"
	"os"

	"github.com/briltools/brilopt/compiler/cfg"
	"github.com/briltools/brilopt/compiler/ir"
	"github.com/briltools/brilopt/compiler/lvn"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

func OptimizeFile(ctx context.Context, name string) (res []byte, err error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(data), "name", name)

	return Optimize(ctx, data)
}

// Optimize runs the whole pass: decode the program, optimize every
// function, encode the result. The first error aborts the run, no
// partial output is produced.
func Optimize(ctx context.Context, data []byte) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "optimize program", "size", len(data))
	defer tr.Finish("err", &err)

	p, err := ir.Decode(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	for i := range p.Funcs {
		f := &p.Funcs[i]

		err = optimizeFunc(ctx, f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	res, err := ir.Encode(p)
	if err != nil {
		return nil, errors.Wrap(err, "encode")
	}

	return res, nil
}

func optimizeFunc(ctx context.Context, f *ir.Func) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "optimize func", "name", f.Name, "instrs", len(f.Instrs))
	defer tr.Finish("err", &err)

	g, err := cfg.Build(f)
	if err != nil {
		return errors.Wrap(err, "build cfg")
	}

	if tr.If("dump_cfg") {
		for i, b := range g.Blocks {
			tr.Printw("block", "i", i, "next", b.Next, "code", len(b.Code))
		}
	}

	err = lvn.Run(ctx, g)
	if err != nil {
		return errors.Wrap(err, "lvn")
	}

	f.Instrs = g.Flatten()

	return nil
}

// DumpCFG renders per-function successor edges, one block per line.
func DumpCFG(ctx context.Context, data []byte) (res []byte, err error) {
	p, err := ir.Decode(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	for i := range p.Funcs {
		f := &p.Funcs[i]

		g, err := cfg.Build(f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}

		res = fmt.Appendf(res, "func %s\n", f.Name)

		for j, b := range g.Blocks {
			res = fmt.Appendf(res, "%d -> %v\n", j, b.Next)
		}
	}

	return res, nil
}
