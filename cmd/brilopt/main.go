package main

import (
	"context"
	"io"
	"os"

	"github.com/briltools/brilopt/compiler"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

func main() {
	cfgCmd := &cli.Command{
		Name:        "cfg",
		Description: "print per function basic block successor edges",
		Action:      cfgAct,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "brilopt",
		Description: "brilopt runs local value numbering with dead code elimination over a json encoded program",
		Action:      optAct,
		Args:        cli.Args{},
		Commands: []*cli.Command{
			cfgCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func optAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return errors.Wrap(err, "read stdin")
		}

		res, err := compiler.Optimize(ctx, data)
		if err != nil {
			return errors.Wrap(err, "optimize")
		}

		return write(res)
	}

	for _, a := range c.Args {
		res, err := compiler.OptimizeFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "optimize %v", a)
		}

		err = write(res)
		if err != nil {
			return err
		}
	}

	return nil
}

func cfgAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return errors.Wrap(err, "read stdin")
	}

	res, err := compiler.DumpCFG(ctx, data)
	if err != nil {
		return errors.Wrap(err, "build cfg")
	}

	_, err = os.Stdout.Write(res)
	if err != nil {
		return errors.Wrap(err, "write output")
	}

	return nil
}

func write(res []byte) error {
	_, err := os.Stdout.Write(append(res, '\n'))
	if err != nil {
		return errors.Wrap(err, "write output")
	}

	return nil
}
