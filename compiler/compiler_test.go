package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

const redundant = `{"functions":[{"name":"main","instrs":[
	{"op":"const","dest":"a","type":"int","value":4},
	{"op":"const","dest":"b","type":"int","value":4},
	{"op":"add","dest":"c","type":"int","args":["a","b"]},
	{"op":"add","dest":"d","type":"int","args":["a","b"]},
	{"op":"print","args":["c"]},
	{"op":"print","args":["d"]}
]}]}`

const loop = `{"functions":[{"name":"loop","args":[{"name":"n","type":"int"}],"instrs":[
	{"op":"const","dest":"one","type":"int","value":1},
	{"label":"head"},
	{"op":"gt","dest":"cond","type":"bool","args":["n","one"]},
	{"op":"br","args":["cond"],"labels":["body","done"]},
	{"label":"body"},
	{"op":"sub","dest":"n","type":"int","args":["n","one"]},
	{"op":"jmp","labels":["head"]},
	{"label":"done"},
	{"op":"print","args":["n"]}
]}]}`

func TestOptimize(t *testing.T) {
	ctx := context.Background()

	res, err := Optimize(ctx, []byte(redundant))
	require.NoError(t, err)

	require.JSONEq(t, `{"functions":[{"name":"main","instrs":[
		{"op":"const","dest":"a","type":"int","value":4},
		{"op":"add","dest":"c","type":"int","args":["a","a"]},
		{"op":"print","args":["c"]},
		{"op":"print","args":["c"]}
	]}]}`, string(res))
}

func TestOptimizeLoop(t *testing.T) {
	ctx := context.Background()

	// Values flowing between blocks are out of local scope and must
	// come through unchanged.
	res, err := Optimize(ctx, []byte(loop))
	require.NoError(t, err)
	require.JSONEq(t, loop, string(res))
}

func TestOptimizeIdempotent(t *testing.T) {
	ctx := context.Background()

	for _, src := range []string{redundant, loop} {
		first, err := Optimize(ctx, []byte(src))
		require.NoError(t, err)

		second, err := Optimize(ctx, first)
		require.NoError(t, err)

		require.Equal(t, string(first), string(second))
	}
}

func TestOptimizeErrors(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name string
		data string
	}{
		{"bad json", `{"functions"`},
		{"unknown field", `{"functions":[],"extra":1}`},
		{"undefined label", `{"functions":[{"name":"f","instrs":[{"op":"jmp","labels":["nowhere"]}]}]}`},
	} {
		_, err := Optimize(ctx, []byte(tc.data))
		require.Error(t, err, tc.name)
	}
}

func TestDumpCFG(t *testing.T) {
	ctx := context.Background()

	res, err := DumpCFG(ctx, []byte(loop))
	require.NoError(t, err)

	require.Equal(t, `func loop
0 -> [1]
1 -> [2 3]
2 -> [1]
3 -> []
`, string(res))
}
