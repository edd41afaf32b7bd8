package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	// Bitmap is a dense set of small non-negative ints.
	Bitmap []uint64
)

func MakeBitmap(Len int) Bitmap {
	return make(Bitmap, (Len+63)/64)
}

func (s *Bitmap) Set(i int) {
	j := i / 64

	for j >= len(*s) {
		*s = append(*s, 0)
	}

	(*s)[j] |= 1 << (i % 64)
}

func (s *Bitmap) Clear(i int) {
	j := i / 64

	if j >= len(*s) {
		return
	}

	(*s)[j] &^= 1 << (i % 64)
}

func (s Bitmap) IsSet(i int) bool {
	j := i / 64

	if j >= len(s) {
		return false
	}

	return s[j]&(1<<(i%64)) != 0
}

func (s Bitmap) Size() (r int) {
	for _, c := range s {
		r += bits.OnesCount64(c)
	}

	return r
}

func (s Bitmap) Range(f func(i int) bool) {
	for i, x := range s {
		for x != 0 {
			j := bits.TrailingZeros64(x)
			x &^= 1 << j

			if !f(i*64 + j) {
				return
			}
		}
	}
}

func (s Bitmap) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if s == nil {
		return e.AppendNil(b)
	}

	b = e.AppendTag(b, tlwire.Array, -1)

	s.Range(func(i int) bool {
		b = e.AppendInt(b, i)

		return true
	})

	b = e.AppendBreak(b)

	return b
}
