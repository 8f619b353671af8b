package jpegenc

import (
	"math"
	"math/bits"
)

type huffSpec struct {
	counts [16]uint8 // counts[i] - число кодов длины i+1
	values []uint8
}

type huffCode struct {
	code uint16
	size uint8
}

// optimalSpec builds a length-limited Huffman table for the given symbol
// frequencies following Annex K.2. A reserved symbol keeps the all-ones
// code out of the table.
func optimalSpec(freq *[256]int) huffSpec {
	var f [257]int
	copy(f[:], freq[:])
	f[256] = 1

	var codesize [257]int
	var others [257]int
	for i := range others {
		others[i] = -1
	}

	for {
		c1, c2 := -1, -1
		v := math.MaxInt
		for i := 0; i <= 256; i++ {
			if f[i] != 0 && f[i] <= v {
				v, c1 = f[i], i
			}
		}
		v = math.MaxInt
		for i := 0; i <= 256; i++ {
			if f[i] != 0 && f[i] <= v && i != c1 {
				v, c2 = f[i], i
			}
		}
		if c2 < 0 {
			break
		}

		f[c1] += f[c2]
		f[c2] = 0

		codesize[c1]++
		for others[c1] >= 0 {
			c1 = others[c1]
			codesize[c1]++
		}
		others[c1] = c2

		codesize[c2]++
		for others[c2] >= 0 {
			c2 = others[c2]
			codesize[c2]++
		}
	}

	var lengths [258]int
	for _, cs := range codesize {
		if cs > 0 {
			lengths[cs]++
		}
	}

	// укорачиваем коды длиннее 16 бит
	for i := len(lengths) - 1; i > 16; i-- {
		for lengths[i] > 0 {
			j := i - 2
			for lengths[j] == 0 {
				j--
			}
			lengths[i] -= 2
			lengths[i-1]++
			lengths[j+1] += 2
			lengths[j]--
		}
	}

	// убираем зарезервированный символ
	i := 16
	for lengths[i] == 0 {
		i--
	}
	lengths[i]--

	var s huffSpec
	for l := 1; l <= 16; l++ {
		s.counts[l-1] = uint8(lengths[l])
	}
	for l := 1; l < len(lengths); l++ {
		for sym := 0; sym < 256; sym++ {
			if codesize[sym] == l {
				s.values = append(s.values, uint8(sym))
			}
		}
	}
	return s
}

// codes assigns canonical codes (Annex C).
func (s *huffSpec) codes() [256]huffCode {
	var c [256]huffCode
	code, k := uint16(0), 0
	for l := 0; l < 16; l++ {
		for n := 0; n < int(s.counts[l]); n++ {
			c[s.values[k]] = huffCode{code: code, size: uint8(l + 1)}
			code++
			k++
		}
		code <<= 1
	}
	return c
}

//---------------------

// symbol is one Huffman-coded value plus its appended magnitude bits.
type symbol struct {
	table uint8 // 0,1 - DC luma/chroma; 2,3 - AC luma/chroma
	value uint8
	nbits uint8
	extra uint16
}

// scanCoder collects the symbols of one scan so that its tables can be
// optimized before any bit is written.
type scanCoder struct {
	syms []symbol
	freq [4][256]int
}

func (s *scanCoder) add(table int, value, nbits uint8, extra uint16) {
	s.syms = append(s.syms, symbol{table: uint8(table), value: value, nbits: nbits, extra: extra})
	s.freq[table][value]++
}

func (s *scanCoder) dc(table, diff int) {
	n, extra := magnitude(diff)
	s.add(table, n, n, extra)
}

func (s *scanCoder) ac(table int, blk *block, ss, se int) {
	run := 0
	for k := ss; k <= se; k++ {
		v := int(blk[k])
		if v == 0 {
			run++
			continue
		}
		for run > 15 {
			s.add(table, 0xf0, 0, 0)
			run -= 16
		}
		n, extra := magnitude(v)
		s.add(table, uint8(run<<4)|n, n, extra)
		run = 0
	}
	if run > 0 {
		s.add(table, 0x00, 0, 0) // EOB
	}
}

func magnitude(v int) (uint8, uint16) {
	a := v
	if a < 0 {
		a = -a
		v--
	}
	n := uint8(bits.Len(uint(a)))
	return n, uint16(v) & (1<<n - 1)
}

//---------------------

type bitWriter struct {
	e   *encoder
	acc uint32
	n   uint8
}

func (b *bitWriter) emit(v uint32, n uint8) {
	b.acc = b.acc<<n | v&(1<<n-1)
	b.n += n
	for b.n >= 8 {
		c := byte(b.acc >> (b.n - 8))
		b.e.writeByte(c)
		if c == 0xff {
			b.e.writeByte(0)
		}
		b.n -= 8
	}
	b.acc &= 1<<b.n - 1
}

// pad fills the last byte with 1-bits.
func (b *bitWriter) pad() {
	if b.n > 0 {
		b.emit(0xff, 8-b.n)
	}
}
