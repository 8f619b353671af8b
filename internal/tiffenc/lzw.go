package tiffenc

import "bytes"

const (
	lzwClear    = 256
	lzwEOI      = 257
	lzwFirst    = 258
	lzwMaxWidth = 12
	// таблицу сбрасываем чуть раньше 4096, как это делает libtiff
	lzwReset = 4094
)

type msbWriter struct {
	buf   *bytes.Buffer
	acc   uint32
	nbits uint
}

func (w *msbWriter) write(code uint32, width uint) {
	w.acc = w.acc<<width | code
	w.nbits += width
	for w.nbits >= 8 {
		w.buf.WriteByte(byte(w.acc >> (w.nbits - 8)))
		w.nbits -= 8
	}
	w.acc &= 1<<w.nbits - 1
}

func (w *msbWriter) flush() {
	if w.nbits > 0 {
		w.buf.WriteByte(byte(w.acc << (8 - w.nbits)))
		w.acc, w.nbits = 0, 0
	}
}

// compressLZW encodes src with the TIFF flavour of LZW: MSB-first codes and
// code width growing one code early.
func compressLZW(src []byte) []byte {
	var out bytes.Buffer
	w := &msbWriter{buf: &out}

	width := uint(9)
	next := uint32(lzwFirst)
	table := make(map[uint32]uint32)

	w.write(lzwClear, width)
	if len(src) == 0 {
		w.write(lzwEOI, width)
		w.flush()
		return out.Bytes()
	}

	ent := uint32(src[0])
	for _, c := range src[1:] {
		key := ent<<8 | uint32(c)
		if code, ok := table[key]; ok {
			ent = code
			continue
		}

		w.write(ent, width)
		table[key] = next
		next++
		if next >= lzwReset {
			w.write(lzwClear, width)
			clear(table)
			next, width = lzwFirst, 9
		} else if next >= 1<<width && width < lzwMaxWidth {
			width++
		}
		ent = uint32(c)
	}

	w.write(ent, width)
	next++
	if next >= 1<<width && width < lzwMaxWidth {
		width++
	}
	w.write(lzwEOI, width)
	w.flush()
	return out.Bytes()
}
