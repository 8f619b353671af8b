// Package jpegenc writes JFIF JPEG files with explicit control over chroma
// subsampling, quantization tables, progressive scans and pixel density.
// Huffman tables are always optimized per scan.
package jpegenc

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
)

type Subsampling int

const (
	Subsample444 Subsampling = iota
	Subsample422
	Subsample420
)

const DefaultQuality = 75

type Options struct {
	Quality     int
	Subsampling Subsampling
	Progressive bool
	// QuantTables override Quality when set: one table for every component or
	// luma + chroma, natural order.
	QuantTables [][64]uint16
	// DPI goes into the JFIF density fields; 0 writes an aspect ratio only.
	DPI int
}

const (
	markerSOF0 = 0xc0
	markerSOF2 = 0xc2
	markerDHT  = 0xc4
	markerSOI  = 0xd8
	markerEOI  = 0xd9
	markerSOS  = 0xda
	markerDQT  = 0xdb
	markerAPP0 = 0xe0
)

type block [64]int16

type component struct {
	id, tq uint8
	h, v   int
	bw, bh int // сетка блоков с учетом добивки до целого MCU
	cw, ch int // блоки, реально покрывающие отсчеты компоненты
	blocks []block
}

type encoder struct {
	w             *bufio.Writer
	err           error
	width, height int
	hmax, vmax    int
	mcuX, mcuY    int
	comps         [3]component
	quant         [2][64]uint16
}

// Encode writes m to w. Alpha is ignored.
func Encode(w io.Writer, m image.Image, o *Options) error {
	if o == nil {
		o = &Options{Quality: DefaultQuality}
	}

	b := m.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 || b.Dx() > 0xffff || b.Dy() > 0xffff {
		return fmt.Errorf("jpegenc: image size %v out of range", b.Size())
	}

	hmax, vmax, err := o.Subsampling.factors()
	if err != nil {
		return err
	}

	quant, err := o.quantTables()
	if err != nil {
		return err
	}

	e := &encoder{
		w:      bufio.NewWriter(w),
		width:  b.Dx(),
		height: b.Dy(),
		hmax:   hmax,
		vmax:   vmax,
		quant:  quant,
		comps: [3]component{
			{id: 1, tq: 0, h: hmax, v: vmax},
			{id: 2, tq: 1, h: 1, v: 1},
			{id: 3, tq: 1, h: 1, v: 1},
		},
	}

	e.transform(m)
	e.writeHeaders(o.DPI, o.Progressive)
	if o.Progressive {
		e.writeProgressive()
	} else {
		e.writeBaseline()
	}
	e.write([]byte{0xff, markerEOI})

	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

func (s Subsampling) factors() (int, int, error) {
	switch s {
	case Subsample444:
		return 1, 1, nil
	case Subsample422:
		return 2, 1, nil
	case Subsample420:
		return 2, 2, nil
	}
	return 0, 0, fmt.Errorf("jpegenc: unknown subsampling mode %d", s)
}

func (o *Options) quantTables() ([2][64]uint16, error) {
	var q [2][64]uint16
	switch len(o.QuantTables) {
	case 0:
		return ScaleQuantTables(o.Quality), nil
	case 1:
		q[0], q[1] = o.QuantTables[0], o.QuantTables[0]
	case 2:
		q[0], q[1] = o.QuantTables[0], o.QuantTables[1]
	default:
		return q, fmt.Errorf("jpegenc: %d quantization tables, want 1 or 2", len(o.QuantTables))
	}

	for t := range q {
		for _, v := range q[t] {
			if v < 1 || v > 255 {
				return q, errors.New("jpegenc: quantization values must be in 1..255")
			}
		}
	}
	return q, nil
}

//---------------------

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *encoder) writeByte(c byte) {
	if e.err != nil {
		return
	}
	e.err = e.w.WriteByte(c)
}

func (e *encoder) writeSegment(marker byte, payload []byte) {
	n := len(payload) + 2
	e.write([]byte{0xff, marker, byte(n >> 8), byte(n)})
	e.write(payload)
}

func (e *encoder) writeHeaders(dpi int, progressive bool) {
	e.write([]byte{0xff, markerSOI})

	units, density := byte(0), 1
	if dpi > 0 {
		units, density = 1, min(dpi, 0xffff)
	}
	e.writeSegment(markerAPP0, []byte{
		'J', 'F', 'I', 'F', 0,
		1, 1, // версия 1.01
		units,
		byte(density >> 8), byte(density),
		byte(density >> 8), byte(density),
		0, 0,
	})

	dqt := make([]byte, 0, 2*65)
	for t := range e.quant {
		dqt = append(dqt, byte(t))
		for k := 0; k < 64; k++ {
			dqt = append(dqt, byte(e.quant[t][zigzag[k]]))
		}
	}
	e.writeSegment(markerDQT, dqt)

	sof := []byte{8, byte(e.height >> 8), byte(e.height), byte(e.width >> 8), byte(e.width), byte(len(e.comps))}
	for _, c := range e.comps {
		sof = append(sof, c.id, byte(c.h<<4|c.v), c.tq)
	}
	marker := byte(markerSOF0)
	if progressive {
		marker = markerSOF2
	}
	e.writeSegment(marker, sof)
}

//---------------------

func (e *encoder) writeBaseline() {
	var sc scanCoder
	var pred [3]int
	e.eachMCUBlock(func(ci int, blk *block) {
		t := int(e.comps[ci].tq)
		sc.dc(t, int(blk[0])-pred[ci])
		pred[ci] = int(blk[0])
		sc.ac(2+t, blk, 1, 63)
	})
	e.writeScan(&sc, []*component{&e.comps[0], &e.comps[1], &e.comps[2]}, 0, 63)
}

// writeProgressive emits an interleaved DC scan followed by one full-band
// AC scan per component.
func (e *encoder) writeProgressive() {
	var dc scanCoder
	var pred [3]int
	e.eachMCUBlock(func(ci int, blk *block) {
		dc.dc(int(e.comps[ci].tq), int(blk[0])-pred[ci])
		pred[ci] = int(blk[0])
	})
	e.writeScan(&dc, []*component{&e.comps[0], &e.comps[1], &e.comps[2]}, 0, 0)

	for ci := range e.comps {
		c := &e.comps[ci]
		var ac scanCoder
		for by := 0; by < c.ch; by++ {
			for bx := 0; bx < c.cw; bx++ {
				ac.ac(2+int(c.tq), &c.blocks[by*c.bw+bx], 1, 63)
			}
		}
		e.writeScan(&ac, []*component{c}, 1, 63)
	}
}

// eachMCUBlock walks blocks in interleaved MCU order.
func (e *encoder) eachMCUBlock(fn func(ci int, blk *block)) {
	for my := 0; my < e.mcuY; my++ {
		for mx := 0; mx < e.mcuX; mx++ {
			for ci := range e.comps {
				c := &e.comps[ci]
				for v := 0; v < c.v; v++ {
					for h := 0; h < c.h; h++ {
						fn(ci, &c.blocks[(my*c.v+v)*c.bw+mx*c.h+h])
					}
				}
			}
		}
	}
}

func (e *encoder) writeScan(sc *scanCoder, comps []*component, ss, se int) {
	var codes [4][256]huffCode
	var dht []byte
	for t := range sc.freq {
		used := false
		for _, n := range sc.freq[t] {
			if n > 0 {
				used = true
				break
			}
		}
		if !used {
			continue
		}

		spec := optimalSpec(&sc.freq[t])
		codes[t] = spec.codes()
		dht = append(dht, byte((t/2)<<4|t%2))
		dht = append(dht, spec.counts[:]...)
		dht = append(dht, spec.values...)
	}
	e.writeSegment(markerDHT, dht)

	sos := []byte{byte(len(comps))}
	for _, c := range comps {
		td, ta := c.tq, c.tq
		switch {
		case se == 0:
			ta = 0
		case ss > 0:
			td = 0
		}
		sos = append(sos, c.id, td<<4|ta)
	}
	sos = append(sos, byte(ss), byte(se), 0)
	e.writeSegment(markerSOS, sos)

	bw := bitWriter{e: e}
	for _, s := range sc.syms {
		c := codes[s.table][s.value]
		bw.emit(uint32(c.code), c.size)
		if s.nbits > 0 {
			bw.emit(uint32(s.extra), s.nbits)
		}
	}
	bw.pad()
}

//---------------------

var dctCos [8][8]float64

func init() {
	for u := 0; u < 8; u++ {
		cu := 0.5
		if u == 0 {
			cu = 0.5 / math.Sqrt2
		}
		for x := 0; x < 8; x++ {
			dctCos[u][x] = cu * math.Cos(float64((2*x+1)*u)*math.Pi/16)
		}
	}
}

// transform converts m to YCbCr planes padded to whole MCUs, subsamples
// chroma and stores quantized DCT coefficients in zig-zag order.
func (e *encoder) transform(m image.Image) {
	mcuW, mcuH := 8*e.hmax, 8*e.vmax
	e.mcuX = (e.width + mcuW - 1) / mcuW
	e.mcuY = (e.height + mcuH - 1) / mcuH
	pw, ph := e.mcuX*mcuW, e.mcuY*mcuH

	var planes [3][]float32
	for i := range planes {
		planes[i] = make([]float32, pw*ph)
	}

	rgb := rgbSampler(m)
	for y := 0; y < ph; y++ {
		sy := min(y, e.height-1)
		for x := 0; x < pw; x++ {
			sx := min(x, e.width-1)
			yy, cb, cr := color.RGBToYCbCr(rgb(sx, sy))
			i := y*pw + x
			planes[0][i], planes[1][i], planes[2][i] = float32(yy), float32(cb), float32(cr)
		}
	}

	var px, coef [64]float64
	for ci := range e.comps {
		c := &e.comps[ci]
		plane, stride := planes[ci], pw
		if fx, fy := e.hmax/c.h, e.vmax/c.v; fx > 1 || fy > 1 {
			plane, stride = downsample(plane, pw, ph, fx, fy)
		}

		c.bw, c.bh = e.mcuX*c.h, e.mcuY*c.v
		c.cw = (e.width*c.h + 8*e.hmax - 1) / (8 * e.hmax)
		c.ch = (e.height*c.v + 8*e.vmax - 1) / (8 * e.vmax)
		c.blocks = make([]block, c.bw*c.bh)

		q := &e.quant[c.tq]
		for by := 0; by < c.bh; by++ {
			for bx := 0; bx < c.bw; bx++ {
				for y := 0; y < 8; y++ {
					row := (by*8+y)*stride + bx*8
					for x := 0; x < 8; x++ {
						px[y*8+x] = float64(plane[row+x]) - 128
					}
				}
				fdct(&px, &coef)
				quantize(&coef, q, &c.blocks[by*c.bw+bx])
			}
		}
	}
}

func rgbSampler(m image.Image) func(x, y int) (uint8, uint8, uint8) {
	b := m.Bounds()
	switch im := m.(type) {
	case *image.NRGBA:
		return func(x, y int) (uint8, uint8, uint8) {
			i := im.PixOffset(b.Min.X+x, b.Min.Y+y)
			return im.Pix[i], im.Pix[i+1], im.Pix[i+2]
		}
	case *image.YCbCr:
		return func(x, y int) (uint8, uint8, uint8) {
			c := im.YCbCrAt(b.Min.X+x, b.Min.Y+y)
			return color.YCbCrToRGB(c.Y, c.Cb, c.Cr)
		}
	}
	return func(x, y int) (uint8, uint8, uint8) {
		c := color.NRGBAModel.Convert(m.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
		return c.R, c.G, c.B
	}
}

func downsample(src []float32, w, h, fx, fy int) ([]float32, int) {
	dw, dh := w/fx, h/fy
	dst := make([]float32, dw*dh)
	n := float32(fx * fy)
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			var s float32
			for j := 0; j < fy; j++ {
				row := (y*fy+j)*w + x*fx
				for i := 0; i < fx; i++ {
					s += src[row+i]
				}
			}
			dst[y*dw+x] = s / n
		}
	}
	return dst, dw
}

func fdct(in, out *[64]float64) {
	var tmp [64]float64
	for y := 0; y < 8; y++ {
		for u := 0; u < 8; u++ {
			s := 0.0
			for x := 0; x < 8; x++ {
				s += dctCos[u][x] * in[y*8+x]
			}
			tmp[y*8+u] = s
		}
	}
	for u := 0; u < 8; u++ {
		for v := 0; v < 8; v++ {
			s := 0.0
			for y := 0; y < 8; y++ {
				s += dctCos[v][y] * tmp[y*8+u]
			}
			out[v*8+u] = s
		}
	}
}

func quantize(coef *[64]float64, q *[64]uint16, dst *block) {
	for k := 0; k < 64; k++ {
		n := zigzag[k]
		v := math.Round(coef[n] / float64(q[n]))
		dst[k] = int16(max(-2047, min(2047, v)))
	}
}
