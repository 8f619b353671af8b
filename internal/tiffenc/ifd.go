package tiffenc

import (
	"encoding/binary"
	"sort"
)

const (
	typeShort    uint16 = 3
	typeLong     uint16 = 4
	typeRational uint16 = 5
)

const (
	tagImageWidth          uint16 = 256
	tagImageLength         uint16 = 257
	tagBitsPerSample       uint16 = 258
	tagCompression         uint16 = 259
	tagPhotometric         uint16 = 262
	tagStripOffsets        uint16 = 273
	tagSamplesPerPixel     uint16 = 277
	tagRowsPerStrip        uint16 = 278
	tagStripByteCounts     uint16 = 279
	tagXResolution         uint16 = 282
	tagYResolution         uint16 = 283
	tagPlanarConfiguration uint16 = 284
	tagResolutionUnit      uint16 = 296
	tagExtraSamples        uint16 = 338
)

var le = binary.LittleEndian

type entry struct {
	tag, typ uint16
	count    uint32
	data     []byte
}

// IFD collects tags of one little-endian image file directory.
type IFD struct {
	entries []entry
}

func (d *IFD) Short(tag uint16, vals ...uint16) {
	data := make([]byte, 0, 2*len(vals))
	for _, v := range vals {
		data = le.AppendUint16(data, v)
	}
	d.entries = append(d.entries, entry{tag: tag, typ: typeShort, count: uint32(len(vals)), data: data})
}

func (d *IFD) Long(tag uint16, vals ...uint32) {
	data := make([]byte, 0, 4*len(vals))
	for _, v := range vals {
		data = le.AppendUint32(data, v)
	}
	d.entries = append(d.entries, entry{tag: tag, typ: typeLong, count: uint32(len(vals)), data: data})
}

func (d *IFD) Rational(tag uint16, num, den uint32) {
	data := le.AppendUint32(le.AppendUint32(nil, num), den)
	d.entries = append(d.entries, entry{tag: tag, typ: typeRational, count: 1, data: data})
}

// Resolution adds X/YResolution in dots per inch.
func (d *IFD) Resolution(dpi int) {
	d.Rational(tagXResolution, uint32(dpi), 1)
	d.Rational(tagYResolution, uint32(dpi), 1)
	d.Short(tagResolutionUnit, 2)
}

// Bytes serializes the directory as if it starts at offset in the file.
// Values longer than four bytes are stored right after the directory.
func (d *IFD) Bytes(offset uint32) []byte {
	entries := make([]entry, len(d.entries))
	copy(entries, d.entries)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	dirLen := 2 + 12*len(entries) + 4
	extOff := offset + uint32(dirLen)

	out := make([]byte, 0, dirLen)
	var ext []byte
	out = le.AppendUint16(out, uint16(len(entries)))
	for _, e := range entries {
		out = le.AppendUint16(out, e.tag)
		out = le.AppendUint16(out, e.typ)
		out = le.AppendUint32(out, e.count)
		if len(e.data) <= 4 {
			var v [4]byte
			copy(v[:], e.data)
			out = append(out, v[:]...)
			continue
		}
		out = le.AppendUint32(out, extOff+uint32(len(ext)))
		ext = append(ext, e.data...)
		if len(ext)%2 == 1 {
			ext = append(ext, 0)
		}
	}
	out = le.AppendUint32(out, 0) // следующего IFD нет
	return append(out, ext...)
}

// header returns the 8-byte little-endian TIFF header pointing at ifdOffset.
func header(ifdOffset uint32) []byte {
	return le.AppendUint32([]byte{'I', 'I', 42, 0}, ifdOffset)
}

// ResolutionEXIF returns a minimal TIFF structure carrying only the
// resolution tags, suitable as an EXIF payload.
func ResolutionEXIF(dpi int) []byte {
	var d IFD
	d.Resolution(dpi)
	return append(header(8), d.Bytes(8)...)
}
