package jpegenc

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// zigzag maps the zig-zag scan position to the natural (row-major) index.
var zigzag = [64]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// базовые таблицы квантования из приложения K (естественный порядок)
var baseQuant = [2][64]uint16{
	{
		16, 11, 10, 16, 24, 40, 51, 61,
		12, 12, 14, 19, 26, 58, 60, 55,
		14, 13, 16, 24, 40, 57, 69, 56,
		14, 17, 22, 29, 51, 87, 80, 62,
		18, 22, 37, 56, 68, 109, 103, 77,
		24, 35, 55, 64, 81, 104, 113, 92,
		49, 64, 78, 87, 103, 121, 120, 101,
		72, 92, 95, 98, 112, 100, 103, 99,
	},
	{
		17, 18, 24, 47, 99, 99, 99, 99,
		18, 21, 26, 66, 99, 99, 99, 99,
		24, 26, 56, 99, 99, 99, 99, 99,
		47, 66, 99, 99, 99, 99, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
	},
}

// ScaleQuantTables returns the luma and chroma tables for quality 1..100
// using the usual IJG scaling curve.
func ScaleQuantTables(quality int) [2][64]uint16 {
	quality = max(1, min(100, quality))
	scale := 200 - 2*quality
	if quality < 50 {
		scale = 5000 / quality
	}

	var q [2][64]uint16
	for t := range q {
		for i, b := range baseQuant[t] {
			v := (int(b)*scale + 50) / 100
			q[t][i] = uint16(max(1, min(255, v)))
		}
	}
	return q
}

// ParseQuantTables parses "v1,v2,...,v64[;v1,...,v64]": one or two tables of
// 64 values in natural order, luma first. An empty string yields nil.
func ParseQuantTables(s string) ([][64]uint16, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ";")
	if len(parts) > 2 {
		return nil, fmt.Errorf("jpegenc: %d quantization tables given, want 1 or 2", len(parts))
	}

	tables := make([][64]uint16, 0, len(parts))
	for n, part := range parts {
		fields := strings.FieldsFunc(part, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
		if len(fields) != 64 {
			return nil, fmt.Errorf("jpegenc: quantization table %d has %d values, want 64", n, len(fields))
		}

		var t [64]uint16
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("jpegenc: quantization table %d: %w", n, err)
			}
			if v < 1 || v > 255 {
				return nil, fmt.Errorf("jpegenc: quantization table %d: value %d out of range 1..255", n, v)
			}
			t[i] = uint16(v)
		}
		tables = append(tables, t)
	}
	return tables, nil
}
