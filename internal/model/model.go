// Package model provides data-structs for internal app-usage
package model

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/UnendingLoop/Watermarker/internal/jpegenc"
	"github.com/UnendingLoop/Watermarker/internal/tiffenc"
)

type (
	Position string
	Format   string
)

const (
	TopLeft     Position = "top-left"
	TopRight    Position = "top-right"
	BottomLeft  Position = "bottom-left"
	BottomRight Position = "bottom-right"
	Center      Position = "center"
)

// ParsePosition never fails: an unknown tag means top-left.
func ParsePosition(s string) Position {
	p := Position(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case TopLeft, TopRight, BottomLeft, BottomRight, Center:
		return p
	}
	return TopLeft
}

const (
	FormatJPG  Format = "JPG"
	FormatJPEG Format = "JPEG"
	FormatPNG  Format = "PNG"
	FormatTIFF Format = "TIFF"
	FormatWEBP Format = "WEBP"
)

var FormatsMap = map[Format]bool{
	FormatJPG:  true,
	FormatJPEG: true,
	FormatPNG:  true,
	FormatTIFF: true,
	FormatWEBP: true,
}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToUpper(strings.TrimSpace(s)))
	if !FormatsMap[f] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
	return f, nil
}

// Ext - расширение файла без точки, всегда в нижнем регистре
func (f Format) Ext() string {
	return strings.ToLower(string(f))
}

var GetCType = map[Format]string{
	FormatJPG:  "image/jpeg",
	FormatJPEG: "image/jpeg",
	FormatPNG:  "image/png",
	FormatTIFF: "image/tiff",
	FormatWEBP: "image/webp",
}

// InputExtMap - расширения входных файлов, которые берет в работу батч
var InputExtMap = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

//---------------------

type CompositeParams struct {
	Opacity     float64
	Ratio       float64
	Position    Position
	TargetWidth int
}

// EncodeOptions is one of JPEGOptions, PNGOptions, TIFFOptions or WebPOptions.
type EncodeOptions interface {
	encodeOptions()
}

type JPEGOptions struct {
	Quality     int
	Subsampling jpegenc.Subsampling
	Progressive bool
	QuantTables [][64]uint16
}

type PNGOptions struct {
	CompressionLevel int
	Optimize         bool
	KeepAlpha        bool
}

type TIFFOptions struct {
	Compression tiffenc.Compression
}

type WebPOptions struct {
	Quality  int
	Lossless bool
}

func (JPEGOptions) encodeOptions() {}
func (PNGOptions) encodeOptions()  {}
func (TIFFOptions) encodeOptions() {}
func (WebPOptions) encodeOptions() {}

type EncodeParams struct {
	Format  Format
	DPI     int
	Options EncodeOptions
}

//---------------------

const DefaultNamePrefix = "watermarked_image"

type Naming struct {
	Prefix           string
	KeepOriginalName bool
}

// FileName resolves the output file name for src, index is 1-based.
func (n Naming) FileName(src string, index int, f Format) string {
	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	switch {
	case n.Prefix == DefaultNamePrefix:
		return fmt.Sprintf("watermarked_%s.%s", stem, f.Ext())
	case n.KeepOriginalName:
		return fmt.Sprintf("%s_%s.%s", n.Prefix, stem, f.Ext())
	default:
		return fmt.Sprintf("%s_%03d.%s", n.Prefix, index, f.Ext())
	}
}

// Options - неизменяемый конфиг прогона, собирается один раз до старта батча
type Options struct {
	WatermarkPath string
	Composite     CompositeParams
	Encode        EncodeParams
	Naming        Naming
}

//---------------------

type FileFailure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

type Report struct {
	RunID     string        `json:"run_id"`
	InputDir  string        `json:"input_dir"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Outputs   []string      `json:"outputs,omitempty"`
	Failures  []FileFailure `json:"failures,omitempty"`
}
