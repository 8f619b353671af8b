// Package settings keeps the user settings record between runs: defaults, JSON file, WM_* env overrides
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/UnendingLoop/Watermarker/internal/jpegenc"
	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/UnendingLoop/Watermarker/internal/tiffenc"
	"github.com/creasty/defaults"
	validatorV10 "github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/viper"
)

const EnvPrefix = "WM"

var (
	json      = jsoniter.ConfigCompatibleWithStandardLibrary
	validator = validatorV10.New()
)

type Settings struct {
	InputFolder      string  `json:"input_folder" mapstructure:"input_folder" validate:"required,dir"`
	OutputFolder     string  `json:"output_folder" mapstructure:"output_folder" validate:"required"`
	Opacity          float64 `json:"opacity" mapstructure:"opacity" default:"0.5" validate:"gte=0.1,lte=1"`
	WatermarkRatio   float64 `json:"watermark_ratio" mapstructure:"watermark_ratio" default:"0.1" validate:"gte=0.1,lte=1"`
	Position         string  `json:"position" mapstructure:"position" default:"top-left"`
	TargetWidth      int     `json:"target_width" mapstructure:"target_width" default:"1920" validate:"gte=0"`
	DPI              int     `json:"dpi" mapstructure:"dpi" default:"300" validate:"gte=1"`
	CustomName       string  `json:"custom_name" mapstructure:"custom_name" default:"watermarked_image"`
	KeepOriginalName bool    `json:"keep_original_name" mapstructure:"keep_original_name" default:"true"`
	OutputFormat     string  `json:"output_format" mapstructure:"output_format" default:"JPG"`
	JPEGQuality      int     `json:"jpeg_quality" mapstructure:"jpeg_quality" default:"95" validate:"gte=1,lte=100"`
	JPEGSubsampling  int     `json:"jpeg_subsampling" mapstructure:"jpeg_subsampling" default:"0" validate:"gte=0,lte=2"`
	JPEGProgressive  bool    `json:"jpeg_progressive" mapstructure:"jpeg_progressive"`
	JPEGQTables      string  `json:"jpeg_qtables" mapstructure:"jpeg_qtables"`
	CompressionLevel int     `json:"compression_level" mapstructure:"compression_level" default:"6" validate:"gte=0,lte=9"`
	PNGOptimize      bool    `json:"png_optimize" mapstructure:"png_optimize" default:"true"`
	PNGTransparency  bool    `json:"png_transparency" mapstructure:"png_transparency" default:"true"`
	TIFFCompression  string  `json:"tiff_compression" mapstructure:"tiff_compression" default:"tiff_lzw"`
	WebPLossless     bool    `json:"webp_lossless" mapstructure:"webp_lossless"`
}

func Default() *Settings {
	s := &Settings{}
	defaults.MustSet(s)
	return s
}

// Load reads the settings file at path and applies WM_* environment overrides.
// A missing file yields the defaults, an unreadable or corrupt one is an error.
func Load(path string) (*Settings, error) {
	s := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// без SetDefault viper не знает ключей и не смотрит в env
	base, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var keys map[string]any
	if err := json.Unmarshal(base, &keys); err != nil {
		return nil, err
	}
	for k, val := range keys {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read settings %q: %w", path, err)
	}

	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidSettings, err)
	}
	return s, nil
}

func (s *Settings) Validate() error {
	if err := validator.Struct(s); err != nil {
		return fmt.Errorf("%w: %w", model.ErrInvalidSettings, err)
	}
	return nil
}

// Options builds the immutable run configuration. Format specific fields are
// parsed here so a bad table or compression name fails before the batch starts.
func (s *Settings) Options(watermarkPath string) (*model.Options, error) {
	format, err := model.ParseFormat(s.OutputFormat)
	if err != nil {
		return nil, err
	}

	var opts model.EncodeOptions
	switch format {
	case model.FormatJPG, model.FormatJPEG:
		tables, err := jpegenc.ParseQuantTables(s.JPEGQTables)
		if err != nil {
			return nil, fmt.Errorf("%w: jpeg_qtables: %w", model.ErrInvalidSettings, err)
		}
		opts = model.JPEGOptions{
			Quality:     s.JPEGQuality,
			Subsampling: jpegenc.Subsampling(s.JPEGSubsampling),
			Progressive: s.JPEGProgressive,
			QuantTables: tables,
		}
	case model.FormatPNG:
		opts = model.PNGOptions{
			CompressionLevel: s.CompressionLevel,
			Optimize:         s.PNGOptimize,
			KeepAlpha:        s.PNGTransparency,
		}
	case model.FormatTIFF:
		c, err := tiffenc.ParseCompression(s.TIFFCompression)
		if err != nil {
			return nil, fmt.Errorf("%w: tiff_compression: %w", model.ErrInvalidSettings, err)
		}
		opts = model.TIFFOptions{Compression: c}
	case model.FormatWEBP:
		opts = model.WebPOptions{Quality: s.JPEGQuality, Lossless: s.WebPLossless}
	}

	prefix := s.CustomName
	if prefix == "" {
		prefix = model.DefaultNamePrefix
	}

	return &model.Options{
		WatermarkPath: watermarkPath,
		Composite: model.CompositeParams{
			Opacity:     s.Opacity,
			Ratio:       s.WatermarkRatio,
			Position:    model.ParsePosition(s.Position),
			TargetWidth: s.TargetWidth,
		},
		Encode: model.EncodeParams{
			Format:  format,
			DPI:     s.DPI,
			Options: opts,
		},
		Naming: model.Naming{
			Prefix:           prefix,
			KeepOriginalName: s.KeepOriginalName,
		},
	}, nil
}

// Save writes pretty JSON next to path and renames it into place.
func (s *Settings) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings folder: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}
