package model

import (
	"errors"
	"fmt"
)

var (
	ErrDecode            error = errors.New("failed to decode image")
	ErrUnsupportedFormat error = errors.New("unsupported output format")
	ErrProcessing        error = errors.New("failed to process image")
	ErrInvalidSettings   error = errors.New("invalid settings")
	ErrWatermarkMissing  error = errors.New("watermark image not found")
)

// ProcessingError is the single error a compositor call surfaces for one file.
type ProcessingError struct {
	Source string
	Err    error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%v %q: %v", ErrProcessing, e.Source, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

func (e *ProcessingError) Is(target error) bool { return target == ErrProcessing }
