package models

import "errors"

var (
	ErrNotEnoughData = errors.New("not enough data")
	ErrUnknownRatio  = errors.New("unknown ratio")
	ErrEmptyClass    = errors.New("label class has no samples")
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrRunInProgress = errors.New("training run already in progress")
)
