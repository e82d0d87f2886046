package alohadecode

import "github.com/pkg/errors"

var (
	errInvalidConfig = errors.New("invalid config")
	errClosed        = errors.New("pipeline closed")
)
