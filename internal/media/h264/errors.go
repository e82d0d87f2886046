package h264

import "github.com/pkg/errors"

var errNotSPS = errors.New("not a sequence parameter set")
