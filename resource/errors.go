package resource

import (
	"github.com/pkg/errors"

	"github.com/rsrcutils/rsrcbrowser/utils"
)

// Read-side failures. ErrInsufficientData is the cursor sentinel from
// utils, re-exported so callers only need this package to classify errors.
var (
	ErrInsufficientData = utils.ErrInsufficientData
	ErrInvalidFormat    = errors.New("invalid resource file")
	ErrUnsupported      = errors.New("unsupported")
)

// Write-side constraint violations.
var (
	ErrInvalidID                  = errors.New("resource id out of range for format")
	ErrFileTooBig                 = errors.New("file too big for format")
	ErrTypeAttributesNotSupported = errors.New("type attributes not supported by format")
	ErrValueOverflow              = utils.ErrValueOverflow
)
