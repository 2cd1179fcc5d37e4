package raster

import "errors"

var (
	ErrResolution          = errors.New("resolution must be between 1 and 255")
	ErrFormatMismatch      = errors.New("variant id does not match")
	ErrMissingDestination  = errors.New("missing filename")
	ErrInvalidKeyType      = errors.New("grid index must be a geometry or an extent")
	ErrBoundsOverflow      = errors.New("grid bounds do not fit the binary format")
	ErrMetadataUnsupported = errors.New("format has no metadata")
	ErrLabelOverflow       = errors.New("too many labels")
	ErrCellCount           = errors.New("cell count does not match width and height")
)
