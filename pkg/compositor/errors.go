package compositor

import "errors"

var (
	// ErrNoSource is returned by Reprocess before any successful ProcessImage.
	ErrNoSource = errors.New("no source image available")
	// ErrDecode wraps decoder failures for the source photo.
	ErrDecode = errors.New("failed to decode image")
	// ErrEncode is returned when the rendered surface cannot be serialized.
	ErrEncode = errors.New("failed to create output blob")
	// ErrLogoDecode is returned by SetLogo; the previous badge stays active.
	ErrLogoDecode = errors.New("failed to load logo")
	// ErrInvalidTransform rejects non-finite or non-positive scales.
	ErrInvalidTransform = errors.New("invalid transform")
	// ErrSurfaceSize is returned by DrawInto for targets that are not CanvasSize square.
	ErrSurfaceSize = errors.New("surface must be 400x400")
)
