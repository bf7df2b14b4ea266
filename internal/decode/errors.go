package decode

import "errors"

// Protocol errors a Handler can return from Decode. Each is scoped to a
// single datagram; none of them ever corrupt cache state, because cache
// inserts only happen on parsing success paths.
var (
	ErrUnsupportedVersion = errors.New("decode: unsupported version")
	ErrShortRead          = errors.New("decode: short read")
	ErrUnknownTemplate    = errors.New("decode: unknown template")
	ErrZeroFieldLength    = errors.New("decode: zero field length")
)
