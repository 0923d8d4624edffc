package codec

import (
	"io"
)

type Codec interface {
	// Token returns a coding token associated with the codec itself.
	Token() string
	New() Instance
}

// Instance is a reusable pair of stream compressor and decompressor. It isn't safe for
// concurrent use.
type Instance interface {
	Compressor
	Decompressor
}

type Compressor interface {
	io.WriteCloser
	ResetCompressor(w io.Writer)
}

type Decompressor interface {
	io.Reader
	ResetDecompressor(source io.Reader) error
}
