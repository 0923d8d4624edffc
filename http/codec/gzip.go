package codec

import (
	"github.com/klauspost/compress/gzip"
)

func NewGZIP() Codec {
	return NewGZIPLevel(gzip.DefaultCompression)
}

// NewGZIPLevel panics if the level is out of the gzip range
func NewGZIPLevel(level int) Codec {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		panic("codec: bad gzip level")
	}

	return newBaseCodec("gzip", func() Instance {
		writer, _ := gzip.NewWriterLevel(nil, level)
		return newBaseInstance(writer, new(gzip.Reader), genericResetter)
	})
}
