package codec

import (
	"io"

	"github.com/klauspost/compress/flate"
)

func NewDeflate() Codec {
	return newBaseCodec("deflate", func() Instance {
		writer, err := flate.NewWriter(nil, 5)
		if err != nil {
			panic(err)
		}

		reader := flate.NewReader(nil)
		return newBaseInstance(writer, reader, func(decoder, source io.Reader) error {
			return decoder.(flate.Resetter).Reset(source, nil)
		})
	})
}
