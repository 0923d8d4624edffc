package codec

import (
	"io"
)

var _ Codec = baseCodec{}

type instantiator = func() Instance

type baseCodec struct {
	token   string
	newInst instantiator
}

func newBaseCodec(token string, newInst instantiator) baseCodec {
	return baseCodec{
		token:   token,
		newInst: newInst,
	}
}

func (b baseCodec) Token() string {
	return b.token
}

func (b baseCodec) New() Instance {
	return b.newInst()
}

var _ Instance = new(baseInstance)

type (
	decoderResetter = func(decoder, source io.Reader) error

	writeResetter interface {
		io.WriteCloser
		Reset(dst io.Writer)
	}
)

type baseInstance struct {
	reset decoderResetter
	w     writeResetter // compressor
	r     io.Reader     // decompressor
}

func newBaseInstance(encoder writeResetter, decoder io.Reader, reset decoderResetter) *baseInstance {
	return &baseInstance{
		reset: reset,
		w:     encoder,
		r:     decoder,
	}
}

func (b *baseInstance) ResetCompressor(w io.Writer) {
	b.w.Reset(w)
}

func (b *baseInstance) Write(p []byte) (n int, err error) {
	return b.w.Write(p)
}

// Close flushes the rest of the compressed stream into the writer. The instance is reusable
// after ResetCompressor.
func (b *baseInstance) Close() error {
	return b.w.Close()
}

func (b *baseInstance) ResetDecompressor(source io.Reader) error {
	return b.reset(b.r, source)
}

func (b *baseInstance) Read(p []byte) (n int, err error) {
	return b.r.Read(p)
}

func genericResetter(decoder, source io.Reader) error {
	type resetter interface {
		Reset(r io.Reader) error
	}

	if reset, ok := decoder.(resetter); ok {
		return reset.Reset(source)
	}

	return nil
}
