package tcp

import (
	"bytes"
	"errors"

	"github.com/indigo-web/utils/unreader"
)

// ErrBufferOverflow is returned when either the delimiter wasn't met within the buffer
// limit, or more bytes than the limit were requested.
var ErrBufferOverflow = errors.New("tcp: read exceeds the maximal buffer size")

// Source returns the next piece of data. Returned slices may be reused by the source
// once the next call is made.
type Source func() ([]byte, error)

// Stream implements delimited and sized reads on top of a Source. Leftovers are kept
// and served before the source is touched again. Slices returned by Stream are owned
// by the caller.
type Stream struct {
	unreader *unreader.Unreader
	source   Source
	max      int
}

func NewStream(source Source, maxBufferSize int) *Stream {
	return &Stream{
		unreader: new(unreader.Unreader),
		source:   source,
		max:      maxBufferSize,
	}
}

func (s *Stream) read() ([]byte, error) {
	return s.unreader.PendingOr(s.source)
}

// ReadUntil returns all the data up to and including the delimiter
func (s *Stream) ReadUntil(delim []byte) ([]byte, error) {
	var acc []byte

	for {
		data, err := s.read()
		if err != nil {
			return nil, err
		}

		// the delimiter might have been split between two reads
		searchFrom := max(0, len(acc)-len(delim)+1)
		acc = append(acc, data...)

		if i := bytes.Index(acc[searchFrom:], delim); i != -1 {
			end := searchFrom + i + len(delim)
			if end > s.max {
				return nil, ErrBufferOverflow
			}

			// the delimiter wasn't in acc before data was appended, so it necessarily
			// ends within data. Unread data's own tail, as acc belongs to the caller now
			if tail := end - (len(acc) - len(data)); tail < len(data) {
				s.unreader.Unread(data[tail:])
			}

			return acc[:end:end], nil
		}

		if len(acc) > s.max {
			return nil, ErrBufferOverflow
		}
	}
}

// ReadBytes returns exactly n bytes
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > s.max {
		return nil, ErrBufferOverflow
	}

	acc := make([]byte, 0, n)

	for len(acc) < n {
		data, err := s.read()
		if err != nil {
			return nil, err
		}

		if need := n - len(acc); len(data) > need {
			s.unreader.Unread(data[need:])
			data = data[:need]
		}

		acc = append(acc, data...)
	}

	return acc, nil
}

func (s *Stream) MaxBufferSize() int {
	return s.max
}
