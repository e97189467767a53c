package transfer

import (
	"bytes"
	"strconv"

	"github.com/indigo-web/utils/uf"
)

var crlf = []byte("\r\n")

// ToChunk frames the data as a single chunk. The result consists of the length line,
// the data itself and the terminating CRLF, so it can be passed to a vectored write
// directly.
func ToChunk(data []byte) [][]byte {
	length := strconv.AppendUint(make([]byte, 0, 18), uint64(len(data)), 16)
	return [][]byte{append(length, crlf...), data, crlf}
}

// FromChunk extracts the first chunk out of the data. The rest is everything that follows
// the chunk's CRLF terminator.
func FromChunk(data []byte) (chunk, rest []byte, err error) {
	prefix, body, found := bytes.Cut(data, crlf)
	if !found {
		return nil, nil, ErrIncompleteChunk
	}

	length, err := strconv.ParseUint(uf.B2S(prefix), 16, 63)
	if err != nil {
		return nil, nil, ErrMalformedChunk
	}

	if uint64(len(body)) < length+uint64(len(crlf)) {
		return nil, nil, ErrIncompleteChunk
	}

	if !bytes.Equal(body[length:length+2], crlf) {
		return nil, nil, ErrMalformedChunk
	}

	return body[:length], body[length+2:], nil
}
