package transfer

import (
	"bytes"
	"io"

	"github.com/indigo-web/channel/internal/hexconv"
)

// State is the coarse-grained state of the chunked decoder, as seen from the outside.
type State uint8

const (
	ChunkLength State = iota
	ChunkBody
	ChunkCRLF
	Trailer
	Finished
)

func (s State) String() string {
	switch s {
	case ChunkLength:
		return "CHUNK_LENGTH"
	case ChunkBody:
		return "CHUNK_BODY"
	case ChunkCRLF:
		return "CHUNK_CRLF"
	case Trailer:
		return "TRAILER"
	case Finished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

type chunkedState uint8

const (
	eChunkLength chunkedState = iota
	eChunkExt
	eChunkLengthCR
	eChunkBody
	eChunkBodyDone
	eChunkBodyCRLF
	eChunkTrailer
	eChunkTrailerCRLF
	eChunkTrailerFieldLine
	eChunkFinished
)

func (c chunkedState) public() State {
	switch c {
	case eChunkLength, eChunkExt, eChunkLengthCR:
		return ChunkLength
	case eChunkBody:
		return ChunkBody
	case eChunkBodyDone, eChunkBodyCRLF:
		return ChunkCRLF
	case eChunkTrailer, eChunkTrailerCRLF, eChunkTrailerFieldLine:
		return Trailer
	default:
		return Finished
	}
}

// maxChunkLengthDigits limits the chunk length to 2^60-1, so it always fits into int64.
const maxChunkLengthDigits = 15

// ChunkedDecoder decodes the chunked transfer coding. Chunk extensions and trailer
// field lines are consumed and discarded. Both CRLF and bare LF are accepted as line
// terminators.
type ChunkedDecoder struct {
	state        chunkedState
	lengthDigits uint8
	chunkLength  uint64
	onData       DataFunc
	onFinish     FinishFunc
}

func NewChunkedDecoder(onData DataFunc, onFinish FinishFunc) *ChunkedDecoder {
	if onData == nil {
		onData = nopData
	}

	if onFinish == nil {
		onFinish = nopFinish
	}

	return &ChunkedDecoder{
		state:    eChunkLength,
		onData:   onData,
		onFinish: onFinish,
	}
}

// State returns the current state of the decoder.
func (c *ChunkedDecoder) State() State {
	return c.state.public()
}

func (c *ChunkedDecoder) DataReceived(data []byte) error {
	if c.state == eChunkFinished {
		panic(ErrDecoderFinished)
	}

	for len(data) > 0 {
		chunk, extra, err := c.parse(data)
		if len(chunk) > 0 {
			c.onData(chunk)
		}

		switch err {
		case nil:
		case io.EOF:
			onFinish := c.onFinish
			c.drop()
			onFinish(extra)
			return nil
		default:
			c.drop()
			return err
		}

		data = extra
	}

	return nil
}

// NoMoreData is idempotent once the decoder is finished, so it's safe to be called from
// within the completion callback.
func (c *ChunkedDecoder) NoMoreData() error {
	if c.state == eChunkFinished {
		return nil
	}

	err := &DataLossError{State: c.state.public()}
	c.onData, c.onFinish = nopData, nopFinish

	return err
}

func (c *ChunkedDecoder) drop() {
	c.state = eChunkFinished
	c.onData, c.onFinish = nopData, nopFinish
}

// parse returns a chunk when it's ready, nil otherwise. io.EOF signals that the body
// is complete, extra contains the rest of the data in this case.
func (c *ChunkedDecoder) parse(data []byte) (chunk, extra []byte, err error) {
	switch c.state {
	case eChunkLength:
		goto chunkLength
	case eChunkExt:
		goto chunkExt
	case eChunkLengthCR:
		goto chunkLengthCR
	case eChunkBody:
		goto chunkBody
	case eChunkBodyDone:
		goto chunkBodyDone
	case eChunkBodyCRLF:
		goto chunkBodyCRLF
	case eChunkTrailer:
		goto trailer
	case eChunkTrailerCRLF:
		goto chunkTrailerCRLF
	case eChunkTrailerFieldLine:
		goto chunkTrailerFieldLine
	default:
		panic("unreachable code")
	}

chunkLength:
	for i := 0; i < len(data); i++ {
		switch char := data[i]; char {
		case '\r':
			if c.lengthDigits == 0 {
				return nil, nil, ErrMalformedChunk
			}

			data = data[i+1:]
			goto chunkLengthCR
		case '\n':
			if c.lengthDigits == 0 {
				return nil, nil, ErrMalformedChunk
			}

			data = data[i:]
			goto chunkLengthCR
		case ';':
			if c.lengthDigits == 0 {
				return nil, nil, ErrMalformedChunk
			}

			data = data[i+1:]
			goto chunkExt
		default:
			val := hexconv.Halfbyte[char]
			if val == hexconv.Invalid {
				return nil, nil, ErrMalformedChunk
			}

			c.chunkLength = (c.chunkLength << 4) | uint64(val)
			if c.lengthDigits++; c.lengthDigits > maxChunkLengthDigits {
				return nil, nil, ErrMalformedChunk
			}
		}
	}

	c.state = eChunkLength
	return nil, nil, nil

chunkExt:
	{
		boundary := bytes.IndexByte(data, '\n')
		if boundary == -1 {
			c.state = eChunkExt
			return nil, nil, nil
		}

		data = data[boundary+1:]
		if c.chunkLength == 0 {
			goto trailer
		}

		goto chunkBody
	}

chunkLengthCR:
	if len(data) == 0 {
		c.state = eChunkLengthCR
		return nil, nil, nil
	}

	if data[0] != '\n' {
		return nil, nil, ErrMalformedChunk
	}

	data = data[1:]

	if c.chunkLength == 0 {
		goto trailer
	}

	goto chunkBody

chunkBody:
	{
		n := min(c.chunkLength, uint64(len(data)))
		c.chunkLength -= n
		chunk = data[:n]

		if c.chunkLength == 0 {
			c.state = eChunkBodyDone
		} else {
			c.state = eChunkBody
		}

		return chunk, data[n:], nil
	}

chunkBodyDone:
	// the dispatch is executed on non-empty data only, so there's always at least one byte.
	c.lengthDigits = 0
	switch data[0] {
	case '\r':
		data = data[1:]
		goto chunkBodyCRLF
	case '\n':
		data = data[1:]
		goto chunkLength
	default:
		return nil, nil, ErrMalformedChunk
	}

chunkBodyCRLF:
	if len(data) == 0 {
		c.state = eChunkBodyCRLF
		return nil, nil, nil
	}

	if data[0] != '\n' {
		return nil, nil, ErrMalformedChunk
	}

	data = data[1:]
	goto chunkLength

trailer:
	if len(data) == 0 {
		c.state = eChunkTrailer
		return nil, nil, nil
	}

	switch data[0] {
	case '\r':
		data = data[1:]
		goto chunkTrailerCRLF
	case '\n':
		return nil, data[1:], io.EOF
	default:
		goto chunkTrailerFieldLine
	}

chunkTrailerCRLF:
	if len(data) == 0 {
		c.state = eChunkTrailerCRLF
		return nil, nil, nil
	}

	if data[0] != '\n' {
		return nil, nil, ErrMalformedChunk
	}

	return nil, data[1:], io.EOF

chunkTrailerFieldLine:
	{
		boundary := bytes.IndexByte(data, '\n')
		if boundary == -1 {
			c.state = eChunkTrailerFieldLine
			return nil, nil, nil
		}

		data = data[boundary+1:]
		goto trailer
	}
}
