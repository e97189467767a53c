// Package transfer implements the decoders of the request body framing. Decoders are
// push-based: the bytes are fed as they come, the decoded content is passed to the data
// callback and, once the body is complete, the completion callback receives the bytes
// that follow the body.
package transfer

import (
	"errors"
	"fmt"

	"github.com/indigo-web/channel/http/status"
)

// Decoder is the contract both identity and chunked decoders fulfill.
type Decoder interface {
	// DataReceived feeds the decoder with the next portion of the stream. It panics
	// with ErrDecoderFinished if the body was already complete.
	DataReceived(data []byte) error
	// NoMoreData signals that the stream has ended. Returned error tells whether the
	// body was complete at this moment.
	NoMoreData() error
}

type (
	DataFunc   func(data []byte)
	FinishFunc func(rest []byte)
)

var (
	// ErrDecoderFinished is used as a panic value, as feeding the finished decoder
	// is a programming error rather than the protocol one.
	ErrDecoderFinished = errors.New("decoder cannot decode data after finishing")
	// ErrDataLoss is returned when the stream ended before the body was complete.
	ErrDataLoss = errors.New("stream ended before the body was complete")
	// ErrPotentialDataLoss is returned when the body has no declared length, so
	// it can't be told whether it was truncated.
	ErrPotentialDataLoss = errors.New("stream ended, body of unknown length may be truncated")
	// ErrMalformedChunk is answered with 400 Bad Request.
	ErrMalformedChunk = status.ErrBadChunk
	// ErrIncompleteChunk is returned by FromChunk when the data is too short.
	ErrIncompleteChunk = errors.New("incomplete chunk")
)

// DataLossError is returned by ChunkedDecoder.NoMoreData and names the state the decoder
// was left in.
type DataLossError struct {
	State State
}

func (d *DataLossError) Error() string {
	return fmt.Sprintf(
		"chunked decoder in '%s' state, still expecting more data to get to '%s' state",
		d.State, Finished,
	)
}

func (d *DataLossError) Is(target error) bool {
	return target == ErrDataLoss
}

func nopData([]byte)   {}
func nopFinish([]byte) {}
