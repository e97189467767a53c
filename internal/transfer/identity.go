package transfer

// IdentityDecoder passes the body through as is. The length of -1 means it isn't known,
// so the body lasts until the stream ends.
type IdentityDecoder struct {
	length   int64
	finished bool
	onData   DataFunc
	onFinish FinishFunc
}

func NewIdentityDecoder(length int64, onData DataFunc, onFinish FinishFunc) *IdentityDecoder {
	if onData == nil {
		onData = nopData
	}

	if onFinish == nil {
		onFinish = nopFinish
	}

	return &IdentityDecoder{
		length:   length,
		onData:   onData,
		onFinish: onFinish,
	}
}

// Remaining returns the number of bytes left until the body is complete, or -1 if the
// length is unknown.
func (i *IdentityDecoder) Remaining() int64 {
	return i.length
}

func (i *IdentityDecoder) DataReceived(data []byte) error {
	if i.finished {
		panic(ErrDecoderFinished)
	}

	if i.length == -1 {
		if len(data) > 0 {
			i.onData(data)
		}

		return nil
	}

	n := min(i.length, int64(len(data)))
	i.length -= n
	if n > 0 {
		i.onData(data[:n])
	}

	if i.length == 0 {
		i.finish(data[n:])
	}

	return nil
}

func (i *IdentityDecoder) NoMoreData() error {
	if i.finished {
		return nil
	}

	switch i.length {
	case -1:
		i.finish(nil)
		return ErrPotentialDataLoss
	default:
		i.drop()
		return ErrDataLoss
	}
}

func (i *IdentityDecoder) finish(rest []byte) {
	// the callback may feed the decoder again, so the state must be already consistent
	// before it's called.
	onFinish := i.onFinish
	i.drop()
	onFinish(rest)
}

func (i *IdentityDecoder) drop() {
	i.finished = true
	i.onData, i.onFinish = nopData, nopFinish
}
