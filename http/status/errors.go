package status

// HTTPError is an error carrying the code of the response it results in. Errors of
// the parser are all of this type, so the channel knows what to answer with.
type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

// Every fatal parsing error is answered with exactly 400 Bad Request, regardless of the
// finer-grained reason, as clients must not rely on anything but the code.
var (
	ErrBadRequest              = NewError(BadRequest, "bad request")
	ErrBadRequestLine          = NewError(BadRequest, "malformed request line")
	ErrNonASCII                = NewError(BadRequest, "non-ASCII character in the request line")
	ErrHTTPVersionNotSupported = NewError(BadRequest, "HTTP version not supported")
	ErrBadHeader               = NewError(BadRequest, "malformed header line")
	ErrTooManyHeaders          = NewError(BadRequest, "too many headers")
	ErrHeaderFieldsTooLarge    = NewError(BadRequest, "too large headers section")
	ErrBadContentLength        = NewError(BadRequest, "invalid Content-Length value")
	ErrBadEncoding             = NewError(BadRequest, "unsupported transfer encoding")
	ErrBadChunk                = NewError(BadRequest, "malformed chunk-encoded data")
)
