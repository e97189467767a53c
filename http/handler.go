package http

// Handler processes a request, once its body was received completely. It may finish the
// request right away or at any later moment. In the latter case, the request must be
// accessed from the connection's event loop only, see Request.Schedule.
type Handler interface {
	Process(r *Request)
}

type HandlerFunc func(r *Request)

func (h HandlerFunc) Process(r *Request) {
	h(r)
}

// Factory spawns a handler for every request. Queued tells whether there are earlier
// requests on the connection whose responses aren't sent yet.
type Factory func(queued bool) Handler

// Static returns a factory always returning the same handler.
func Static(h Handler) Factory {
	return func(bool) Handler {
		return h
	}
}

// Channel is the side of the connection the request reports its completion to.
type Channel interface {
	// RequestDone is called once the response of the request was completely written.
	RequestDone(r *Request)
}
