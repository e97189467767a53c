package method

// Method enumerates the methods defined by RFC 9110 and RFC 5789. Requests with other
// methods are still served, the method string is passed to the handler verbatim.
type Method uint8

const (
	Unknown Method = iota
	GET
	HEAD
	POST
	PUT
	DELETE
	CONNECT
	OPTIONS
	TRACE
	PATCH

	last = PATCH
)

// List contains all the known methods in the order of their values.
var List = []Method{GET, HEAD, POST, PUT, DELETE, CONNECT, OPTIONS, TRACE, PATCH}

var names = [...]string{
	Unknown: "Unknown",
	GET:     "GET",
	HEAD:    "HEAD",
	POST:    "POST",
	PUT:     "PUT",
	DELETE:  "DELETE",
	CONNECT: "CONNECT",
	OPTIONS: "OPTIONS",
	TRACE:   "TRACE",
	PATCH:   "PATCH",
}

func (m Method) String() string {
	if m > last {
		return names[Unknown]
	}

	return names[m]
}

// Safe reports whether the method is read-only by its semantics.
func (m Method) Safe() bool {
	switch m {
	case GET, HEAD, OPTIONS, TRACE:
		return true
	default:
		return false
	}
}

// Idempotent reports whether repeating the request has the same effect as doing it once,
// so it may be retried automatically.
func (m Method) Idempotent() bool {
	return m.Safe() || m == PUT || m == DELETE
}

// Parse is case-sensitive, as methods are. Unknown is returned for anything not listed.
func Parse(str string) Method {
	if len(str) < 3 || len(str) > 7 {
		return Unknown
	}

	for _, m := range List {
		if names[m] == str {
			return m
		}
	}

	return Unknown
}
