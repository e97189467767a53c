package config

import (
	"os"
	"time"
)

type (
	HeadersNumber struct {
		Default, Maximal int
	}

	HeadersSpace struct {
		Default, Maximal int
	}
)

type (
	URI struct {
		// ParamsPrealloc is the initial capacity of http.Request.Params.
		ParamsPrealloc int
	}

	Headers struct {
		// Number is responsible for headers storage size.
		// Default value is the initial capacity of the storage.
		// Maximal value is the maximal number of headers allowed per request. Exceeding
		// it results in 400 Bad Request and the connection being closed.
		Number HeadersNumber
		// Space limits the amount of bytes the request line and all the header lines of
		// a single request may occupy (line terminators aren't counted). Default is the
		// initial size of the line buffer.
		Space HeadersSpace
		// Default headers are included into every response implicitly, unless explicitly
		// set by the handler.
		Default map[string]string `test:"nullable"`
		// CookiesPrealloc defines the initial cookie.Jar capacity.
		CookiesPrealloc int
	}

	Body struct {
		// MemoryThreshold is the maximal size of a body, which is kept in memory. Bodies
		// of unknown length (chunked) and bodies whose declared length isn't less than the
		// threshold are spilled into a temporary file.
		MemoryThreshold int64
		// TempDir is a directory the temporary files are created in.
		TempDir string
	}

	NET struct {
		// ReadBufferSize is a size of buffer in bytes which will be used to read from
		// socket.
		ReadBufferSize int
		// ReadTimeout controls the maximal lifetime of IDLE connections. If no data was
		// received in this period of time, it'll be closed. Every received byte resets
		// the deadline.
		ReadTimeout time.Duration
		// AcceptLoopInterruptPeriod controls how often will the Accept() call be interrupted
		// in order to check whether it's time to stop. Defaults to 5 seconds.
		AcceptLoopInterruptPeriod time.Duration
	}

	Log struct {
		// Access enables the access log, written in the combined log format every time
		// a response is done.
		Access bool
		// Prefix is the prefix of every logged line.
		Prefix string `test:"nullable"`
	}
)

// Config holds settings used across the channel, mainly restrictions, limitations
// and pre-allocations.
//
// You must ALWAYS modify defaults (returned via Default()) and NEVER try to initialize the
// config manually, because most likely this will result in ambiguous errors.
type Config struct {
	URI     URI
	Headers Headers
	Body    Body
	NET     NET
	Log     Log
}

// Default returns default config. Those are initially well-balanced, however maximal defaults
// are pretty permitting.
func Default() *Config {
	return &Config{
		URI: URI{
			ParamsPrealloc: 5,
		},
		Headers: Headers{
			Number: HeadersNumber{
				Default: 10,
				Maximal: 500,
			},
			Space: HeadersSpace{
				Default: 1 * 1024,
				// 16kb for the whole head of a request. There might be extremely long cookies,
				// however most of the web-entities limit it to 8kb anyway.
				Maximal: 16 * 1024,
			},
			Default:         make(map[string]string),
			CookiesPrealloc: 5,
		},
		Body: Body{
			MemoryThreshold: 100_000,
			TempDir:         os.TempDir(),
		},
		NET: NET{
			ReadBufferSize:            4 * 1024,
			ReadTimeout:               60 * time.Second,
			AcceptLoopInterruptPeriod: 5 * time.Second,
		},
		Log: Log{
			Access: true,
		},
	}
}
