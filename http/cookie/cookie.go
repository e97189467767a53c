package cookie

import (
	"errors"
	"time"

	"golang.org/x/net/http/httpguts"
)

var (
	ErrBadName  = errors.New("cookie name must be a non-empty token")
	ErrBadValue = errors.New("cookie value contains prohibited characters")
)

// Cookie is the one sent to the client via the Set-Cookie response header.
type Cookie struct {
	Name    string
	Value   string
	Path    string
	Domain  string
	Expires time.Time
	// MaxAge is the lifetime in seconds. Zero means the attribute is omitted, any negative
	// value results in Max-Age=0, so the client drops the cookie immediately.
	MaxAge   int
	SameSite SameSite
	Secure   bool
	HttpOnly bool
}

func New(name, value string) Cookie {
	return Cookie{Name: name, Value: value}
}

// Removal returns the cookie telling the client to drop the cookie of the name.
func Removal(name string) Cookie {
	return Cookie{
		Name:    name,
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	}
}

// Valid checks the name and the value against RFC 6265 grammar. Invalid cookies aren't
// sent at all.
func (c Cookie) Valid() error {
	if !httpguts.ValidHeaderFieldName(c.Name) {
		return ErrBadName
	}

	value := c.Value
	if len(value) > 1 && value[0] == '"' && value[len(value)-1] == '"' {
		value = value[1 : len(value)-1]
	}

	for i := 0; i < len(value); i++ {
		if !isCookieOctet(value[i]) {
			return ErrBadValue
		}
	}

	return nil
}

// isCookieOctet excludes CTLs, whitespace, DQUOTE, comma, semicolon and backslash.
func isCookieOctet(c byte) bool {
	return c == 0x21 || (c >= 0x23 && c <= 0x2b) || (c >= 0x2d && c <= 0x3a) ||
		(c >= 0x3c && c <= 0x5b) || (c >= 0x5d && c <= 0x7e)
}

// Builder is a chainable constructor of cookies.
type Builder struct {
	cookie Cookie
}

func Build(name, value string) Builder {
	return Builder{New(name, value)}
}

func (b Builder) Path(path string) Builder {
	b.cookie.Path = path
	return b
}

func (b Builder) Domain(domain string) Builder {
	b.cookie.Domain = domain
	return b
}

func (b Builder) Expires(expires time.Time) Builder {
	b.cookie.Expires = expires
	return b
}

// MaxAge sets the lifetime in seconds, see Cookie.MaxAge.
func (b Builder) MaxAge(maxAge int) Builder {
	b.cookie.MaxAge = maxAge
	return b
}

func (b Builder) SameSite(sameSite SameSite) Builder {
	b.cookie.SameSite = sameSite
	return b
}

func (b Builder) Secure(secure bool) Builder {
	b.cookie.Secure = secure
	return b
}

func (b Builder) HttpOnly(httpOnly bool) Builder {
	b.cookie.HttpOnly = httpOnly
	return b
}

func (b Builder) Cookie() Cookie {
	return b.cookie
}

type SameSite = string

const (
	SameSiteLax    SameSite = "Lax"
	SameSiteStrict SameSite = "Strict"
	SameSiteNone   SameSite = "None"
)
