package cookie

import (
	"strings"

	"github.com/indigo-web/channel/kv"
)

// Jar is a key-value storage for cookies. Key-value pairs consists of strings,
// not cookie.Cookie, as it would lead to space wasting and require a separate
// data structure
type Jar = *kv.Storage

func NewJar() Jar {
	return kv.New()
}

func NewJarPrealloc(n int) Jar {
	return kv.NewPrealloc(n)
}

// Parse extracts cookies, received from a user-agent, into the jar. The value is
// split by semicolons, every part is stripped off its leading whitespace and split
// by the first equality sign. Parts having no equality sign are skipped silently.
// Values aren't unquoted and keep their trailing whitespace. A cookie seen again
// overrides the previous value. So the function isn't applicable for Set-Cookie values
func Parse(jar Jar, data string) {
	for len(data) > 0 {
		var part string
		if semicolon := strings.IndexByte(data, ';'); semicolon != -1 {
			part, data = data[:semicolon], data[semicolon+1:]
		} else {
			part, data = data, ""
		}

		part = strings.TrimLeft(part, " \t")
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}

		jar.Set(key, value)
	}
}
