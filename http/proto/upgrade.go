package proto

// FromALPN maps a protocol identifier negotiated via TLS ALPN to the protocol
// enum. Identifiers are case-sensitive, as RFC 7301 defines them as octet
// sequences.
func FromALPN(name string) Protocol {
	switch name {
	case "http/1.0":
		return HTTP10
	case "http/1.1":
		return HTTP11
	case "h2", "h2c":
		return HTTP2
	}

	return Unknown
}
