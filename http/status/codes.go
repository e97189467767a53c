package status

import "strconv"

type (
	Code   uint16
	Status string
)

// HTTP status codes as registered with IANA.
// See: https://www.iana.org/assignments/http-status-codes/http-status-codes.xhtml
const (
	Continue           Code = 100 // RFC 9110, 15.2.1
	SwitchingProtocols Code = 101 // RFC 9110, 15.2.2
	Processing         Code = 102 // RFC 2518, 10.1
	EarlyHints         Code = 103 // RFC 8297

	OK                   Code = 200 // RFC 9110, 15.3.1
	Created              Code = 201 // RFC 9110, 15.3.2
	Accepted             Code = 202 // RFC 9110, 15.3.3
	NonAuthoritativeInfo Code = 203 // RFC 9110, 15.3.4
	NoContent            Code = 204 // RFC 9110, 15.3.5
	ResetContent         Code = 205 // RFC 9110, 15.3.6
	PartialContent       Code = 206 // RFC 9110, 15.3.7
	MultiStatus          Code = 207 // RFC 4918, 11.1
	AlreadyReported      Code = 208 // RFC 5842, 7.1
	IMUsed               Code = 226 // RFC 3229, 10.4.1

	MultipleChoices   Code = 300 // RFC 9110, 15.4.1
	MovedPermanently  Code = 301 // RFC 9110, 15.4.2
	Found             Code = 302 // RFC 9110, 15.4.3
	SeeOther          Code = 303 // RFC 9110, 15.4.4
	NotModified       Code = 304 // RFC 9110, 15.4.5
	UseProxy          Code = 305 // RFC 9110, 15.4.6
	_                 Code = 306 // RFC 9110, 15.4.7 (Unused)
	TemporaryRedirect Code = 307 // RFC 9110, 15.4.8
	PermanentRedirect Code = 308 // RFC 9110, 15.4.9

	BadRequest                   Code = 400 // RFC 9110, 15.5.1
	Unauthorized                 Code = 401 // RFC 9110, 15.5.2
	PaymentRequired              Code = 402 // RFC 9110, 15.5.3
	Forbidden                    Code = 403 // RFC 9110, 15.5.4
	NotFound                     Code = 404 // RFC 9110, 15.5.5
	MethodNotAllowed             Code = 405 // RFC 9110, 15.5.6
	NotAcceptable                Code = 406 // RFC 9110, 15.5.7
	ProxyAuthRequired            Code = 407 // RFC 9110, 15.5.8
	RequestTimeout               Code = 408 // RFC 9110, 15.5.9
	Conflict                     Code = 409 // RFC 9110, 15.5.10
	Gone                         Code = 410 // RFC 9110, 15.5.11
	LengthRequired               Code = 411 // RFC 9110, 15.5.12
	PreconditionFailed           Code = 412 // RFC 9110, 15.5.13
	RequestEntityTooLarge        Code = 413 // RFC 9110, 15.5.14
	RequestURITooLong            Code = 414 // RFC 9110, 15.5.15
	UnsupportedMediaType         Code = 415 // RFC 9110, 15.5.16
	RequestedRangeNotSatisfiable Code = 416 // RFC 9110, 15.5.17
	ExpectationFailed            Code = 417 // RFC 9110, 15.5.18
	Teapot                       Code = 418 // RFC 9110, 15.5.19 (Unused)
	MisdirectedRequest           Code = 421 // RFC 9110, 15.5.20
	UnprocessableEntity          Code = 422 // RFC 9110, 15.5.21
	Locked                       Code = 423 // RFC 4918, 11.3
	FailedDependency             Code = 424 // RFC 4918, 11.4
	TooEarly                     Code = 425 // RFC 8470, 5.2.
	UpgradeRequired              Code = 426 // RFC 9110, 15.5.22
	PreconditionRequired         Code = 428 // RFC 6585, 3
	TooManyRequests              Code = 429 // RFC 6585, 4
	RequestHeaderFieldsTooLarge  Code = 431 // RFC 6585, 5
	UnavailableForLegalReasons   Code = 451 // RFC 7725, 3

	InternalServerError           Code = 500 // RFC 9110, 15.6.1
	NotImplemented                Code = 501 // RFC 9110, 15.6.2
	BadGateway                    Code = 502 // RFC 9110, 15.6.3
	ServiceUnavailable            Code = 503 // RFC 9110, 15.6.4
	GatewayTimeout                Code = 504 // RFC 9110, 15.6.5
	HTTPVersionNotSupported       Code = 505 // RFC 9110, 15.6.6
	VariantAlsoNegotiates         Code = 506 // RFC 2295, 8.1
	InsufficientStorage           Code = 507 // RFC 4918, 11.5
	LoopDetected                  Code = 508 // RFC 5842, 7.2
	NotExtended                   Code = 510 // RFC 2774, 7
	NetworkAuthenticationRequired Code = 511 // RFC 6585, 6
)

const maxCode = 600

var (
	texts       [maxCode]Status
	stringCodes [maxCode]string
)

// KnownCodes enumerates every code having a registered reason phrase.
var KnownCodes = []Code{
	Continue,
	SwitchingProtocols,
	Processing,
	EarlyHints,
	OK,
	Created,
	Accepted,
	NonAuthoritativeInfo,
	NoContent,
	ResetContent,
	PartialContent,
	MultiStatus,
	AlreadyReported,
	IMUsed,
	MultipleChoices,
	MovedPermanently,
	Found,
	SeeOther,
	NotModified,
	UseProxy,
	TemporaryRedirect,
	PermanentRedirect,
	BadRequest,
	Unauthorized,
	PaymentRequired,
	Forbidden,
	NotFound,
	MethodNotAllowed,
	NotAcceptable,
	ProxyAuthRequired,
	RequestTimeout,
	Conflict,
	Gone,
	LengthRequired,
	PreconditionFailed,
	RequestEntityTooLarge,
	RequestURITooLong,
	UnsupportedMediaType,
	RequestedRangeNotSatisfiable,
	ExpectationFailed,
	Teapot,
	MisdirectedRequest,
	UnprocessableEntity,
	Locked,
	FailedDependency,
	TooEarly,
	UpgradeRequired,
	PreconditionRequired,
	TooManyRequests,
	RequestHeaderFieldsTooLarge,
	UnavailableForLegalReasons,
	InternalServerError,
	NotImplemented,
	BadGateway,
	ServiceUnavailable,
	GatewayTimeout,
	HTTPVersionNotSupported,
	VariantAlsoNegotiates,
	InsufficientStorage,
	LoopDetected,
	NotExtended,
	NetworkAuthenticationRequired,
}

func init() {
	texts[Continue] = "Continue"
	texts[SwitchingProtocols] = "Switching Protocols"
	texts[Processing] = "Processing"
	texts[EarlyHints] = "Early Hints"
	texts[OK] = "OK"
	texts[Created] = "Created"
	texts[Accepted] = "Accepted"
	texts[NonAuthoritativeInfo] = "Non-Authoritative Information"
	texts[NoContent] = "No Content"
	texts[ResetContent] = "Reset Content"
	texts[PartialContent] = "Partial Content"
	texts[MultiStatus] = "Multi-Status"
	texts[AlreadyReported] = "Already Reported"
	texts[IMUsed] = "IM Used"
	texts[MultipleChoices] = "Multiple Choices"
	texts[MovedPermanently] = "Moved Permanently"
	texts[Found] = "Found"
	texts[SeeOther] = "See Other"
	texts[NotModified] = "Not Modified"
	texts[UseProxy] = "Use Proxy"
	texts[TemporaryRedirect] = "Temporary Redirect"
	texts[PermanentRedirect] = "Permanent Redirect"
	texts[BadRequest] = "Bad Request"
	texts[Unauthorized] = "Unauthorized"
	texts[PaymentRequired] = "Payment Required"
	texts[Forbidden] = "Forbidden"
	texts[NotFound] = "Not Found"
	texts[MethodNotAllowed] = "Method Not Allowed"
	texts[NotAcceptable] = "Not Acceptable"
	texts[ProxyAuthRequired] = "Proxy Authentication Required"
	texts[RequestTimeout] = "Request Timeout"
	texts[Conflict] = "Conflict"
	texts[Gone] = "Gone"
	texts[LengthRequired] = "Length Required"
	texts[PreconditionFailed] = "Precondition Failed"
	texts[RequestEntityTooLarge] = "Request Entity Too Large"
	texts[RequestURITooLong] = "Request URI Too Long"
	texts[UnsupportedMediaType] = "Unsupported Media Type"
	texts[RequestedRangeNotSatisfiable] = "Requested Range Not Satisfiable"
	texts[ExpectationFailed] = "Expectation Failed"
	texts[Teapot] = "I'm a teapot"
	texts[MisdirectedRequest] = "Misdirected Request"
	texts[UnprocessableEntity] = "Unprocessable Entity"
	texts[Locked] = "Locked"
	texts[FailedDependency] = "Failed Dependency"
	texts[TooEarly] = "Too Early"
	texts[UpgradeRequired] = "Upgrade Required"
	texts[PreconditionRequired] = "Precondition Required"
	texts[TooManyRequests] = "Too Many Requests"
	texts[RequestHeaderFieldsTooLarge] = "Request Header Fields Too Large"
	texts[UnavailableForLegalReasons] = "Unavailable For Legal Reasons"
	texts[InternalServerError] = "Internal Server Error"
	texts[NotImplemented] = "Not Implemented"
	texts[BadGateway] = "Bad Gateway"
	texts[ServiceUnavailable] = "Service Unavailable"
	texts[GatewayTimeout] = "Gateway Timeout"
	texts[HTTPVersionNotSupported] = "HTTP Version Not Supported"
	texts[VariantAlsoNegotiates] = "Variant Also Negotiates"
	texts[InsufficientStorage] = "Insufficient Storage"
	texts[LoopDetected] = "Loop Detected"
	texts[NotExtended] = "Not Extended"
	texts[NetworkAuthenticationRequired] = "Network Authentication Required"

	for _, code := range KnownCodes {
		stringCodes[code] = strconv.Itoa(int(code))
	}
}

// Text returns a reason phrase for the HTTP status code. Unknown codes result in
// "Unknown Status Code".
func Text(code Code) Status {
	if code < maxCode && texts[code] != "" {
		return texts[code]
	}

	return "Unknown Status Code"
}

// StringCode returns the decimal representation of the code. Known codes are
// served from a table, so no allocation happens for them.
func StringCode(code Code) string {
	if code < maxCode && stringCodes[code] != "" {
		return stringCodes[code]
	}

	return strconv.Itoa(int(code))
}

// Known reports whether the code has a registered reason phrase.
func Known(code Code) bool {
	return code < maxCode && texts[code] != ""
}
