package status

import "strconv"

type Code uint16

// Only the codes the connection core and the bundled filters may produce are listed. Any
// other code is still valid in a response status line, see Line.
const (
	Continue Code = 100

	OK        Code = 200
	Created   Code = 201
	NoContent Code = 204

	MovedPermanently Code = 301
	Found            Code = 302
	NotModified      Code = 304

	BadRequest            Code = 400
	Forbidden             Code = 403
	NotFound              Code = 404
	MethodNotAllowed      Code = 405
	RequestTimeout        Code = 408
	LengthRequired        Code = 411
	RequestEntityTooLarge Code = 413
	UnsupportedMediaType  Code = 415
	HeaderFieldsTooLarge  Code = 431

	InternalServerError Code = 500
	NotImplemented      Code = 501
	ServiceUnavailable  Code = 503
)

var texts = map[Code]string{
	Continue:              "Continue",
	OK:                    "OK",
	Created:               "Created",
	NoContent:             "No Content",
	MovedPermanently:      "Moved Permanently",
	Found:                 "Found",
	NotModified:           "Not Modified",
	BadRequest:            "Bad Request",
	Forbidden:             "Forbidden",
	NotFound:              "Not Found",
	MethodNotAllowed:      "Method Not Allowed",
	RequestTimeout:        "Request Timeout",
	LengthRequired:        "Length Required",
	RequestEntityTooLarge: "Request Entity Too Large",
	UnsupportedMediaType:  "Unsupported Media Type",
	HeaderFieldsTooLarge:  "Request Header Fields Too Large",
	InternalServerError:   "Internal Server Error",
	NotImplemented:        "Not Implemented",
	ServiceUnavailable:    "Service Unavailable",
}

// Text returns the reason phrase for the code, or "Unknown Status Code"
func Text(code Code) string {
	if text, ok := texts[code]; ok {
		return text
	}

	return "Unknown Status Code"
}

// Line renders the status token as it appears after the protocol in the response line,
// e.g. "404 Not Found".
func Line(code Code) string {
	return strconv.Itoa(int(code)) + " " + Text(code)
}
