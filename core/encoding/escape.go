// Package encoding provides shared text encoding and escaping utilities.
package encoding

import (
	"strings"
)

// LineBreakToken stands in for a CR LF pair in document text.
const LineBreakToken = "[0D0A]"

const crlf = "\r\n"

// EscapeLineBreaks replaces every CR LF pair with LineBreakToken.
func EscapeLineBreaks(s string) string {
	return strings.ReplaceAll(s, crlf, LineBreakToken)
}

// UnescapeLineBreaks reverses EscapeLineBreaks. Text that already held a
// literal "[0D0A]" before escaping does not survive the round trip.
func UnescapeLineBreaks(s string) string {
	return strings.ReplaceAll(s, LineBreakToken, crlf)
}

// xmlTextReplacer escapes the basic XML entities for text content.
// A bare CR is written as a character reference so parsers don't fold it
// into LF.
var xmlTextReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\r", "&#xD;",
)

// EscapeXMLText escapes text for use as XML element content.
func EscapeXMLText(s string) string {
	return xmlTextReplacer.Replace(s)
}
