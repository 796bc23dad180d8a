package entity

import (
	"strconv"
	"strings"
)

// Placeholder builds the wire-format token that stands in for the n-th
// entity of the given type within one cloak call:
// {start}{TYPE_NAME}_{n}{end}.
func Placeholder(start string, t Type, n int, end string) string {
	var b strings.Builder
	b.Grow(len(start) + len(t) + 1 + len(end) + 2)
	b.WriteString(start)
	b.WriteString(string(t))
	b.WriteByte('_')
	b.WriteString(strconv.Itoa(n))
	b.WriteString(end)
	return b.String()
}

// ParsePlaceholder splits a delimiter-wrapped token into its entity type and
// counter. It reports false when the token is not a well-formed placeholder
// (wrong delimiters, unknown type name, or a non-decimal counter).
func ParsePlaceholder(token, start, end string) (Type, int, bool) {
	if len(token) <= len(start)+len(end) {
		return "", 0, false
	}
	if !strings.HasPrefix(token, start) || !strings.HasSuffix(token, end) {
		return "", 0, false
	}
	inner := token[len(start) : len(token)-len(end)]
	sep := strings.LastIndexByte(inner, '_')
	if sep < 0 {
		return "", 0, false
	}
	t := Type(inner[:sep])
	if !t.Valid() {
		return "", 0, false
	}
	n, err := strconv.Atoi(inner[sep+1:])
	if err != nil || n < 0 || (len(inner[sep+1:]) > 1 && inner[sep+1] == '0') {
		return "", 0, false
	}
	return t, n, true
}
