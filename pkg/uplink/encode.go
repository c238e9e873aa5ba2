package uplink

import (
	"regexp"
	"strings"
)

// encodePackage percent-encodes a package name for use as a single URL path
// segment. A leading scoped "@" (encoded %40) is restored to its literal
// form, so "@scope/pkg" becomes "@scope%2Fpkg".
func encodePackage(name string) string {
	escaped := percentEncode(name)
	if strings.HasPrefix(escaped, "%40") {
		return "@" + escaped[len("%40"):]
	}
	return escaped
}

const upperhex = "0123456789ABCDEF"

// percentEncode escapes every byte outside the unreserved set, matching the
// encoding npm clients apply to package names.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0xf])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '~', '!', '*', '\'', '(', ')':
		return true
	}
	return false
}

var dupSlashes = regexp.MustCompile(`([^:])/{2,}`)

// joinPath appends a path to the base URL, collapsing duplicate slashes
// everywhere except after the scheme separator.
func joinPath(base, path string) string {
	return dupSlashes.ReplaceAllString(base+"/"+path, "$1/")
}
