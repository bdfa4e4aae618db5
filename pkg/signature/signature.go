/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: signature.go
Description: Detect-It-Easy style signature text. Printable runs long enough are kept
as quoted text, everything else is written as uppercase hex pairs.
*/

package signature

import (
	"fmt"
	"strings"
)

// DefaultAnsiMin is the shortest printable run rendered as text
const DefaultAnsiMin = 2

// printable reports whether b may appear inside a quoted text run
func printable(b byte) bool {
	return b >= 0x20 && b < 0x7F && b != '\'' && b != '"'
}

// Encode renders bytes as a DIE signature string such as "AA'RIFF'04".
// Printable runs shorter than ansiMin are written as hex.
func Encode(bs []byte, ansiMin int) string {
	var sb strings.Builder
	var text []byte

	flush := func() {
		if len(text) >= ansiMin {
			sb.WriteByte('\'')
			sb.Write(text)
			sb.WriteByte('\'')
		} else {
			for _, c := range text {
				fmt.Fprintf(&sb, "%02X", c)
			}
		}
		text = text[:0]
	}

	sb.WriteByte('"')
	for _, b := range bs {
		if printable(b) {
			text = append(text, b)
			continue
		}
		flush()
		fmt.Fprintf(&sb, "%02X", b)
	}
	flush()
	sb.WriteByte('"')

	return strings.ReplaceAll(sb.String(), "''", "")
}

// Hex renders bytes as plain uppercase hex pairs
func Hex(bs []byte) string {
	return fmt.Sprintf("%X", bs)
}
