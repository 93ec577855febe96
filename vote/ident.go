/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package vote

import (
	"crypto/rand"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// DefaultCodeLength applies to session codes and reconnection tokens alike.
	DefaultCodeLength = 6

	// largest multiple of len(codeAlphabet) that fits in a byte
	codeByteLimit = 252
)

// GenerateCode returns a uniformly random string over A-Z and 0-9. It does not
// check for collisions; callers that care must do so themselves.
func GenerateCode(length int) string {
	if length <= 0 {
		length = DefaultCodeLength
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length*2)

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		for _, b := range buf {
			if b >= codeByteLimit {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out)
}

// ValidCode reports whether code is acceptable as a session key: 1 to 32
// ASCII letters or digits.
func ValidCode(code string) bool {
	if len(code) == 0 || len(code) > 32 {
		return false
	}

	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}

	return true
}
