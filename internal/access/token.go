package access

import "crypto/rand"

// TokenLength is the number of characters in a link token.
const TokenLength = 8

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// TokenGenerator draws a candidate link token.
type TokenGenerator func() (string, error)

// RandomToken draws TokenLength characters uniformly from [a-z0-9].
func RandomToken() (string, error) {
	out := make([]byte, 0, TokenLength)
	buf := make([]byte, TokenLength*2)
	for len(out) < TokenLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			// 252 is the largest multiple of 36 below 256.
			if b >= 252 {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == TokenLength {
				break
			}
		}
	}
	return string(out), nil
}

// ValidToken reports whether s has the shape of a link token.
func ValidToken(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
