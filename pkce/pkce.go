// Package pkce implements Proof Key for Code Exchange (RFC 7636)
// challenge verification for the authorization code flow.
package pkce

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// Method identifies how a code challenge was derived from its verifier.
type Method string

const (
	// MethodS256 hashes the verifier with SHA-256 and base64url-encodes
	// the digest without padding. Required for public clients.
	MethodS256 Method = "S256"

	// MethodPlain sends the verifier as the challenge unchanged. Kept
	// for compatibility; callers should flag its use as a weaker mode.
	MethodPlain Method = "plain"
)

// Verify reports whether codeVerifier satisfies the stored codeChallenge
// under the given method. Unknown methods fail closed. Comparisons are
// constant time so the result leaks nothing about how close a guess was.
func Verify(codeVerifier, codeChallenge string, method Method) bool {
	switch method {
	case MethodS256:
		return subtle.ConstantTimeCompare([]byte(Challenge(codeVerifier)), []byte(codeChallenge)) == 1
	case MethodPlain:
		return subtle.ConstantTimeCompare([]byte(codeVerifier), []byte(codeChallenge)) == 1
	}
	return false
}

// Challenge computes the S256 challenge for a verifier.
func Challenge(codeVerifier string) string {
	digest := sha256.Sum256([]byte(codeVerifier))
	return base64.RawURLEncoding.EncodeToString(digest[:])
}

// ValidMethod reports whether method names a supported challenge method.
func ValidMethod(method Method) bool {
	return method == MethodS256 || method == MethodPlain
}
