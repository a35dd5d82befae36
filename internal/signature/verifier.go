// Package signature authenticates inbound webhook bodies with a keyed MAC.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"strings"
)

// Algorithm selects the digest used by a webhook provider. GitHub signs with
// SHA-256, the render provider with SHA-512.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
)

// noSecretSentinel is what the render provider puts in the signature header
// when the sending side has no secret configured. It must never verify.
const noSecretSentinel = "NO_SECRET_PROVIDED"

func (a Algorithm) newHash() func() hash.Hash {
	if a == SHA512 {
		return sha512.New
	}
	return sha256.New
}

// Verify reports whether header carries a valid MAC of rawBody under secret.
// It fails closed: a missing header, missing secret, the provider's no-secret
// sentinel, or a digest of the wrong length all return false. The comparison
// over equal-length digests is constant time. Verify is pure; callers own
// logging of failures.
func Verify(rawBody []byte, header, secret string, alg Algorithm) bool {
	if header == "" || secret == "" || header == noSecretSentinel {
		return false
	}

	// Accept an "sha256=<hex>" style prefix; a bare hex digest is also fine.
	if scheme, rest, ok := strings.Cut(header, "="); ok {
		if !strings.EqualFold(scheme, string(alg)) {
			return false
		}
		header = rest
	}

	got, err := hex.DecodeString(header)
	if err != nil {
		return false
	}

	mac := hmac.New(alg.newHash(), []byte(secret))
	mac.Write(rawBody)
	want := mac.Sum(nil)

	if len(got) != len(want) {
		return false
	}
	return hmac.Equal(got, want)
}
