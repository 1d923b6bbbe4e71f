package ledger

import (
	"crypto/ed25519"
)

// SignatureVerifier is the signature scheme used to authorize spending of outputs.
// Verify must be pure and must not panic; anything but true means rejection
type SignatureVerifier interface {
	Verify(publicKey, message, signature []byte) bool
}

type VerifierFunc func(publicKey, message, signature []byte) bool

func (f VerifierFunc) Verify(publicKey, message, signature []byte) bool {
	return f(publicKey, message, signature)
}

// ED25519Verifier is the default verifier
var ED25519Verifier SignatureVerifier = VerifierFunc(verifyED25519)

func verifyED25519(publicKey, message, signature []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(publicKey, message, signature)
}
