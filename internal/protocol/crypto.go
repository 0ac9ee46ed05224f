package protocol

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
)

// Key exchange: the client opens with an RSA-OAEP public key, the
// server answers with a fresh 32-byte session key sealed under it, and
// from then on both ends run AES-256-GCM envelopes with that key.

const SessionKeySize = 32

var ErrShortCiphertext = errors.New("ciphertext shorter than nonce")

// NewClientKey generates the client half of the key exchange.
func NewClientKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, 2048)
}

// MarshalPublicKey encodes an RSA public key as PKIX DER for the
// PublicKey packet body.
func MarshalPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pub)
}

// SealSessionKey is the server side: generate a session key and
// encrypt it under the client's public key.
func SealSessionKey(pubDER []byte) (key, sealed []byte, err error) {
	parsed, err := x509.ParsePKIXPublicKey(pubDER)
	if err != nil {
		return nil, nil, fmt.Errorf("parse client key: %w", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, nil, errors.New("client key is not RSA")
	}
	if pub.Size() < 256 {
		return nil, nil, errors.New("client key too small")
	}

	key = make([]byte, SessionKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, nil, err
	}
	sealed, err = rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return nil, nil, err
	}
	return key, sealed, nil
}

// OpenSessionKey is the client side of SealSessionKey.
func OpenSessionKey(priv *rsa.PrivateKey, sealed []byte) ([]byte, error) {
	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("open session key: %w", err)
	}
	if len(key) != SessionKeySize {
		return nil, errors.New("bad session key size")
	}
	return key, nil
}

// Envelope seals and opens packet bodies with AES-256-GCM. Safe for
// concurrent use; each Seal draws a fresh random nonce.
type Envelope struct {
	aead cipher.AEAD
}

func NewEnvelope(key []byte) (*Envelope, error) {
	if len(key) != SessionKeySize {
		return nil, errors.New("session key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Envelope{aead: aead}, nil
}

// Seal returns nonce || ciphertext.
func (e *Envelope) Seal(plain []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return e.aead.Seal(nonce, nonce, plain, nil), nil
}

func (e *Envelope) Open(sealed []byte) ([]byte, error) {
	ns := e.aead.NonceSize()
	if len(sealed) < ns {
		return nil, ErrShortCiphertext
	}
	return e.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
}
