// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package e2e

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"

	"github.com/phrasepeer/phrasepeer/lib/config"
	"github.com/phrasepeer/phrasepeer/lib/secret"
)

const (
	// KeySize is the AES-256 key length.
	KeySize = 32

	// NonceSize is the AES-GCM nonce length.
	NonceSize = 12

	// hkdfInfo binds HKDF output to this protocol.
	hkdfInfo = "phrasepeer.channel.v1"
)

// KDF selects how the ECDH shared secret becomes the AES key.
type KDF int

const (
	// KDFRaw uses the 32-byte ECDH x-coordinate as the key. WebCrypto's
	// deriveKey(ECDH -> AES-GCM 256) does the same, so this is the mode
	// that talks to browser peers.
	KDFRaw KDF = iota

	// KDFHKDF runs the secret through HKDF-SHA256. Both peers must
	// select it.
	KDFHKDF
)

func (k KDF) String() string {
	switch k {
	case KDFRaw:
		return config.KDFRaw
	case KDFHKDF:
		return config.KDFHKDF
	}
	return fmt.Sprintf("KDF(%d)", int(k))
}

// ParseKDF maps a configuration value to a KDF.
func ParseKDF(name string) (KDF, error) {
	switch name {
	case config.KDFRaw, "":
		return KDFRaw, nil
	case config.KDFHKDF:
		return KDFHKDF, nil
	}
	return 0, fmt.Errorf("unknown key derivation %q", name)
}

// ErrAuthentication is the cause inside every CryptoError from Decrypt.
var ErrAuthentication = errors.New("authentication failed")

// ErrKeyClosed is returned by Encrypt and Decrypt after the key's Close.
var ErrKeyClosed = errors.New("shared key is closed")

// CryptoError reports a message that could not be decrypted: bad
// encoding, truncation, tampering, or the wrong key. No plaintext
// accompanies it.
type CryptoError struct {
	Err error
}

func (e *CryptoError) Error() string { return e.Err.Error() }

func (e *CryptoError) Unwrap() error { return e.Err }

// KeyPair is an ephemeral P-256 key pair generated for one
// negotiation. The private half never leaves the process.
type KeyPair struct {
	private *ecdh.PrivateKey

	// PublicKey is the base64 (standard, padded) uncompressed point,
	// 65 bytes before encoding.
	PublicKey string
}

// GenerateKeyPair returns a fresh key pair.
func GenerateKeyPair() (*KeyPair, error) {
	private, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating P-256 key: %w", err)
	}
	return &KeyPair{
		private:   private,
		PublicKey: base64.StdEncoding.EncodeToString(private.PublicKey().Bytes()),
	}, nil
}

// SharedKey is the AES-256-GCM key both peers derive. The raw key
// bytes live in a secret.Buffer. The expanded AES key schedule held by
// the cipher is ordinary heap memory; Close wipes the buffer and drops
// the cipher so the schedule becomes unreachable, but the runtime does
// not zero it.
type SharedKey struct {
	mu     sync.RWMutex
	buffer *secret.Buffer
	aead   cipher.AEAD
}

// DeriveSharedKey combines pair's private key with the peer's base64
// public key. Both peers derive the same key from each other's public
// halves.
func DeriveSharedKey(pair *KeyPair, remotePublicKey string, kdf KDF) (*SharedKey, error) {
	raw, err := base64.StdEncoding.DecodeString(remotePublicKey)
	if err != nil {
		return nil, fmt.Errorf("decoding remote public key: %w", err)
	}
	remote, err := ecdh.P256().NewPublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("importing remote public key: %w", err)
	}
	shared, err := pair.private.ECDH(remote)
	if err != nil {
		return nil, fmt.Errorf("computing ECDH: %w", err)
	}
	defer secret.Zero(shared)

	keyBytes := make([]byte, KeySize)
	switch kdf {
	case KDFRaw:
		copy(keyBytes, shared)
	case KDFHKDF:
		if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, []byte(hkdfInfo)), keyBytes); err != nil {
			return nil, fmt.Errorf("expanding key: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown key derivation %v", kdf)
	}

	buffer, err := secret.NewFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("protecting key: %w", err)
	}
	block, err := aes.NewCipher(buffer.Bytes())
	if err != nil {
		buffer.Close()
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		buffer.Close()
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &SharedKey{buffer: buffer, aead: aead}, nil
}

// Equal reports whether two keys are identical, in constant time.
func (k *SharedKey) Equal(other *SharedKey) bool {
	return k.buffer.Equal(other.buffer)
}

// Close wipes the key bytes and drops the cipher. Encrypt and Decrypt
// return ErrKeyClosed afterwards. Close is idempotent.
func (k *SharedKey) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.aead = nil
	return k.buffer.Close()
}

// current returns the AEAD, or ErrKeyClosed. Callers hold k.mu for
// reading.
func (k *SharedKey) current() (cipher.AEAD, error) {
	if k.aead == nil {
		return nil, ErrKeyClosed
	}
	return k.aead, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns
// base64(nonce || ciphertext || tag).
func Encrypt(key *SharedKey, plaintext string) (string, error) {
	key.mu.RLock()
	defer key.mu.RUnlock()
	aead, err := key.current()
	if err != nil {
		return "", err
	}
	sealed := make([]byte, NonceSize, NonceSize+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(sealed[:NonceSize]); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed = aead.Seal(sealed, sealed[:NonceSize], []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Every failure on an open key is a
// *CryptoError wrapping ErrAuthentication; a closed key yields
// ErrKeyClosed.
func Decrypt(key *SharedKey, blob string) (string, error) {
	key.mu.RLock()
	defer key.mu.RUnlock()
	aead, err := key.current()
	if err != nil {
		return "", err
	}
	sealed, err := base64.StdEncoding.DecodeString(blob)
	if err != nil || len(sealed) < NonceSize+aead.Overhead() {
		return "", &CryptoError{Err: ErrAuthentication}
	}
	plaintext, err := aead.Open(nil, sealed[:NonceSize], sealed[NonceSize:], nil)
	if err != nil {
		return "", &CryptoError{Err: ErrAuthentication}
	}
	return string(plaintext), nil
}
