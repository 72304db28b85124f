// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package e2e

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

// agreedKeys runs a full exchange and returns both sides' keys.
func agreedKeys(t *testing.T, kdf KDF) (*SharedKey, *SharedKey) {
	t.Helper()
	alice, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	bob, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	aliceKey, err := DeriveSharedKey(alice, bob.PublicKey, kdf)
	if err != nil {
		t.Fatalf("alice DeriveSharedKey: %v", err)
	}
	t.Cleanup(func() { aliceKey.Close() })
	bobKey, err := DeriveSharedKey(bob, alice.PublicKey, kdf)
	if err != nil {
		t.Fatalf("bob DeriveSharedKey: %v", err)
	}
	t.Cleanup(func() { bobKey.Close() })
	return aliceKey, bobKey
}

func requireCryptoError(t *testing.T, err error) {
	t.Helper()
	var cryptoErr *CryptoError
	if !errors.As(err, &cryptoErr) {
		t.Fatalf("error = %v (%T), want *CryptoError", err, err)
	}
	if !errors.Is(err, ErrAuthentication) || err.Error() != "authentication failed" {
		t.Fatalf("error = %q, want authentication failed", err)
	}
}

func TestPublicKeyFormat(t *testing.T) {
	pair, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	raw, err := base64.StdEncoding.DecodeString(pair.PublicKey)
	if err != nil {
		t.Fatalf("public key is not standard base64: %v", err)
	}
	if len(raw) != 65 || raw[0] != 0x04 {
		t.Fatalf("public key is %d bytes with prefix %#x, want 65-byte uncompressed point", len(raw), raw[0])
	}
}

func TestKeyAgreementIsSymmetric(t *testing.T) {
	for _, kdf := range []KDF{KDFRaw, KDFHKDF} {
		t.Run(kdf.String(), func(t *testing.T) {
			aliceKey, bobKey := agreedKeys(t, kdf)
			if !aliceKey.Equal(bobKey) {
				t.Fatal("peers derived different keys")
			}
		})
	}
}

func TestKDFsProduceDifferentKeys(t *testing.T) {
	alice, _ := GenerateKeyPair()
	bob, _ := GenerateKeyPair()
	raw, err := DeriveSharedKey(alice, bob.PublicKey, KDFRaw)
	if err != nil {
		t.Fatal(err)
	}
	defer raw.Close()
	expanded, err := DeriveSharedKey(alice, bob.PublicKey, KDFHKDF)
	if err != nil {
		t.Fatal(err)
	}
	defer expanded.Close()
	if raw.Equal(expanded) {
		t.Fatal("raw and HKDF keys are identical")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	aliceKey, bobKey := agreedKeys(t, KDFRaw)

	for _, message := range []string{"hej med dig", "", "æøå 🔐", strings.Repeat("x", 64<<10)} {
		blob, err := Encrypt(aliceKey, message)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		got, err := Decrypt(bobKey, blob)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if got != message {
			t.Fatalf("Decrypt = %q, want %q", got, message)
		}
	}
}

func TestEncryptUsesFreshNonces(t *testing.T) {
	aliceKey, _ := agreedKeys(t, KDFRaw)
	seen := make(map[string]bool)
	for range 64 {
		blob, err := Encrypt(aliceKey, "same message")
		if err != nil {
			t.Fatal(err)
		}
		raw, _ := base64.StdEncoding.DecodeString(blob)
		nonce := string(raw[:NonceSize])
		if seen[nonce] {
			t.Fatal("nonce reused")
		}
		seen[nonce] = true
	}
}

func TestBlobFraming(t *testing.T) {
	aliceKey, _ := agreedKeys(t, KDFRaw)
	blob, err := Encrypt(aliceKey, "abc")
	if err != nil {
		t.Fatal(err)
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		t.Fatal(err)
	}
	if want := NonceSize + 3 + 16; len(raw) != want {
		t.Fatalf("blob is %d bytes, want nonce + plaintext + tag = %d", len(raw), want)
	}

	// The layout is what a WebCrypto peer would open: iv first, then
	// ciphertext with the tag appended.
	block, _ := aes.NewCipher(aliceKey.buffer.Bytes())
	gcm, _ := cipher.NewGCM(block)
	plaintext, err := gcm.Open(nil, raw[:NonceSize], raw[NonceSize:], nil)
	if err != nil || string(plaintext) != "abc" {
		t.Fatalf("independent GCM open = %q, %v", plaintext, err)
	}
}

func TestDecryptRejectsTampering(t *testing.T) {
	aliceKey, bobKey := agreedKeys(t, KDFRaw)
	blob, err := Encrypt(aliceKey, "attack at dawn")
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := base64.StdEncoding.DecodeString(blob)

	for _, offset := range []int{0, NonceSize, len(raw) - 1} {
		flipped := append([]byte(nil), raw...)
		flipped[offset] ^= 0x01
		got, err := Decrypt(bobKey, base64.StdEncoding.EncodeToString(flipped))
		requireCryptoError(t, err)
		if got != "" {
			t.Fatalf("tampered decrypt leaked %q", got)
		}
	}
}

func TestDecryptRejectsMalformedBlobs(t *testing.T) {
	_, bobKey := agreedKeys(t, KDFRaw)
	for name, blob := range map[string]string{
		"not base64": "%%%not-base64%%%",
		"empty":      "",
		"too short":  base64.StdEncoding.EncodeToString(make([]byte, NonceSize+15)),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decrypt(bobKey, blob)
			requireCryptoError(t, err)
		})
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	aliceKey, _ := agreedKeys(t, KDFRaw)
	_, strangerKey := agreedKeys(t, KDFRaw)

	blob, err := Encrypt(aliceKey, "for bob only")
	if err != nil {
		t.Fatal(err)
	}
	_, err = Decrypt(strangerKey, blob)
	requireCryptoError(t, err)
}

func TestClosedKeyRefusesUse(t *testing.T) {
	aliceKey, bobKey := agreedKeys(t, KDFRaw)

	blob, err := Encrypt(aliceKey, "before")
	if err != nil {
		t.Fatal(err)
	}
	if err := aliceKey.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := bobKey.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := bobKey.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if sealed, err := Encrypt(aliceKey, "after"); !errors.Is(err, ErrKeyClosed) || sealed != "" {
		t.Errorf("Encrypt after Close = (%q, %v), want ErrKeyClosed", sealed, err)
	}
	plaintext, err := Decrypt(bobKey, blob)
	if !errors.Is(err, ErrKeyClosed) {
		t.Errorf("Decrypt after Close error = %v, want ErrKeyClosed", err)
	}
	if plaintext != "" {
		t.Errorf("Decrypt after Close returned plaintext %q", plaintext)
	}
	var cryptoErr *CryptoError
	if errors.As(err, &cryptoErr) {
		t.Error("closed-key error should not be a CryptoError")
	}
}

func TestDeriveSharedKeyRejectsBadPublicKeys(t *testing.T) {
	pair, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	offCurve := make([]byte, 65)
	offCurve[0] = 0x04
	offCurve[64] = 0x01

	for name, remote := range map[string]string{
		"not base64": "!!!",
		"empty":      "",
		"wrong size": base64.StdEncoding.EncodeToString([]byte("short")),
		"off curve":  base64.StdEncoding.EncodeToString(offCurve),
	} {
		t.Run(name, func(t *testing.T) {
			if key, err := DeriveSharedKey(pair, remote, KDFRaw); err == nil {
				key.Close()
				t.Fatal("DeriveSharedKey accepted an invalid public key")
			}
		})
	}
}

func TestParseKDF(t *testing.T) {
	tests := []struct {
		input   string
		want    KDF
		wantErr bool
	}{
		{"raw", KDFRaw, false},
		{"", KDFRaw, false},
		{"hkdf", KDFHKDF, false},
		{"scrypt", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseKDF(tt.input)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseKDF(%q) = %v, %v", tt.input, got, err)
		}
	}
}
