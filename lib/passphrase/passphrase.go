// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package passphrase

import (
	"crypto/sha256"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/phrasepeer/phrasepeer/lib/ref"
)

// MinLetters is the shortest canonical form DeriveRoomID accepts.
const MinLetters = 8

var (
	// ErrEmpty is returned for a phrase that is empty after trimming
	// whitespace.
	ErrEmpty = errors.New("empty phrase")

	// ErrTooShort is returned when the canonical form has fewer than
	// MinLetters letters.
	ErrTooShort = errors.New("phrase too short")
)

// Normalize returns the canonical letter sequence of phrase: NFKD
// decomposition, lowercasing, then every rune outside a-z, æ, ø and å
// dropped. Letters are concatenated without separators.
//
// Decomposition happens before filtering, so precomposed letters such
// as é and å lose their marks and fold to their base letter. æ and ø
// have no decomposition and survive as themselves. This matches what
// String.prototype.normalize("NFKD") followed by toLowerCase produces
// in browsers, so a Go peer and a web peer typing the same phrase land
// in the same room.
func Normalize(phrase string) string {
	lowered := cases.Lower(language.Und).String(norm.NFKD.String(phrase))

	var canonical strings.Builder
	canonical.Grow(len(lowered))
	for _, r := range lowered {
		if isCanonicalLetter(r) {
			canonical.WriteRune(r)
		}
	}
	return canonical.String()
}

func isCanonicalLetter(r rune) bool {
	switch {
	case 'a' <= r && r <= 'z':
		return true
	case r == 'æ', r == 'ø', r == 'å':
		return true
	}
	return false
}

// DeriveRoomID returns the room for phrase: the SHA-256 of the UTF-8
// canonical form. Phrases that normalize identically share a room.
func DeriveRoomID(phrase string) (ref.RoomID, error) {
	if strings.TrimSpace(phrase) == "" {
		return ref.RoomID{}, ErrEmpty
	}
	canonical := Normalize(phrase)
	if utf8.RuneCountInString(canonical) < MinLetters {
		return ref.RoomID{}, ErrTooShort
	}
	return ref.RoomIDFromDigest(sha256.Sum256([]byte(canonical))), nil
}
