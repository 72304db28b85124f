// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2) so the same
// record always produces the same bytes on disk.
var encMode cbor.EncMode

// decMode ignores unknown fields so older binaries can read records
// written by newer ones.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// ref.RoomID and friends serialize as text strings via MarshalText.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	// time.Time fields are stored as integer unix seconds, matching the
	// "ts" field of the JSON form.
	encOptions.Time = cbor.TimeUnix
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to deterministic CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Diagnose returns the RFC 8949 diagnostic notation for data. The bolt
// rendezvous store logs stored records with it at debug level.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
