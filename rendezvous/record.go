// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"encoding/json"
	"time"
)

// DefaultTTL is how long a room survives without a write.
const DefaultTTL = 7200 * time.Second

// Kind distinguishes the two descriptors a room can hold.
type Kind string

const (
	KindOffer  Kind = "offer"
	KindAnswer Kind = "answer"
)

// Descriptor is one side of the negotiation: a session description and
// the sender's ephemeral public key. The JSON field names are the ones
// browser peers send.
type Descriptor struct {
	// Payload is the SDP text.
	Payload string `json:"sdp"`

	// Kind is "offer" or "answer".
	Kind Kind `json:"type"`

	// PublicKey is the base64 raw P-256 public key of the sender.
	PublicKey string `json:"pub"`
}

// Record is everything stored for one room.
type Record struct {
	Offer  *Descriptor `json:"offer"`
	Answer *Descriptor `json:"answer"`

	// Updated is the time of the last Put, at second precision. It is
	// serialized as "ts" in unix seconds.
	Updated time.Time `json:"ts"`
}

// jsonRecord is the JSON form of Record, with ts as an integer.
type jsonRecord struct {
	Offer     *Descriptor `json:"offer"`
	Answer    *Descriptor `json:"answer"`
	Timestamp int64       `json:"ts"`
}

// MarshalJSON writes {"offer":...,"answer":...,"ts":<unix seconds>}.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonRecord{Offer: r.Offer, Answer: r.Answer, Timestamp: r.Updated.Unix()})
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var decoded jsonRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*r = Record{Offer: decoded.Offer, Answer: decoded.Answer, Updated: time.Unix(decoded.Timestamp, 0).UTC()}
	return nil
}

// IsEmpty reports whether the record holds neither descriptor.
func (r Record) IsEmpty() bool {
	return r.Offer == nil && r.Answer == nil
}

// Expired reports whether the record is older than ttl at now. Ages
// are measured in whole seconds, matching the resolution of Updated.
func (r Record) Expired(now time.Time, ttl time.Duration) bool {
	return stamp(now).Sub(r.Updated) > ttl
}

// clone returns a deep copy so callers never share descriptors with a
// store.
func (r Record) clone() Record {
	copied := Record{Updated: r.Updated}
	if r.Offer != nil {
		offer := *r.Offer
		copied.Offer = &offer
	}
	if r.Answer != nil {
		answer := *r.Answer
		copied.Answer = &answer
	}
	return copied
}
