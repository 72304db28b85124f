// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/phrasepeer/phrasepeer/lib/codec"
)

func TestRecordJSONForm(t *testing.T) {
	record := Record{
		Offer:   &Descriptor{Payload: "v=0", Kind: KindOffer, PublicKey: "BPUB"},
		Updated: time.Unix(1767225600, 0),
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"offer":{"sdp":"v=0","type":"offer","pub":"BPUB"},"answer":null,"ts":1767225600}`
	if string(data) != want {
		t.Errorf("Marshal = %s\nwant       %s", data, want)
	}

	var decoded Record
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.Updated.Equal(record.Updated) || decoded.Offer == nil || decoded.Answer != nil {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestRecordCBORKeepsUnixSeconds(t *testing.T) {
	record := Record{Answer: &Descriptor{Payload: "v=0", Kind: KindAnswer, PublicKey: "BPUB"}, Updated: time.Unix(1767225600, 0)}

	data, err := codec.Marshal(record)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnostic, err := codec.Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if want := `"ts": 1767225600`; !strings.Contains(diagnostic, want) {
		t.Errorf("diagnostic %s does not contain %s", diagnostic, want)
	}

	var decoded Record
	if err := codec.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.Updated.Equal(record.Updated) || decoded.Answer == nil || decoded.Answer.Payload != "v=0" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestRecordExpired(t *testing.T) {
	updated := time.Unix(1767225600, 0)
	record := Record{Updated: updated}
	if record.Expired(updated.Add(DefaultTTL), DefaultTTL) {
		t.Error("record expired at exactly the TTL")
	}
	if !record.Expired(updated.Add(DefaultTTL+time.Second), DefaultTTL) {
		t.Error("record not expired one second past the TTL")
	}
	if record.Expired(updated.Add(DefaultTTL+999*time.Millisecond), DefaultTTL) {
		t.Error("record expired within the second after the TTL")
	}
}
