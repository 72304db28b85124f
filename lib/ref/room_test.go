// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"crypto/sha256"
	"encoding/json"
	"strings"
	"testing"
)

const validRoom = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

func TestParseRoomID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:  "valid",
			input: validRoom,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: "empty room ID",
		},
		{
			name:    "too short",
			input:   validRoom[:63],
			wantErr: "must be 64 hex characters",
		},
		{
			name:    "too long",
			input:   validRoom + "0",
			wantErr: "must be 64 hex characters",
		},
		{
			name:    "uppercase hex",
			input:   strings.ToUpper(validRoom),
			wantErr: "non-hex character",
		},
		{
			name:    "non-hex letter",
			input:   "g" + validRoom[1:],
			wantErr: "non-hex character",
		},
		{
			name:    "path traversal",
			input:   "../" + validRoom[3:],
			wantErr: "non-hex character",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room, err := ParseRoomID(tt.input)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("ParseRoomID(%q) = %v, want error containing %q", tt.input, room, tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %q, want substring %q", err, tt.wantErr)
				}
				if !room.IsZero() {
					t.Error("failed parse returned a non-zero RoomID")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRoomID(%q): %v", tt.input, err)
			}
			if room.String() != tt.input {
				t.Errorf("String() = %q, want %q", room.String(), tt.input)
			}
		})
	}
}

func TestRoomIDFromDigest(t *testing.T) {
	room := RoomIDFromDigest(sha256.Sum256([]byte("test")))
	if room.String() != validRoom {
		t.Errorf("RoomIDFromDigest(sha256(test)) = %s, want %s", room, validRoom)
	}
	if room.Short() != validRoom[:12] {
		t.Errorf("Short() = %q", room.Short())
	}
}

func TestRoomIDZero(t *testing.T) {
	var room RoomID
	if !room.IsZero() {
		t.Error("zero RoomID reports non-zero")
	}
	if _, err := room.MarshalText(); err == nil {
		t.Error("MarshalText on zero RoomID succeeded")
	}
}

func TestRoomIDJSON(t *testing.T) {
	room, err := ParseRoomID(validRoom)
	if err != nil {
		t.Fatal(err)
	}

	type wrapper struct {
		Room RoomID `json:"room"`
	}
	data, err := json.Marshal(wrapper{Room: room})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"room":"`+validRoom+`"}` {
		t.Errorf("Marshal = %s", data)
	}

	var decoded wrapper
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Room != room {
		t.Errorf("round trip = %v, want %v", decoded.Room, room)
	}

	if err := json.Unmarshal([]byte(`{"room":"not-a-room"}`), &decoded); err == nil {
		t.Error("Unmarshal accepted an invalid room ID")
	}
}
