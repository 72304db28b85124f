// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import "net/http"

// Reasons carried by the errors below. They are also the "error"
// strings in relay responses.
const (
	ReasonBadRoom    = "bad room"
	ReasonBadOffer   = "bad offer"
	ReasonBadAnswer  = "bad answer"
	ReasonNoOfferYet = "no offer yet"
)

// ValidationError reports a malformed room ID or descriptor. Nothing
// was read or written.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// HTTPStatus returns 400.
func (e *ValidationError) HTTPStatus() int { return http.StatusBadRequest }

// ConflictError reports an answer posted to a room with no offer.
// Nothing was written.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// HTTPStatus returns 409.
func (e *ConflictError) HTTPStatus() int { return http.StatusConflict }
