// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/phrasepeer/phrasepeer/lib/netutil"
	"github.com/phrasepeer/phrasepeer/lib/ref"
	"github.com/phrasepeer/phrasepeer/rendezvous"
	"github.com/phrasepeer/phrasepeer/signaling"
)

// defaultRequestTimeout bounds one relay round trip when the caller
// supplies no http.Client. Long-poll waits are added on top.
const defaultRequestTimeout = 30 * time.Second

// ClientConfig configures a Client.
type ClientConfig struct {
	// Endpoint is the relay URL, e.g. "https://relay.example.net/".
	// Required.
	Endpoint string

	// HTTPClient sends the requests. Defaults to a client with a
	// timeout covering one request plus Wait.
	HTTPClient *http.Client

	// Wait, when positive, asks the relay to hold get-offer and
	// get-answer requests open until the descriptor appears or Wait
	// elapses. The relay caps it at its own limit.
	Wait time.Duration
}

// Client speaks the relay protocol. It satisfies negotiate.Signaling:
// a 400 response becomes *signaling.ValidationError and a 409 becomes
// *signaling.ConflictError, so callers see the same errors as with an
// in-process signaling.Service.
type Client struct {
	endpoint string
	http     *http.Client
	wait     time.Duration
}

// NewClient validates the endpoint and returns a Client.
func NewClient(config ClientConfig) (*Client, error) {
	parsed, err := url.Parse(config.Endpoint)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("relay endpoint must be an http or https URL, got %q", config.Endpoint)
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout + config.Wait}
	}
	return &Client{endpoint: parsed.String(), http: httpClient, wait: config.Wait}, nil
}

// Endpoint returns the relay URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// PostOffer publishes offer for room, replacing any earlier offer and
// clearing the answer.
func (c *Client) PostOffer(ctx context.Context, room ref.RoomID, offer rendezvous.Descriptor) error {
	payload, err := json.Marshal(offer)
	if err != nil {
		return fmt.Errorf("encoding offer: %w", err)
	}
	return c.call(ctx, ActionPostOffer, room, url.Values{"offer": {string(payload)}}, nil)
}

// GetOffer returns the room's offer, or nil if there is none.
func (c *Client) GetOffer(ctx context.Context, room ref.RoomID) (*rendezvous.Descriptor, error) {
	var response offerResponse
	if err := c.call(ctx, ActionGetOffer, room, c.waitValues(), &response); err != nil {
		return nil, err
	}
	return response.Offer, nil
}

// PostAnswer publishes answer for room.
func (c *Client) PostAnswer(ctx context.Context, room ref.RoomID, answer rendezvous.Descriptor) error {
	payload, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("encoding answer: %w", err)
	}
	return c.call(ctx, ActionPostAnswer, room, url.Values{"answer": {string(payload)}}, nil)
}

// GetAnswer returns the room's answer, or nil if there is none.
func (c *Client) GetAnswer(ctx context.Context, room ref.RoomID) (*rendezvous.Descriptor, error) {
	var response answerResponse
	if err := c.call(ctx, ActionGetAnswer, room, c.waitValues(), &response); err != nil {
		return nil, err
	}
	return response.Answer, nil
}

// Clear removes the room.
func (c *Client) Clear(ctx context.Context, room ref.RoomID) error {
	return c.call(ctx, ActionClear, room, nil, nil)
}

func (c *Client) waitValues() url.Values {
	if c.wait <= 0 {
		return nil
	}
	return url.Values{"wait": {strconv.FormatInt(c.wait.Milliseconds(), 10)}}
}

// call posts one form request and decodes a 200 response into out.
func (c *Client) call(ctx context.Context, action string, room ref.RoomID, extra url.Values, out any) error {
	form := url.Values{
		"action": {action},
		"room":   {room.String()},
	}
	for key, values := range extra {
		form[key] = values
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("relay %s: %w", action, err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := c.http.Do(request)
	if err != nil {
		return fmt.Errorf("relay %s: %w", action, err)
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusOK:
		if out == nil {
			return nil
		}
		if err := netutil.DecodeResponse(response.Body, out); err != nil {
			return fmt.Errorf("relay %s: decoding response: %w", action, err)
		}
		return nil
	case http.StatusBadRequest:
		return &signaling.ValidationError{Reason: failureReason(response, "bad request")}
	case http.StatusConflict:
		return &signaling.ConflictError{Reason: failureReason(response, signaling.ReasonNoOfferYet)}
	default:
		return fmt.Errorf("relay %s: %s: %s", action, response.Status, netutil.ErrorBody(response.Body))
	}
}

// failureReason extracts the "error" field of a failure body, falling
// back when the body is not the relay's JSON shape.
func failureReason(response *http.Response, fallback string) string {
	var body errorResponse
	if err := netutil.DecodeResponse(response.Body, &body); err != nil || body.Error == "" {
		return fallback
	}
	return body.Error
}
