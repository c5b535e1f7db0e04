// Package auth decides whether speech recognition may be used on this run.
//
// Authorization is asked for exactly once per launch. The answer is mapped
// to a Status and delivered to the UI goroutine as a StatusMsg.
package auth

import (
	"context"
	"errors"
	"net/http"

	"hark/log"
)

type Status int

const (
	NotDetermined Status = iota
	Authorized
	Denied
	Restricted
)

func (s Status) String() string {
	switch s {
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	case Restricted:
		return "restricted"
	default:
		return "notDetermined"
	}
}

// Reason is the diagnostic line logged for a status that disables recording.
func (s Status) Reason() string {
	switch s {
	case NotDetermined:
		return "Speech recognition not yet authorized"
	case Denied:
		return "User denied access to speech recognition"
	case Restricted:
		return "Speech recognition restricted on this device"
	default:
		return ""
	}
}

var ErrNoCredentials = errors.New("no API key configured")

// Authorizer asks a recognition provider whether this client may use it.
type Authorizer interface {
	Authorize(ctx context.Context) (Status, error)
}

// StatusMsg is dispatched once the authorization request completes.
type StatusMsg struct {
	Status Status
}

// FromHTTP maps a provider account-endpoint response code to a Status.
func FromHTTP(code int) Status {
	switch {
	case code >= 200 && code < 300:
		return Authorized
	case code == http.StatusUnauthorized:
		return Denied
	case code == http.StatusPaymentRequired, code == http.StatusForbidden:
		return Restricted
	default:
		return NotDetermined
	}
}

// Probe issues req with client and maps the answer to a Status. Transport
// failures yield NotDetermined together with the error.
func Probe(client *http.Client, req *http.Request) (Status, error) {
	resp, err := client.Do(req)
	if err != nil {
		return NotDetermined, err
	}
	resp.Body.Close()
	return FromHTTP(resp.StatusCode), nil
}

// Request runs a in the background and hands the result to dispatch.
// It never retries.
func Request(ctx context.Context, a Authorizer, dispatch func(msg any)) {
	go func() {
		status, err := a.Authorize(ctx)
		if err != nil {
			log.Warnf("authorization: %v", err)
		}
		log.Info("authorization_status: " + status.String())
		dispatch(StatusMsg{Status: status})
	}()
}

// Static always answers with a fixed status.
type Static Status

func (s Static) Authorize(context.Context) (Status, error) { return Status(s), nil }
