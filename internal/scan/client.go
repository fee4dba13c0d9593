package scan

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"lab-tracker-backend/internal/identity"
)

var (
	// ErrTransport marks a request that never got a usable answer from the server.
	ErrTransport = errors.New("transport failure")
	// ErrUnknownPerson marks a badge id the server does not know.
	ErrUnknownPerson = errors.New("unknown person")
	// ErrRejected marks any other refusal by the server.
	ErrRejected = errors.New("rejected by server")
)

// TransportError wraps a network or protocol failure.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "Error scanning QR code: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// RemoteError is a {success:false} answer from the server.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string { return e.Message }

func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrRejected:
		return true
	case ErrUnknownPerson:
		return e.StatusCode == http.StatusNotFound
	case identity.ErrInvalidPayload:
		return e.StatusCode == http.StatusBadRequest
	}
	return false
}

// Result is a successful transition as reported by the server.
type Result struct {
	Action    string           `json:"action"`
	Person    identity.Payload `json:"person"`
	LabName   string           `json:"lab_name"`
	Timestamp string           `json:"timestamp"`
}

type scanRequest struct {
	QRContent string `json:"qr_content"`
	LabName   string `json:"lab_name"`
}

type scanResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Result
}

type personResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Person  identity.Payload `json:"person"`
}

// Client talks to labtrackd. Nothing is retried: every failure is final for
// that attempt.
type Client struct {
	http *resty.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
	}
}

// SubmitScan posts raw badge text for lab.
func (c *Client) SubmitScan(ctx context.Context, qrContent, labName string) (Result, error) {
	var body scanResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(scanRequest{QRContent: qrContent, LabName: labName}).
		SetResult(&body).
		SetError(&body).
		Post("/api/scan")
	if err != nil {
		return Result{}, &TransportError{Err: err}
	}
	if resp.IsError() || !body.Success {
		return Result{}, remoteError(resp, body.Message)
	}
	return body.Result, nil
}

// LookupPerson resolves a typed badge id to the registered identity.
func (c *Client) LookupPerson(ctx context.Context, id int64) (identity.Payload, error) {
	var body personResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", fmt.Sprint(id)).
		SetResult(&body).
		SetError(&body).
		Get("/api/person/{id}")
	if err != nil {
		return identity.Payload{}, &TransportError{Err: err}
	}
	if resp.IsError() || !body.Success {
		return identity.Payload{}, remoteError(resp, body.Message)
	}
	return body.Person, nil
}

func remoteError(resp *resty.Response, message string) error {
	if message == "" {
		if resp.IsSuccess() {
			return &TransportError{Err: fmt.Errorf("unexpected response from server")}
		}
		message = resp.Status()
	}
	return &RemoteError{StatusCode: resp.StatusCode(), Message: message}
}
