package scan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-tracker-backend/internal/identity"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestClient_SubmitScan(t *testing.T) {
	var got scanRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/scan", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"action":    "entry",
			"person":    map[string]any{"id": 7, "name": "Ada", "email": "ada@example.org"},
			"lab_name":  "Physics Lab",
			"timestamp": "2026-10-19 09:00:00",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	res, err := c.SubmitScan(context.Background(), `{"id":7,"name":"Ada","email":"ada@example.org"}`, "Physics Lab")
	require.NoError(t, err)

	assert.Equal(t, "Physics Lab", got.LabName)
	assert.Equal(t, Result{
		Action:    "entry",
		Person:    identity.Payload{ID: 7, Name: "Ada", Email: "ada@example.org"},
		LabName:   "Physics Lab",
		Timestamp: "2026-10-19 09:00:00",
	}, res)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    map[string]any
		wantIs  error
		wantMsg string
	}{
		{
			name:    "unknown person",
			status:  http.StatusNotFound,
			body:    map[string]any{"success": false, "message": "No person found with ID: 9"},
			wantIs:  ErrUnknownPerson,
			wantMsg: "No person found with ID: 9",
		},
		{
			name:    "invalid payload",
			status:  http.StatusBadRequest,
			body:    map[string]any{"success": false, "message": "Invalid QR code format: Missing required fields in QR code"},
			wantIs:  identity.ErrInvalidPayload,
			wantMsg: "Invalid QR code format: Missing required fields in QR code",
		},
		{
			name:    "success false with 200",
			status:  http.StatusOK,
			body:    map[string]any{"success": false, "message": "nope"},
			wantIs:  ErrRejected,
			wantMsg: "nope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).SubmitScan(context.Background(), "{}", "Main Lab")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantIs)
			assert.EqualError(t, err, tt.wantMsg)
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).SubmitScan(context.Background(), "{}", "Main Lab")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "Error scanning QR code: ")
}

func TestClient_LookupPerson(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/person/42":
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"person":  map[string]any{"id": 42, "name": "Bo", "email": "bo@example.org", "department": "Physics"},
			})
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "No person found with ID: 5"})
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	p, err := c.LookupPerson(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, identity.Payload{ID: 42, Name: "Bo", Email: "bo@example.org"}, p)

	_, err = c.LookupPerson(context.Background(), 5)
	assert.ErrorIs(t, err, ErrUnknownPerson)
}
