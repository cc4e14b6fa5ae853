package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestGetExtractsData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("action"); got != "getUsers" {
			t.Errorf("unexpected action: %q", got)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"u1"}]}`))
	})

	data, err := client.Get(context.Background(), "getUsers")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !strings.Contains(string(data), `"u1"`) {
		t.Fatalf("unexpected data: %s", data)
	}
}

func TestPostSendsActionEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Errorf("unexpected content type: %q", ct)
		}
		raw, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(raw), `"action":"addUser"`) {
			t.Errorf("missing action in body: %s", raw)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"u1","name":"Ana"}}`))
	})

	data, err := client.Post(context.Background(), "addUser", map[string]string{"name": "Ana"})
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	if !strings.Contains(string(data), `"Ana"`) {
		t.Fatalf("unexpected data: %s", data)
	}
}

func TestApplicationErrorIsVerbatim(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"Ya existe un usuario con ese nombre"}`))
	})

	_, err := client.Post(context.Background(), "addUser", nil)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !IsApplication(err) {
		t.Fatalf("expected an application error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Ya existe un usuario con ese nombre") {
		t.Fatalf("server message must pass through verbatim, got %q", err.Error())
	}
}

func TestApplicationErrorWithoutMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false}`))
	})

	_, err := client.Get(context.Background(), "getUsers")
	if !IsApplication(err) {
		t.Fatalf("expected an application error, got %v", err)
	}
}

func TestMissingSuccessFieldTolerated(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"phase":"VOTING"}}`))
	})

	data, err := client.Get(context.Background(), "getContestState")
	if err != nil {
		t.Fatalf("absent success field must not fail: %v", err)
	}
	if !strings.Contains(string(data), "VOTING") {
		t.Fatalf("unexpected data: %s", data)
	}
}

func TestHTMLResponseGetsDeploymentDiagnostic(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<!DOCTYPE html><html><body>Sign in</body></html>"))
	})

	_, err := client.Get(context.Background(), "getContestState")
	if err == nil {
		t.Fatalf("expected an error")
	}
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Kind != KindPayload {
		t.Fatalf("expected a payload error, got %v", err)
	}
	if !strings.Contains(err.Error(), "anyone, even anonymous") {
		t.Fatalf("expected the deployment diagnostic, got %q", err.Error())
	}
}

func TestEmptyBodyIsPayloadError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := client.Get(context.Background(), "getVotes")
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Kind != KindPayload {
		t.Fatalf("expected a payload error, got %v", err)
	}
}

func TestInvalidJSONIsPayloadError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("definitely not json"))
	})

	_, err := client.Get(context.Background(), "getVotes")
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Kind != KindPayload {
		t.Fatalf("expected a payload error, got %v", err)
	}
}

func TestNon2xxIsTransportError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Get(context.Background(), "getVotes")
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Kind != KindTransport {
		t.Fatalf("expected a transport error, got %v", err)
	}
	if gerr.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", gerr.Status)
	}
}

func TestIsNull(t *testing.T) {
	if !IsNull(nil) {
		t.Fatalf("absent data is null")
	}
	if !IsNull([]byte("null")) {
		t.Fatalf("null literal is null")
	}
	if IsNull([]byte(`{"id":"u1"}`)) {
		t.Fatalf("an object is not null")
	}
}
