package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var perr PolicyError
	if err := json.Unmarshal(rec.Body.Bytes(), &perr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if perr.Code != CodeEngineError {
		t.Errorf("code = %q, want %q", perr.Code, CodeEngineError)
	}
	if perr.Message == "boom" {
		t.Error("panic value must not leak into the response")
	}
}

func TestRecoveryMiddlewarePassthrough(t *testing.T) {
	handler := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	t.Run("explicit status", func(t *testing.T) {
		rw := newResponseWriter(httptest.NewRecorder())
		rw.WriteHeader(http.StatusForbidden)
		rw.WriteHeader(http.StatusOK)

		if rw.statusCode != http.StatusForbidden {
			t.Errorf("statusCode = %d, want first write to win", rw.statusCode)
		}
	})

	t.Run("implicit 200 on write", func(t *testing.T) {
		rw := newResponseWriter(httptest.NewRecorder())
		if _, err := rw.Write([]byte("ok")); err != nil {
			t.Fatalf("Write: %v", err)
		}

		if rw.statusCode != http.StatusOK {
			t.Errorf("statusCode = %d, want 200", rw.statusCode)
		}
	})
}

func TestProvenanceLoggerMiddlewareSetsStartTime(t *testing.T) {
	var sawStart bool
	handler := ProvenanceLoggerMiddleware(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawStart = !GetStartTime(r.Context()).IsZero()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !sawStart {
		t.Error("handlers should see the request start time in context")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	t.Run("generates when absent", func(t *testing.T) {
		var ctxID string
		handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxID = GetRequestID(r.Context())
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if ctxID == "" {
			t.Fatal("request ID missing from context")
		}
		if got := rec.Header().Get(RequestIDHeader); got != ctxID {
			t.Errorf("response header = %q, context = %q", got, ctxID)
		}
	})

	t.Run("honors inbound", func(t *testing.T) {
		var ctxID string
		handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxID = GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-fixed")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if ctxID != "req-fixed" {
			t.Errorf("context request ID = %q, want req-fixed", ctxID)
		}
	})
}
