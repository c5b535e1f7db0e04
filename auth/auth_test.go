package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFromHTTP(t *testing.T) {
	for _, tt := range []struct {
		code int
		want Status
	}{
		{200, Authorized},
		{204, Authorized},
		{401, Denied},
		{402, Restricted},
		{403, Restricted},
		{404, NotDetermined},
		{500, NotDetermined},
	} {
		if got := FromHTTP(tt.code); got != tt.want {
			t.Errorf("FromHTTP(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestReasonOnlyForDisablingStatuses(t *testing.T) {
	if Authorized.Reason() != "" {
		t.Errorf("authorized should carry no reason, got %q", Authorized.Reason())
	}
	for _, s := range []Status{NotDetermined, Denied, Restricted} {
		if s.Reason() == "" {
			t.Errorf("%v has no reason", s)
		}
	}
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	for _, tt := range []struct {
		key  string
		want Status
	}{
		{"good", Authorized},
		{"bad", Denied},
	} {
		req, _ := http.NewRequest("GET", srv.URL, nil)
		req.Header.Set("Authorization", "Token "+tt.key)
		got, err := Probe(srv.Client(), req)
		if err != nil {
			t.Fatalf("Probe(%s): %v", tt.key, err)
		}
		if got != tt.want {
			t.Errorf("Probe(%s) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestProbeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	req, _ := http.NewRequest("GET", url, nil)
	got, err := Probe(http.DefaultClient, req)
	if err == nil {
		t.Fatal("expected transport error")
	}
	if got != NotDetermined {
		t.Errorf("got %v, want notDetermined", got)
	}
}

func TestRequestDispatchesOnce(t *testing.T) {
	msgs := make(chan any, 4)
	Request(context.Background(), Static(Denied), func(msg any) { msgs <- msg })

	select {
	case msg := <-msgs:
		sm, ok := msg.(StatusMsg)
		if !ok {
			t.Fatalf("got %T, want StatusMsg", msg)
		}
		if sm.Status != Denied {
			t.Errorf("status = %v, want denied", sm.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for status")
	}

	select {
	case msg := <-msgs:
		t.Fatalf("unexpected second dispatch: %v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}
