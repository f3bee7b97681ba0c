package relayer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCreateProfile(t *testing.T) {
	var (
		gotReq    Request
		gotHeader http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"universalProfileAddress":"0xUP","transactionHash":"0xTX"}`))
	}))
	defer srv.Close()

	req := Request{Salt: "0x01", PostDeploymentCallData: "0x02"}
	resp, err := NewClient(srv.URL, "secret", srv.Client()).CreateProfile(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	if diff := cmp.Diff(Response{UniversalProfileAddress: "0xUP", TransactionHash: "0xTX"}, resp); diff != "" {
		t.Fatalf("response mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(req, gotReq); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
	if got := gotHeader.Get("Authorization"); got != "Bearer secret" {
		t.Fatalf("Authorization = %q", got)
	}
	if got := gotHeader.Get("Content-Type"); got != "application/json" {
		t.Fatalf("Content-Type = %q", got)
	}
	if got := gotHeader.Get("Accept"); got != "application/json" {
		t.Fatalf("Accept = %q", got)
	}
}

func TestCreateProfileStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", srv.Client()).CreateProfile(context.Background(), Request{})
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("err = %v, want ErrStatus", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests || se.Body != "quota exceeded" {
		t.Fatalf("status error = %+v", se)
	}
}

func TestCreateProfileBadResponse(t *testing.T) {
	for name, body := range map[string]string{
		"not json":     `<html>`,
		"missing hash": `{"universalProfileAddress":"0xUP"}`,
		"empty":        `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "k", srv.Client()).CreateProfile(context.Background(), Request{})
			if !errors.Is(err, ErrBadResponse) {
				t.Fatalf("err = %v, want ErrBadResponse", err)
			}
		})
	}
}

func TestCreateProfileTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "k", nil).CreateProfile(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if errors.Is(err, ErrStatus) || errors.Is(err, ErrBadResponse) {
		t.Fatalf("err = %v, want transport error", err)
	}
}
