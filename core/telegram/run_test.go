package telegram

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/profilebot/core/config"
)

func TestRunServesAndStops(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.Token = "123:abc"
	cfg.Server.URL = "https://bot.example.com"

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan net.Addr, 1)
	stopped := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, RunOptions{
			Config:   cfg,
			Handler:  &recordingHandler{},
			Listener: ln,
			OnStart: func(_ context.Context, addr net.Addr) error {
				started <- addr
				return nil
			},
			OnStop: func(context.Context) error {
				close(stopped)
				return nil
			},
		})
	}()

	var addr net.Addr
	select {
	case addr = <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr.String() + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop")
	}
	select {
	case <-stopped:
	default:
		t.Fatal("OnStop not called")
	}
}

func TestRunRequiresHandler(t *testing.T) {
	if err := Run(context.Background(), RunOptions{Config: &coreconfig.Config{}}); err == nil {
		t.Fatal("expected error without handler")
	}
}
