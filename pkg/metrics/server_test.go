package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestServeExposesRegistry(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	reg := prometheus.NewRegistry()
	NewOutboxMetrics(reg).ObserveBatch(3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	Serve(ctx, addr, reg, func(err error) { t.Errorf("serve: %v", err) })

	var body string
	for range 50 {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err == nil {
			raw, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			body = string(raw)
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !strings.Contains(body, "cafe_outbox_batch_size") {
		t.Fatalf("expected outbox series in scrape, got %q", body)
	}
}

func TestServeDisabledWithoutAddr(t *testing.T) {
	Serve(context.Background(), "", prometheus.NewRegistry(), func(err error) {
		t.Errorf("unexpected error: %v", err)
	})
}
