package pubsub

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/cafe-backend/pkg/config"
	"github.com/angelmondragon/cafe-backend/pkg/outbox/registry"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project string
		name    string
		want    string
	}{
		{"cafe-prod", "orders", "projects/cafe-prod/topics/orders"},
		{"cafe-prod", "  orders  ", "projects/cafe-prod/topics/orders"},
		{"cafe-prod", "projects/other/topics/orders", "projects/other/topics/orders"},
		{"", "orders", ""},
		{"cafe-prod", "", ""},
	}
	for _, tc := range cases {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("topicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	if got := topicNames(config.PubSubConfig{OrdersTopic: " "}); len(got) != 0 {
		t.Fatalf("expected no topics, got %v", got)
	}
	if got := topicNames(config.PubSubConfig{OrdersTopic: "orders"}); len(got) != 1 {
		t.Fatalf("expected one topic, got %v", got)
	}
}

func TestClientGuards(t *testing.T) {
	if _, err := NewClient(context.Background(), config.GCPConfig{ProjectID: " "}, config.PubSubConfig{OrdersTopic: "orders"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(context.Background(), config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{}, nil); err == nil {
		t.Fatal("expected error without topics")
	}
	var c *Client
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping on nil client to fail")
	}
	if _, err := c.Publish(context.Background(), "orders", []byte("{}"), nil); err != errNotConnected {
		t.Fatalf("expected not connected error, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("closing a nil client should be a no-op, got %v", err)
	}
}

func TestClientOptions(t *testing.T) {
	if got := clientOptions(config.GCPConfig{}); len(got) != 0 {
		t.Fatalf("expected default credentials, got %d options", len(got))
	}
	if got := clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/k.json"}); len(got) != 1 {
		t.Fatalf("expected a single credentials option, got %d", len(got))
	}
	if got := clientOptions(config.GCPConfig{ApplicationCredentials: "/k.json"}); len(got) != 1 {
		t.Fatalf("expected key file option, got %d", len(got))
	}
}

func TestClassifyMarksRejectedCodesPermanent(t *testing.T) {
	cases := []struct {
		err       error
		permanent bool
	}{
		{status.Error(codes.InvalidArgument, "message too large"), true},
		{status.Error(codes.NotFound, "topic gone"), true},
		{status.Error(codes.PermissionDenied, "no publisher role"), true},
		{status.Error(codes.Unavailable, "try again"), false},
		{status.Error(codes.DeadlineExceeded, "slow"), false},
		{errors.New("plain failure"), false},
	}
	for _, tc := range cases {
		got := classify(tc.err)
		if registry.IsPermanent(got) != tc.permanent {
			t.Fatalf("%v: permanent=%v, want %v", tc.err, registry.IsPermanent(got), tc.permanent)
		}
		if !errors.Is(got, tc.err) {
			t.Fatalf("classify must keep the cause, got %v", got)
		}
	}
	if classify(nil) != nil {
		t.Fatal("nil stays nil")
	}
}
