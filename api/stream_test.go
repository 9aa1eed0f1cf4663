package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus/hooks/test"

	"trello-cloney/board"
)

func TestViewBrokerNotifiesOnlyMatchingView(t *testing.T) {
	b := NewViewBroker()
	a := b.subscribe(streamKey("alice", "v1"))
	other := b.subscribe(streamKey("alice", "v2"))
	defer b.unsubscribe(streamKey("alice", "v1"), a)
	defer b.unsubscribe(streamKey("alice", "v2"), other)

	b.Notify(context.Background(), "alice", "v1")
	b.Notify(context.Background(), "alice", "v1")

	select {
	case <-a:
	default:
		t.Fatal("expected subscriber of v1 to be notified")
	}
	select {
	case <-a:
		t.Fatal("notifications must coalesce")
	default:
	}
	select {
	case <-other:
		t.Fatal("subscriber of v2 must not be notified")
	default:
	}
}

func TestViewBrokerUnsubscribeRemovesEmptyViews(t *testing.T) {
	b := NewViewBroker()
	key := streamKey("alice", "v1")
	ch := b.subscribe(key)
	b.unsubscribe(key, ch)
	if len(b.subs) != 0 {
		t.Fatalf("expected no subscriptions, got %d", len(b.subs))
	}
}

func TestRedisViewNotifierRelaysAcrossInstances(t *testing.T) {
	_, client := newTestRedis(t)
	logger, _ := test.NewNullLogger()

	remote := NewViewBroker()
	relay := NewRedisViewNotifier(client, "view-updates", remote)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Run(ctx, logger)

	ch := remote.subscribe(streamKey("alice", "v1"))
	defer remote.unsubscribe(streamKey("alice", "v1"), ch)

	publisher := NewRedisViewNotifier(client, "view-updates", NewViewBroker())
	deadline := time.After(2 * time.Second)
	for {
		// The subscription is established asynchronously; publish until it lands.
		publisher.Notify(ctx, "alice", "v1")
		select {
		case <-ch:
			return
		case <-deadline:
			t.Fatal("expected notification relayed through redis")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func readEvent(t *testing.T, r *bufio.Reader) (event string, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if data != "" {
				return event, data
			}
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestStreamViewSendsSnapshotsOnChange(t *testing.T) {
	srv := newTestServer(t, func(cfg *Config) {
		cfg.Notifier = nil
	})
	viewID := srv.createView(t, "alice")

	ts := httptest.NewServer(srv.e)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/views/"+viewID+"/stream?access_token=alice", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type: %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	_, data := readEvent(t, r)
	var initial board.View
	if err := sonic.UnmarshalString(data, &initial); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if initial.ActiveTask != nil {
		t.Fatal("expected no drag in progress")
	}

	if rec := srv.do(http.MethodPost, "/api/views/"+viewID+"/drag", "alice", taskEvent("start", "task5", "")); rec.Code != http.StatusOK {
		t.Fatalf("drag: %d", rec.Code)
	}

	_, data = readEvent(t, r)
	var next board.View
	if err := sonic.UnmarshalString(data, &next); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if next.ActiveTask == nil || next.ActiveTask.ID != "task5" {
		t.Fatalf("expected snapshot with active task, got %#v", next.ActiveTask)
	}
}

func TestStreamViewUnknownView(t *testing.T) {
	srv := newTestServer(t, nil)
	if rec := srv.do(http.MethodGet, "/api/views/missing/stream", "alice", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
