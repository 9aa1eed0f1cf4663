package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"trello-cloney/storage"
)

// ViewBroker wakes stream subscribers of a view when it changes. It only
// reaches subscribers connected to this instance.
type ViewBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func NewViewBroker() *ViewBroker {
	return &ViewBroker{subs: make(map[string]map[chan struct{}]struct{})}
}

func streamKey(userID, viewID string) string {
	return userID + ":" + viewID
}

func (b *ViewBroker) subscribe(key string) chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	if b.subs[key] == nil {
		b.subs[key] = make(map[chan struct{}]struct{})
	}
	b.subs[key][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *ViewBroker) unsubscribe(key string, ch chan struct{}) {
	b.mu.Lock()
	delete(b.subs[key], ch)
	if len(b.subs[key]) == 0 {
		delete(b.subs, key)
	}
	b.mu.Unlock()
}

func (b *ViewBroker) notifyKey(key string) {
	b.mu.Lock()
	for ch := range b.subs[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	b.mu.Unlock()
}

// Notify wakes local subscribers of the view.
func (b *ViewBroker) Notify(_ context.Context, userID, viewID string) {
	b.notifyKey(streamKey(userID, viewID))
}

type viewUpdate struct {
	UserID string `json:"userId"`
	ViewID string `json:"viewId"`
}

// RedisViewNotifier broadcasts view changes over Redis pub/sub so stream
// subscribers connected to any instance are woken.
type RedisViewNotifier struct {
	client  *redis.Client
	channel string
	local   *ViewBroker
}

func NewRedisViewNotifier(client *redis.Client, channel string, local *ViewBroker) *RedisViewNotifier {
	return &RedisViewNotifier{client: client, channel: channel, local: local}
}

// Notify publishes the change. Local subscribers are woken directly when the
// publish fails.
func (n *RedisViewNotifier) Notify(ctx context.Context, userID, viewID string) {
	payload, err := sonic.Marshal(viewUpdate{UserID: userID, ViewID: viewID})
	if err == nil {
		err = n.client.Publish(ctx, n.channel, payload).Err()
	}
	if err != nil {
		n.local.Notify(ctx, userID, viewID)
	}
}

// Run relays published changes to the local broker until ctx is done.
func (n *RedisViewNotifier) Run(ctx context.Context, logger *log.Logger) {
	for {
		sub := n.client.Subscribe(ctx, n.channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var ev viewUpdate
				if err := sonic.UnmarshalString(msg.Payload, &ev); err != nil {
					logger.Errorf("unable to parse view update: %v", err)
					continue
				}
				n.local.Notify(ctx, ev.UserID, ev.ViewID)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Error("view update channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}

func streamView(h *handlers) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := h.auth.UserIDFromAuthHeader(authHeader(c))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		viewID := c.Param("id")
		ctx := c.Request().Context()
		if _, err := h.views.Load(ctx, userID, viewID); err != nil {
			return h.fail(c, nil, "storage", err)
		}

		res := c.Response()
		res.Header().Set(echo.HeaderContentType, "text/event-stream")
		res.Header().Set(echo.HeaderCacheControl, "no-cache")
		res.Header().Set(echo.HeaderConnection, "keep-alive")
		res.Header().Set("X-Accel-Buffering", "no")
		res.WriteHeader(http.StatusOK)

		key := streamKey(userID, viewID)
		ch := h.broker.subscribe(key)
		defer h.broker.unsubscribe(key, ch)
		for {
			st, err := h.views.Load(ctx, userID, viewID)
			if errors.Is(err, storage.ErrViewNotFound) {
				_, werr := res.Write([]byte("event: expired\ndata: {}\n\n"))
				res.Flush()
				return werr
			}
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				h.log.WithError(err).Error("stream load view")
				return err
			}
			data, err := sonic.Marshal(st.View())
			if err != nil {
				h.log.WithError(err).Error("stream encode view")
				return err
			}
			frame := make([]byte, 0, len(data)+40)
			frame = append(frame, "id: "...)
			frame = strconv.AppendInt(frame, nextTimestamp(), 10)
			frame = append(frame, "\ndata: "...)
			frame = append(frame, data...)
			frame = append(frame, "\n\n"...)
			if _, err := res.Write(frame); err != nil {
				return nil
			}
			res.Flush()

			select {
			case <-ctx.Done():
				return nil
			case <-ch:
			}
		}
	}
}
