package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"trello-cloney/board"
	"trello-cloney/domain"
	"trello-cloney/storage"
)

const healthCheckTimeout = 2 * time.Second

// Config carries the collaborators of the HTTP API. Deduper, Activities and
// Notifier are optional.
type Config struct {
	Views      storage.ViewStore
	Auth       Authenticator
	Deduper    Deduper
	Activities Publisher
	Broker     *ViewBroker
	Notifier   ViewNotifier
	Board      board.Options
	Health     []Pinger
	Log        *log.Logger
}

type handlers struct {
	views      storage.ViewStore
	auth       Authenticator
	deduper    Deduper
	activities Publisher
	broker     *ViewBroker
	notifier   ViewNotifier
	opts       board.Options
	health     []Pinger
	log        *log.Logger
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, cfg Config) {
	if cfg.Views == nil || cfg.Auth == nil {
		panic("api.Register: view store and authenticator are required")
	}
	if cfg.Log == nil {
		panic("Logger is not initialized")
	}
	h := &handlers{
		views:      cfg.Views,
		auth:       cfg.Auth,
		deduper:    cfg.Deduper,
		activities: cfg.Activities,
		broker:     cfg.Broker,
		notifier:   cfg.Notifier,
		opts:       cfg.Board,
		health:     cfg.Health,
		log:        cfg.Log,
	}
	if h.broker == nil {
		h.broker = NewViewBroker()
	}
	if h.notifier == nil {
		h.notifier = h.broker
	}

	e.POST("/api/views", createView(h))
	e.GET("/api/views/:id", getView(h))
	e.POST("/api/views/:id/drag", postDrag(h))
	e.DELETE("/api/views/:id/tasks/:taskId", deleteTask(h))
	e.GET("/api/views/:id/stream", streamView(h))
	e.GET("/api/session", getSession(h))
	e.GET("/healthz", healthz(h))
}

func healthz(h *handlers) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
		defer cancel()
		for _, p := range h.health {
			if err := p.Ping(ctx); err != nil {
				h.log.WithError(err).Warn("health check failed")
				return c.String(http.StatusServiceUnavailable, "unhealthy")
			}
		}
		return c.NoContent(http.StatusOK)
	}
}

func getSession(h *handlers) echo.HandlerFunc {
	return func(c echo.Context) error {
		s := h.auth.SessionFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		return c.JSON(http.StatusOK, newSessionResponse(s))
	}
}

func createView(h *handlers) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := h.auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		viewID := uuid.NewString()
		st := board.New()
		if err := h.views.Create(c.Request().Context(), userID, viewID, st); err != nil {
			return h.fail(c, nil, "storage", err)
		}
		return c.JSON(http.StatusCreated, createViewResponse{ViewID: viewID, Board: st.View()})
	}
}

func getView(h *handlers) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := h.auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		st, err := h.views.Load(c.Request().Context(), userID, c.Param("id"))
		if err != nil {
			return h.fail(c, nil, "storage", err)
		}
		return c.JSON(http.StatusOK, st.View())
	}
}

func postDrag(h *handlers) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newDragRequestMetrics(c.Request().Context(), h.log)
		c.SetRequest(c.Request().WithContext(ctx))
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := h.auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			return c.String(http.StatusUnauthorized, authErr.Error())
		}
		viewID := c.Param("id")

		var req dragRequest
		dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, postDragMaxSize))
		if decErr := dec.Decode(&req); decErr != nil {
			metrics.SetErrorStage("decode")
			return c.String(http.StatusBadRequest, "invalid body")
		}
		metrics.SetKind(req.Kind)
		if !req.Kind.Valid() {
			metrics.SetErrorStage("invalid_kind")
			return c.String(http.StatusBadRequest, "unknown event kind")
		}

		var dedupeKey string
		if req.IdempotencyKey != "" && h.deduper != nil {
			dedupeKey = viewID + ":" + req.IdempotencyKey
			added, dedupeErr := h.deduper.Add(ctx, userID, dedupeKey)
			if dedupeErr != nil {
				return h.fail(c, metrics, "dedupe", dedupeErr)
			}
			if !added {
				metrics.SetDuplicate(true)
				st, loadErr := h.views.Load(ctx, userID, viewID)
				if loadErr != nil {
					return h.fail(c, metrics, "storage", loadErr)
				}
				return c.JSON(http.StatusOK, dragResponse{Duplicate: true, Board: st.View()})
			}
		}

		var outcome board.Outcome
		updateStart := time.Now()
		st, updateErr := h.views.Update(ctx, userID, viewID, func(st *board.State) error {
			var dispatchErr error
			outcome, dispatchErr = st.Dispatch(req.event(), h.opts)
			return dispatchErr
		})
		metrics.ObserveUpdate(time.Since(updateStart))
		if updateErr != nil {
			if dedupeKey != "" {
				if rerr := h.deduper.Remove(ctx, userID, dedupeKey); rerr != nil {
					h.log.Errorf("dedupe rollback failed, err: %v, key: %s, user: %s", rerr, dedupeKey, userID)
				}
			}
			return h.fail(c, metrics, "storage", updateErr)
		}
		metrics.SetOutcome(outcome.Changed, len(outcome.Activities))
		h.afterUpdate(ctx, userID, viewID, outcome.Activities)

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, dragResponse{
			Announcement: outcome.Announcement,
			Changed:      outcome.Changed,
			Board:        st.View(),
		})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func deleteTask(h *handlers) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := h.auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		ctx := c.Request().Context()
		viewID := c.Param("id")
		taskID := c.Param("taskId")

		var act domain.Activity
		_, err = h.views.Update(ctx, userID, viewID, func(st *board.State) error {
			var deleteErr error
			act, deleteErr = st.DeleteTask(taskID)
			return deleteErr
		})
		if err != nil {
			return h.fail(c, nil, "storage", err)
		}
		h.afterUpdate(ctx, userID, viewID, []domain.Activity{act})
		return c.NoContent(http.StatusNoContent)
	}
}

// afterUpdate exports the activities of a stored change and wakes stream
// subscribers.
func (h *handlers) afterUpdate(ctx context.Context, userID, viewID string, acts []domain.Activity) {
	if len(acts) > 0 && h.activities != nil {
		stampActivities(viewID, acts)
		h.activities.Publish(userID, acts)
	}
	h.notifier.Notify(ctx, userID, viewID)
}

// fail maps err to a response. Unexpected errors are logged.
func (h *handlers) fail(c echo.Context, metrics *dragRequestMetrics, stage string, err error) error {
	status, msg := statusForError(err)
	if metrics != nil {
		metrics.SetErrorStage(stage)
	}
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("stage", stage).Error("request failed")
	}
	return c.String(status, msg)
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrViewNotFound):
		return http.StatusNotFound, "view not found"
	case errors.Is(err, board.ErrTaskNotFound):
		return http.StatusNotFound, "task not found"
	case errors.Is(err, board.ErrUnknownEventKind):
		return http.StatusBadRequest, "unknown event kind"
	case errors.Is(err, storage.ErrConcurrencyConflict):
		return http.StatusConflict, "view changed concurrently, retry"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
