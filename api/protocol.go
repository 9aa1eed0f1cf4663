package api

import (
	"trello-cloney/board"
	"trello-cloney/domain"
)

const postDragMaxSize = 16 * 1024 // 16 KiB

// POST /api/views response body
type createViewResponse struct {
	ViewID string     `json:"viewId"`
	Board  board.View `json:"board"`
}

// POST /api/views/:id/drag request body
type dragRequest struct {
	Kind           board.EventKind  `json:"kind"`
	Active         board.Draggable  `json:"active"`
	Over           *board.Draggable `json:"over,omitempty"`
	IdempotencyKey string           `json:"idempotencyKey,omitempty"`
}

func (r dragRequest) event() board.Event {
	return board.Event{Kind: r.Kind, Active: r.Active, Over: r.Over}
}

// POST /api/views/:id/drag response body
type dragResponse struct {
	Announcement string     `json:"announcement,omitempty"`
	Changed      bool       `json:"changed"`
	Duplicate    bool       `json:"duplicate,omitempty"`
	Board        board.View `json:"board"`
}

// GET /api/session response body
type sessionResponse struct {
	Status string        `json:"status"`
	User   *sessionUser  `json:"user,omitempty"`
	Avatar domain.Avatar `json:"avatar"`
}

type sessionUser struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

const (
	sessionSignedIn  = "signed-in"
	sessionSignedOut = "signed-out"
)

func newSessionResponse(s domain.Session) sessionResponse {
	resp := sessionResponse{Status: sessionSignedOut, Avatar: domain.AvatarFor(s)}
	if v, ok := s.(domain.SignedIn); ok {
		resp.Status = sessionSignedIn
		resp.User = &sessionUser{ID: v.UserID, Name: v.Name, Image: v.Image}
	}
	return resp
}
