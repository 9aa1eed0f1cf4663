package domain

import "strings"

// Session is the authentication state of the current viewer. It is either
// SignedIn or SignedOut.
type Session interface {
	isSession()
}

// SignedIn is a session backed by a valid token. Name and Image are optional
// claims and may be empty.
type SignedIn struct {
	UserID string
	Name   string
	Image  string
}

// SignedOut is the session of a viewer without a valid token.
type SignedOut struct{}

func (SignedIn) isSession()  {}
func (SignedOut) isSession() {}

// Avatar describes what the page renders for the current viewer.
type Avatar struct {
	ImageURL string `json:"imageUrl,omitempty"`
	Alt      string `json:"alt"`
	Initials string `json:"initials,omitempty"`
	Fallback bool   `json:"fallback"`
}

const placeholderInitials = "?"

// AvatarFor returns the avatar to render for s. It never fails: every shape of
// session has a rendering.
func AvatarFor(s Session) Avatar {
	switch v := s.(type) {
	case SignedIn:
		if v.Image != "" {
			return Avatar{ImageURL: v.Image, Alt: "user avatar"}
		}
		return Avatar{Alt: "user avatar", Initials: initials(v.Name), Fallback: true}
	default:
		return Avatar{Alt: "signed out", Initials: placeholderInitials, Fallback: true}
	}
}

func initials(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return placeholderInitials
	}
	if len(fields) > 2 {
		fields = fields[:2]
	}
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(strings.ToUpper(string([]rune(f)[0])))
	}
	return b.String()
}
