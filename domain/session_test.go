package domain

import "testing"

func TestAvatarFor(t *testing.T) {
	tests := []struct {
		name    string
		session Session
		want    Avatar
	}{
		{name: "image", session: SignedIn{UserID: "u", Name: "Ada Lovelace", Image: "https://img/a.png"}, want: Avatar{ImageURL: "https://img/a.png", Alt: "user avatar"}},
		{name: "name_only", session: SignedIn{UserID: "u", Name: "ada byron lovelace"}, want: Avatar{Alt: "user avatar", Initials: "AB", Fallback: true}},
		{name: "empty_claims", session: SignedIn{UserID: "u"}, want: Avatar{Alt: "user avatar", Initials: "?", Fallback: true}},
		{name: "signed_out", session: SignedOut{}, want: Avatar{Alt: "signed out", Initials: "?", Fallback: true}},
		{name: "nil", session: nil, want: Avatar{Alt: "signed out", Initials: "?", Fallback: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AvatarFor(tt.session); got != tt.want {
				t.Fatalf("AvatarFor() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
