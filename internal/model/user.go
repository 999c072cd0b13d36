package model

// User is the identity record minted from the OAuth provider profile.
// It carries no password; possession of a valid token is the only proof
// of authentication.
type User struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Claims is the payload embedded in both access and refresh tokens.
type Claims struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

func (c Claims) User() User {
	return User{Email: c.Email, Name: c.Name, AvatarURL: c.AvatarURL}
}

// ClaimsFromUser strips a user down to the fields that go into a token.
func ClaimsFromUser(u User) Claims {
	return Claims{Email: u.Email, Name: u.Name, AvatarURL: u.AvatarURL}
}

// Session is the client-side view of authentication state: the triple held
// by the session manager and mirrored into persistent storage.
type Session struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Authenticated reports whether the session can back protected routes.
// A session holding a token but no user is not yet authenticated for UI
// purposes; the profile must be fetched first.
func (s Session) Authenticated() bool {
	return s.User != nil && s.AccessToken != ""
}
