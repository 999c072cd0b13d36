package model

// MessageResponse is the wire shape for acknowledgments and errors.
type MessageResponse struct {
	Message string `json:"message"`
}

// RefreshResponse carries the freshly minted access token.
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// ProfileResponse wraps the authenticated user for GET /profile.
type ProfileResponse struct {
	User User `json:"user"`
}
