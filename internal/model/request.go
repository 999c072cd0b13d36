package model

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}
