package dto

// LoginResponse carries a freshly minted session token.
type LoginResponse struct {
	Token string `json:"token"`
}
