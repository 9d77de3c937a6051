package dto

import "time"

// UserSummary is a lightweight user description returned to clients.
type UserSummary struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	Provider       string    `json:"provider"`
	EmailConfirmed bool      `json:"email_confirmed"`
	CreatedAt      time.Time `json:"created_at"`
}

// MeResponse 当前用户及积分。
type MeResponse struct {
	User           UserSummary `json:"user"`
	Credits        int         `json:"credits"`
	BillingEnabled bool        `json:"billing_enabled"`
}
