package converter

import (
	"headshots/internal/entity/db"
	"headshots/internal/entity/dto"
)

// UserToSummary converts a db.User to dto.UserSummary.
func UserToSummary(u *db.User) dto.UserSummary {
	if u == nil {
		return dto.UserSummary{}
	}
	return dto.UserSummary{
		ID:             u.ID,
		Email:          u.Email,
		DisplayName:    u.DisplayName,
		AvatarURL:      u.AvatarURL,
		Provider:       u.Provider,
		EmailConfirmed: u.Confirmed(),
		CreatedAt:      u.CreatedAt,
	}
}
