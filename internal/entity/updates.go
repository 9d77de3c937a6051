package entity

import "time"

// UserUpdates 用户更新字段
type UserUpdates struct {
	DisplayName      *string
	AvatarURL        *string
	PasswordHash     *string
	EmailConfirmedAt *time.Time
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u UserUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.DisplayName != nil {
		updates["display_name"] = *u.DisplayName
	}
	if u.AvatarURL != nil {
		updates["avatar_url"] = *u.AvatarURL
	}
	if u.PasswordHash != nil {
		updates["password_hash"] = *u.PasswordHash
	}
	if u.EmailConfirmedAt != nil {
		updates["email_confirmed_at"] = *u.EmailConfirmedAt
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u UserUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}

// ModelUpdates 训练任务更新字段
type ModelUpdates struct {
	Name   *string
	Status *string
	TuneID *string
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u ModelUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Status != nil {
		updates["status"] = *u.Status
	}
	if u.TuneID != nil {
		updates["tune_id"] = *u.TuneID
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u ModelUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}
