package model

import (
	"context"
	"headshots/internal/entity"
	"headshots/internal/entity/db"
	"headshots/internal/model/sql"
	"time"
)

var (
	// ErrInsufficientCredits 余额不足，条件扣减未命中任何行
	ErrInsufficientCredits = sql.ErrInsufficientCredits
	// ErrInvalidCode 一次性登录码不存在、已过期或已使用
	ErrInvalidCode = sql.ErrInvalidCode
)

// Repository 定义数据库操作接口
type Repository interface {
	// 用户管理
	CreateUser(ctx context.Context, user *db.User) error
	UpdateUser(ctx context.Context, id string, updates entity.UserUpdates) error
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	GetUserByID(ctx context.Context, id string) (*db.User, error)

	// 一次性登录码
	CreateAuthCode(ctx context.Context, code *db.AuthCode) error
	ConsumeAuthCode(ctx context.Context, codeHash string, now time.Time) (*db.AuthCode, error)

	// 积分
	GetCredits(ctx context.Context, userID string) (*db.Credit, error)
	EnsureCredits(ctx context.Context, userID string) (*db.Credit, bool, error)
	AddCredits(ctx context.Context, userID string, delta int) error

	// 训练任务
	ReserveModel(ctx context.Context, m *db.Model, charge int) error
	CompleteModelSubmission(ctx context.Context, modelID uint, tuneID string, sampleURIs []string) ([]db.Sample, error)
	ReleasePendingModel(ctx context.Context, modelID uint) (*db.Model, error)
	GetModel(ctx context.Context, modelID uint) (*db.Model, error)
	GetUserModel(ctx context.Context, userID string, modelID uint) (*db.Model, error)
	ListUserModels(ctx context.Context, userID string) ([]db.Model, error)
	UpdateModel(ctx context.Context, modelID uint, updates entity.ModelUpdates) error
	ListStaleModels(ctx context.Context, status string, before time.Time) ([]db.Model, error)

	// 样本与结果
	ListSamples(ctx context.Context, modelID uint) ([]db.Sample, error)
	CreateImages(ctx context.Context, images []db.Image) ([]db.Image, error)
	ListImages(ctx context.Context, modelID uint) ([]db.Image, error)
}
