package service

import (
	"context"

	"wordmint-backend/internal/domains/user/model"
	"wordmint-backend/internal/shared/session"
)

// =====================================================
// USER SERVICE INTERFACE
// =====================================================

type ServiceInterface interface {
	// GetProfile trả về profile + streak info của một author
	GetProfile(ctx context.Context, fid int64) (*model.ProfileResponse, error)

	// EnsureProfile tạo/cập nhật profile từ session, request có thể override
	EnsureProfile(ctx context.Context, s session.Session, req model.UpsertProfileRequest) (*model.ProfileResponse, error)
}
