package repository

import (
	"context"

	"wordmint-backend/internal/domains/user/model"
)

// =====================================================
// USER REPOSITORY INTERFACE
// =====================================================

type Repository interface {
	// GetByFID trả về model.ErrUserNotFound khi chưa có profile
	GetByFID(ctx context.Context, fid int64) (*model.User, error)

	// Upsert tạo profile hoặc cập nhật các field profile (không đụng counters)
	Upsert(ctx context.Context, p model.Profile) (*model.User, error)

	// InvalidateCache xóa cached profile sau khi coin commit đổi counters
	InvalidateCache(ctx context.Context, fid int64) error
}
