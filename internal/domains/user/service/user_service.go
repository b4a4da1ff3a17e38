package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"wordmint-backend/internal/domains/user/model"
	"wordmint-backend/internal/domains/user/repository"
	"wordmint-backend/internal/shared/session"
)

type userService struct {
	repo repository.Repository
	now  func() time.Time
}

func NewUserService(repo repository.Repository) ServiceInterface {
	return &userService{repo: repo, now: time.Now}
}

func (s *userService) GetProfile(ctx context.Context, fid int64) (*model.ProfileResponse, error) {
	if fid < 1 {
		return nil, model.NewUserError(model.ErrCodeInvalidFID, "invalid fid", model.ErrInvalidFID)
	}

	u, err := s.repo.GetByFID(ctx, fid)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.NewUserError(model.ErrCodeUserNotFound, "user not found", err)
		}
		return nil, err
	}

	resp := model.ToProfileResponse(u, s.now())
	return &resp, nil
}

func (s *userService) EnsureProfile(ctx context.Context, sess session.Session, req model.UpsertProfileRequest) (*model.ProfileResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewUserError(model.ErrCodeInvalidProfile, "invalid profile", err)
	}

	p := model.Profile{
		FID:           sess.FID,
		Username:      sess.Username,
		DisplayName:   sess.DisplayName,
		PfpURL:        sess.PfpURL,
		WalletAddress: sess.Address,
	}
	if req.DisplayName != nil {
		p.DisplayName = *req.DisplayName
	}
	if req.PfpURL != nil {
		p.PfpURL = *req.PfpURL
	}
	if req.WalletAddress != nil {
		p.WalletAddress = *req.WalletAddress
	}
	if p.Username == "" {
		p.Username = sess.Handle()
	}

	if err := p.Validate(); err != nil {
		return nil, model.NewUserError(model.ErrCodeInvalidProfile, "invalid profile", err)
	}

	u, err := s.repo.Upsert(ctx, p)
	if err != nil {
		return nil, err
	}

	log.Info().Int64("fid", u.FID).Str("username", u.Username).Msg("profile upserted")
	resp := model.ToProfileResponse(u, s.now())
	return &resp, nil
}
