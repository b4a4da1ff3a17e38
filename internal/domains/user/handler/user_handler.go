package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"wordmint-backend/internal/domains/user/model"
	"wordmint-backend/internal/domains/user/service"
	"wordmint-backend/internal/shared/response"
	"wordmint-backend/internal/shared/session"
)

// =====================================================
// USER HANDLER
// =====================================================

type UserHandler struct {
	service service.ServiceInterface
}

func NewUserHandler(svc service.ServiceInterface) *UserHandler {
	return &UserHandler{service: svc}
}

// Me trả về profile của author đang đăng nhập
// GET /api/v1/auth/me
func (h *UserHandler) Me(c *gin.Context) {
	sess, err := session.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "authentication required")
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), sess.FID)
	if errors.Is(err, model.ErrUserNotFound) {
		// chưa từng viết: tạo profile từ session
		profile, err = h.service.EnsureProfile(c.Request.Context(), sess, model.UpsertProfileRequest{})
	}
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// Upsert tạo hoặc refresh profile từ session
// POST /api/v1/users
func (h *UserHandler) Upsert(c *gin.Context) {
	sess, err := session.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req model.UpsertProfileRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}

	profile, err := h.service.EnsureProfile(c.Request.Context(), sess, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// GetByFID
// GET /api/v1/users/:fid
func (h *UserHandler) GetByFID(c *gin.Context) {
	fid, ok := ParseFID(c)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), fid)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// ParseFID đọc :fid param, tự trả 400 khi không hợp lệ
func ParseFID(c *gin.Context) (int64, bool) {
	fid, err := strconv.ParseInt(c.Param("fid"), 10, 64)
	if err != nil || fid < 1 {
		response.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeInvalidFID, "fid must be a positive integer")
		return 0, false
	}
	return fid, true
}

func (h *UserHandler) handleError(c *gin.Context, err error) {
	var ue *model.UserError
	if errors.As(err, &ue) {
		switch ue.Code {
		case model.ErrCodeUserNotFound:
			response.ErrorResponse(c, http.StatusNotFound, ue.Code, ue.Message)
		case model.ErrCodeInvalidProfile, model.ErrCodeInvalidFID:
			response.ErrorWithDetails(c, http.StatusBadRequest, ue.Code, ue.Message, errDetails(ue.Err))
		default:
			response.ErrorResponse(c, http.StatusBadRequest, ue.Code, ue.Message)
		}
		return
	}

	log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("user request failed")
	response.InternalServerError(c, "internal server error")
}

func errDetails(err error) interface{} {
	if err == nil {
		return nil
	}
	return err.Error()
}
