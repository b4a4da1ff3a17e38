package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"wordmint-backend/internal/domains/coin/model"
	"wordmint-backend/internal/domains/coin/service"
	userhandler "wordmint-backend/internal/domains/user/handler"
	"wordmint-backend/internal/shared/response"
	"wordmint-backend/internal/shared/session"
)

// =====================================================
// COIN HANDLER
// =====================================================

type CoinHandler struct {
	service service.ServiceInterface
}

func NewCoinHandler(svc service.ServiceInterface) *CoinHandler {
	return &CoinHandler{service: svc}
}

// CreateCoin viết bài hôm nay + mint coin
// POST /api/v1/coins
func (h *CoinHandler) CreateCoin(c *gin.Context) {
	sess, err := session.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req model.CreateCoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	resp, err := h.service.CreateCoin(c.Request.Context(), sess, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp)
}

// Trade
// POST /api/v1/coins/:address/trades
func (h *CoinHandler) Trade(c *gin.Context) {
	sess, err := session.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req model.TradeCoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	result, err := h.service.Trade(c.Request.Context(), sess, c.Param("address"), req)
	if err != nil {
		var ce *model.CoinError
		if result != nil && errors.As(err, &ce) {
			response.ErrorWithDetails(c, statusFor(ce.Code), ce.Code, ce.Message, result)
			return
		}
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetCoin
// GET /api/v1/coins/:address
func (h *CoinHandler) GetCoin(c *gin.Context) {
	address := c.Param("address")
	if !service.IsHexAddress(address) {
		response.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeInvalidAddress, "address must be a 0x-prefixed 20-byte hex address")
		return
	}

	detail, err := h.service.GetCoinDetail(c.Request.Context(), address)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, detail)
}

// ListWritings
// GET /api/v1/users/:fid/writings?limit=10
func (h *CoinHandler) ListWritings(c *gin.Context) {
	fid, ok := userhandler.ParseFID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	resp, err := h.service.ListWritings(c.Request.Context(), fid, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, resp, &response.Meta{Limit: limit, Total: len(resp.Writings)})
}

// WroteToday
// GET /api/v1/users/:fid/wrote-today
func (h *CoinHandler) WroteToday(c *gin.Context) {
	fid, ok := userhandler.ParseFID(c)
	if !ok {
		return
	}

	resp, err := h.service.WroteToday(c.Request.Context(), fid)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

// DailyStats
// GET /api/v1/stats/daily
func (h *CoinHandler) DailyStats(c *gin.Context) {
	stats, err := h.service.DailyStats(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// Diagnostics kiểm tra pinning + wallet
// GET /api/v1/diagnostics
func (h *CoinHandler) Diagnostics(c *gin.Context) {
	resp, err := h.service.Diagnostics(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// =====================================================
// ERROR MAPPING
// =====================================================

func statusFor(code string) int {
	switch code {
	case model.ErrCodeInvalidSubmission, model.ErrCodeBelowMinWords,
		model.ErrCodeInvalidAddress, model.ErrCodeInvalidTrade:
		return http.StatusBadRequest
	case model.ErrCodeAlreadyWroteToday, model.ErrCodeCreateInProgress:
		return http.StatusConflict
	case model.ErrCodeWritingNotFound, model.ErrCodeUserNotFound, model.ErrCodeMintNotFound:
		return http.StatusNotFound
	case model.ErrCodeMintPending:
		return http.StatusAccepted
	case model.ErrCodeSpendCapExceeded:
		return http.StatusTooManyRequests
	case model.ErrCodeWalletNotConnected, model.ErrCodeWalletTimeout:
		return http.StatusServiceUnavailable
	case model.ErrCodeDeployFailed, model.ErrCodeTradeFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *CoinHandler) handleError(c *gin.Context, err error) {
	var ce *model.CoinError
	if errors.As(err, &ce) {
		status := statusFor(ce.Code)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("code", ce.Code).Str("request_id", c.GetString("request_id")).Msg("coin request failed")
		}
		response.ErrorResponse(c, status, ce.Code, ce.Message)
		return
	}

	log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("coin request failed")
	response.InternalServerError(c, "internal server error")
}
