package session

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// contextKey là key lưu Session trong gin.Context
const contextKey = "session"

var ErrNoSession = errors.New("no authenticated session")

// Session is the signed-in author, taken from the verified token.
// It is passed explicitly to every orchestration call.
type Session struct {
	FID         int64  `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	PfpURL      string `json:"pfp_url,omitempty"`
	Address     string `json:"address,omitempty"`
}

// Handle returns the author's display handle, username when present.
func (s Session) Handle() string {
	if s.Username != "" {
		return s.Username
	}
	return s.DisplayName
}

func Set(c *gin.Context, s Session) {
	c.Set(contextKey, s)
}

// FromGin lấy Session đã được AuthMiddleware set
func FromGin(c *gin.Context) (Session, error) {
	v, ok := c.Get(contextKey)
	if !ok {
		return Session{}, ErrNoSession
	}
	s, ok := v.(Session)
	if !ok || s.FID < 1 {
		return Session{}, ErrNoSession
	}
	return s, nil
}
