package model

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var hexAddressRule = validation.Match(regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)).Error("must be a 0x-prefixed 20-byte hex address")

// UpsertProfileRequest: các field tùy chọn ghi đè lên dữ liệu từ session
type UpsertProfileRequest struct {
	DisplayName   *string `json:"display_name"`
	PfpURL        *string `json:"pfp_url"`
	WalletAddress *string `json:"wallet_address"`
}

func (r UpsertProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DisplayName, validation.NilOrNotEmpty, validation.Length(1, 100)),
		validation.Field(&r.PfpURL, validation.NilOrNotEmpty, is.URL),
		validation.Field(&r.WalletAddress, validation.NilOrNotEmpty, hexAddressRule),
	)
}

// Profile là input đã merge (session + request) cho EnsureProfile
type Profile struct {
	FID           int64
	Username      string
	DisplayName   string
	PfpURL        string
	WalletAddress string
}

func (p Profile) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FID, validation.Required, validation.Min(int64(1))),
		validation.Field(&p.Username, validation.Required, validation.Length(1, 64)),
		validation.Field(&p.WalletAddress, validation.When(p.WalletAddress != "", hexAddressRule)),
	)
}

type ProfileResponse struct {
	FID           int64   `json:"fid"`
	Username      string  `json:"username"`
	DisplayName   string  `json:"display_name"`
	PfpURL        string  `json:"pfp_url"`
	WalletAddress string  `json:"wallet_address,omitempty"`
	CurrentStreak int     `json:"current_streak"`
	LongestStreak int     `json:"longest_streak"`
	TotalCoins    int     `json:"total_coins"`
	TotalWords    int64   `json:"total_words"`
	LastWriteDate *string `json:"last_write_date,omitempty"`
	WroteToday    bool    `json:"wrote_today"`
	NextStreakDay int     `json:"next_streak_day"`
}

func ToProfileResponse(u *User, now time.Time) ProfileResponse {
	resp := ProfileResponse{
		FID:           u.FID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		PfpURL:        u.PfpURL,
		WalletAddress: u.WalletAddress,
		CurrentStreak: u.CurrentStreak,
		LongestStreak: u.LongestStreak,
		TotalCoins:    u.TotalCoins,
		TotalWords:    u.TotalWords,
		WroteToday:    u.WroteOn(now),
		NextStreakDay: u.NextStreak(now),
	}
	if u.LastWriteDate != nil {
		d := u.LastWriteDate.Format("2006-01-02")
		resp.LastWriteDate = &d
	}
	return resp
}
