package model

import (
	"time"

	"github.com/google/uuid"
)

// User là author profile + aggregate counters.
// Counters chỉ được thay đổi bởi coin commit transaction.
type User struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	FID           int64      `json:"fid" db:"fid"`
	Username      string     `json:"username" db:"username"`
	DisplayName   string     `json:"display_name" db:"display_name"`
	PfpURL        string     `json:"pfp_url" db:"pfp_url"`
	WalletAddress string     `json:"wallet_address" db:"wallet_address"`
	CurrentStreak int        `json:"current_streak" db:"current_streak"`
	LongestStreak int        `json:"longest_streak" db:"longest_streak"`
	TotalCoins    int        `json:"total_coins" db:"total_coins"`
	TotalWords    int64      `json:"total_words" db:"total_words"`
	LastWriteDate *time.Time `json:"last_write_date,omitempty" db:"last_write_date"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Day cắt thời điểm về ngày UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WroteOn reports whether the last writing falls on the given UTC day.
func (u *User) WroteOn(day time.Time) bool {
	return u.LastWriteDate != nil && Day(*u.LastWriteDate).Equal(Day(day))
}

// NextStreak returns the streak the author reaches by writing on day:
// continuation from yesterday increments, any gap resets to 1.
func (u *User) NextStreak(day time.Time) int {
	if u.LastWriteDate == nil {
		return 1
	}
	gap := int(Day(day).Sub(Day(*u.LastWriteDate)).Hours() / 24)
	switch {
	case gap == 0:
		if u.CurrentStreak < 1 {
			return 1
		}
		return u.CurrentStreak
	case gap == 1:
		return u.CurrentStreak + 1
	default:
		return 1
	}
}

// Backdated reports whether day is older than the last recorded writing.
// Xảy ra khi reconciler commit lại một mint của ngày trước.
func (u *User) Backdated(day time.Time) bool {
	return u.LastWriteDate != nil && Day(day).Before(Day(*u.LastWriteDate))
}

// ApplyWriting cập nhật counters cho một writing mới trên day.
// Writing backdated chỉ cộng words/coins; streak và last_write_date giữ nguyên.
func (u *User) ApplyWriting(day time.Time, words int, withCoin bool) {
	u.TotalWords += int64(words)
	if withCoin {
		u.TotalCoins++
	}
	if u.Backdated(day) {
		return
	}

	u.CurrentStreak = u.NextStreak(day)
	if u.CurrentStreak > u.LongestStreak {
		u.LongestStreak = u.CurrentStreak
	}
	d := Day(day)
	u.LastWriteDate = &d
}
