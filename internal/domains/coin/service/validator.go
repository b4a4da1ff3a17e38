package service

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"wordmint-backend/internal/domains/coin/model"
)

var (
	notBlank = validation.By(func(v interface{}) error {
		if s, _ := v.(string); strings.TrimSpace(s) == "" {
			return errors.New("cannot be blank")
		}
		return nil
	})

	hexAddress = validation.By(func(v interface{}) error {
		s, _ := v.(string)
		if s != "" && !(strings.HasPrefix(s, "0x") && common.IsHexAddress(s)) {
			return errors.New("must be a 0x-prefixed 20-byte hex address")
		}
		return nil
	})
)

// ValidateSubmission kiểm tra các field bắt buộc trước khi làm bất cứ việc gì tốn tiền.
// Ngưỡng từ tối thiểu để tạo coin được kiểm ở workflow, không phải ở đây.
func ValidateSubmission(sub model.Submission) error {
	err := validation.ValidateStruct(&sub,
		validation.Field(&sub.Content, notBlank),
		validation.Field(&sub.WordCount, validation.Required, validation.Min(1)),
		validation.Field(&sub.StreakDay, validation.Required, validation.Min(1)),
		validation.Field(&sub.AuthorFID, validation.Required, validation.Min(int64(1))),
		validation.Field(&sub.AuthorAddress, notBlank, hexAddress),
		validation.Field(&sub.AuthorHandle, notBlank),
		validation.Field(&sub.PriorCoinCount, validation.Min(0)),
	)
	if err != nil {
		return model.NewInvalidSubmission(err)
	}
	return nil
}

// IsHexAddress: 0x + 40 hex
func IsHexAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// IsHexHash: 0x + 64 hex
func IsHexHash(s string) bool {
	if len(s) != 2+2*common.HashLength || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, r := range s[2:] {
		if !isHexRune(r) {
			return false
		}
	}
	return true
}

func isHexRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
