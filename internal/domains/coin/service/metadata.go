package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"wordmint-backend/internal/domains/coin/model"
)

// BuildMetadata is pure: the same submission, timestamp and image always
// produce the same document.
func BuildMetadata(sub model.Submission, createdAt time.Time, imageURI string) model.CoinMetadata {
	index := sub.Index()
	handle := strings.TrimLeft(sub.AuthorHandle, "@")
	legend := model.IsLegend(sub.WordCount)

	return model.CoinMetadata{
		Name:        fmt.Sprintf("@%s Creation #%d (Day %d)", handle, index, sub.StreakDay),
		Symbol:      Symbol(handle, index),
		Description: describe(sub.WordCount, sub.StreakDay, legend),
		Image:       imageURI,
		Content:     sub.Content,
		Attributes: []model.Attribute{
			{TraitType: "Word Count", Value: strconv.Itoa(sub.WordCount)},
			{TraitType: "Streak Day", Value: strconv.Itoa(sub.StreakDay)},
			{TraitType: "111 Legend", Value: yesNo(legend)},
			{TraitType: "Creator FID", Value: strconv.FormatInt(sub.AuthorFID, 10)},
			{TraitType: "Creator", Value: "@" + handle},
			{TraitType: "Coin Number", Value: strconv.Itoa(index)},
			{TraitType: "Creation Date", Value: createdAt.UTC().Format(model.DateLayout)},
			{TraitType: "Content Preview", Value: preview(sub.Content)},
		},
	}
}

// Symbol = handle viết hoa, chỉ giữ A-Z0-9, tối đa 8 ký tự, + coin index.
func Symbol(handle string, index int) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimLeft(handle, "@")) {
		if b.Len() == model.MaxSymbolHandleLen {
			break
		}
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		b.WriteString("W")
	}
	return b.String() + strconv.Itoa(index)
}

// Serialize produces the compact JSON document that gets pinned.
func Serialize(meta model.CoinMetadata) ([]byte, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("serialize metadata: %w", err)
	}
	return data, nil
}

func describe(words, day int, legend bool) string {
	d := fmt.Sprintf("Daily writing creation from %s. %d words written on day %d of the writing streak.", model.Platform, words, day)
	if legend {
		d += fmt.Sprintf(" A %d Legend: this writing reached %d words.", model.LegendThreshold, model.LegendThreshold)
	}
	return d
}

func preview(content string) string {
	content = strings.TrimFunc(content, unicode.IsSpace)
	runes := []rune(content)
	if len(runes) <= model.PreviewLen {
		return content
	}
	return string(runes[:model.PreviewLen]) + "..."
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
