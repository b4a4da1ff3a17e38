package model

const (
	// LegendThreshold: writing đạt >= 111 words được gắn cờ "111 Legend"
	LegendThreshold = 111

	// MinCreationWords là ngưỡng mặc định để được tạo coin (config COIN_MIN_WORDS)
	MinCreationWords = 100

	MaxSymbolHandleLen = 8
	PreviewLen         = 100

	// PlaceholderMetadataURI là document đã pin sẵn, dùng khi pinning không khả dụng
	PlaceholderMetadataURI = "ipfs://bafkreihz5knnvvsvmaxlpw3kout23te6yboquyvvs72wzfulgrkwj7r7dm"

	// Platform tag trong metadata
	Platform = "111words"

	DateLayout = "2006-01-02"
)
