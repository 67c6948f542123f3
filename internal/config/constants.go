package config

import "time"

const (
	// Recommendation text limit, in characters, matching the social share constraint
	MaxRecommendationText = 140

	// Listing page sizes
	DefaultListLimit = 10
	MaxListLimit     = 50

	// Wallet history shown by /wallet and GET /me/transactions
	TransactionsPerPage = 10

	// Claims re-driven per recovery run
	RecoveryBatchSize = 100

	// Telegram limits
	MaxTelegramMessageLen = 4096
	MaxCallbackDataLen    = 64

	// Per-request store timeout for bot handlers
	RequestTimeout = 15 * time.Second

	// HTTP server
	ReadHeaderTimeout = 5 * time.Second
	ShutdownTimeout   = 10 * time.Second

	// Idle rate limiters are dropped after this long
	LimiterIdleTTL = 10 * time.Minute

	CatalogCacheTTL = time.Minute

	// Deep link payload prefixes for /start
	StartBusinessPrefix       = "b_"
	StartRecommendationPrefix = "r_"
)
