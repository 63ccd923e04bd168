// Package config loads process configuration from flags, environment
// variables and an optional .env file, plus the YAML game catalog.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/mr-tron/base58"
)

// Defaults.
const (
	DefaultRPCEndpoint      = "https://api.mainnet-beta.solana.com"
	DefaultJupiterQuoteURL  = "https://quote-api.jup.ag/v6"
	DefaultJupiterPriceURL  = "https://price.jup.ag/v4"
	DefaultMetisURL         = "https://pumpfun-api.quicknode.com/v1"
	DefaultNAGMint          = "957tKDz9GKtY3X54WuJUkhYfnNJsrAoyQQZpMjS1pump"
	DefaultMinTokenBalance  = 100000
	DefaultSlippageBps      = 100
	DefaultPriorityFee      = 100000
	DefaultWebAppURL        = "https://novarcadeglitch.dev"
	DefaultHTTPAddr         = ":8080"
	DefaultBotAPIAddr       = ":3001"
	DefaultStateFile        = "data/state.json"
	DefaultTrialsFile       = "trials.json"
	DefaultJupiterRPS       = 10
	DefaultJupiterBurst     = 20
	DefaultSessionTTL       = 24 * time.Hour
	DefaultShutdownTimeout  = 30 * time.Second
	DefaultPriceInterval    = 30 * time.Second
	DefaultConfirmTimeout   = 60 * time.Second
	DefaultWaitlistEndpoint = "/api/battle-arena/waitlist"
)

// Config holds settings shared by the server, the bot and the CLI.
type Config struct {
	LogLevel string

	// Solana
	RPCEndpoint string
	WSEndpoint  string

	// Storage
	PostgresDSN   string
	ClickhouseDSN string
	UseMemory     bool
	StateFile     string

	// Token gate
	NAGMint         string
	MinTokenBalance float64

	// Swap
	JupiterQuoteURL string
	JupiterPriceURL string
	JupiterRPS      float64
	JupiterBurst    int
	MetisURL        string
	MetisAPIKey     string
	SlippageBps     int
	PriorityFee     uint64
	ConfirmTimeout  time.Duration
	PriceInterval   time.Duration

	// HTTP API
	HTTPAddr        string
	APIBaseURL      string
	AdminSecret     string
	JWTSecret       string
	SessionTTL      time.Duration
	ShutdownTimeout time.Duration
	CatalogPath     string

	// Telegram bot
	TelegramToken  string
	WebAppURL      string
	WebhookURL     string
	BotAPIAddr     string
	TrialsFile     string
	DepositAddress string
}

// LoadDotEnv loads .env.local and .env from the working directory if
// present. Existing environment variables win over both files, and
// .env.local wins over .env.
func LoadDotEnv() {
	loadDotEnv(".")
}

func loadDotEnv(dir string) {
	// godotenv.Load never overwrites a set variable, so the first file
	// to define a key wins. Missing files are skipped one by one.
	for _, name := range []string{".env.local", ".env"} {
		_ = godotenv.Load(filepath.Join(dir, name))
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

// RegisterFlags binds cfg fields to fs with environment variable defaults.
func RegisterFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.LogLevel, "log-level", envString("LOG_LEVEL", "info"), "Log level, optionally per subsystem (info,SWAP=debug)")

	fs.StringVar(&cfg.RPCEndpoint, "rpc-endpoint", envString("SOLANA_RPC_ENDPOINT", DefaultRPCEndpoint), "Solana RPC HTTP endpoint")
	fs.StringVar(&cfg.WSEndpoint, "ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint (optional, enables signatureSubscribe)")

	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	fs.StringVar(&cfg.ClickhouseDSN, "clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, activity feed)")
	fs.BoolVar(&cfg.UseMemory, "use-memory", envBool("USE_MEMORY", false), "Use in-memory storage instead of PostgreSQL")
	fs.StringVar(&cfg.StateFile, "state-file", envString("STATE_FILE", DefaultStateFile), "Local key-value state file")

	fs.StringVar(&cfg.NAGMint, "nag-mint", envString("NAG_TOKEN_MINT", DefaultNAGMint), "Gate token mint address")
	fs.Float64Var(&cfg.MinTokenBalance, "min-token-balance", envFloat("MIN_TOKEN_BALANCE", DefaultMinTokenBalance), "Minimum gate token balance for unlimited access")

	fs.StringVar(&cfg.JupiterQuoteURL, "jupiter-quote-url", envString("JUPITER_QUOTE_API", DefaultJupiterQuoteURL), "Jupiter quote/swap API base URL")
	fs.StringVar(&cfg.JupiterPriceURL, "jupiter-price-url", envString("JUPITER_PRICE_API", DefaultJupiterPriceURL), "Jupiter price API base URL")
	fs.Float64Var(&cfg.JupiterRPS, "jupiter-rps", envFloat("JUPITER_RPS", DefaultJupiterRPS), "Jupiter proxy requests per second")
	fs.IntVar(&cfg.JupiterBurst, "jupiter-burst", envInt("JUPITER_BURST", DefaultJupiterBurst), "Jupiter proxy burst size")
	fs.StringVar(&cfg.MetisURL, "metis-url", envString("METIS_API_URL", DefaultMetisURL), "Pump.fun Metis API base URL")
	fs.StringVar(&cfg.MetisAPIKey, "metis-api-key", os.Getenv("METIS_API_KEY"), "Pump.fun Metis API key (enables bonding-curve routing)")
	fs.IntVar(&cfg.SlippageBps, "slippage-bps", envInt("SLIPPAGE_BPS", DefaultSlippageBps), "Default slippage in basis points")
	fs.Uint64Var(&cfg.PriorityFee, "priority-fee", uint64(envInt("PRIORITY_FEE_LAMPORTS", DefaultPriorityFee)), "Prioritization fee in lamports")
	fs.DurationVar(&cfg.ConfirmTimeout, "confirm-timeout", envDuration("CONFIRM_TIMEOUT", DefaultConfirmTimeout), "Transaction confirmation timeout")
	fs.DurationVar(&cfg.PriceInterval, "price-interval", envDuration("PRICE_INTERVAL", DefaultPriceInterval), "Price refresh interval")

	fs.StringVar(&cfg.HTTPAddr, "http-addr", envString("HTTP_ADDR", DefaultHTTPAddr), "HTTP listen address")
	fs.StringVar(&cfg.APIBaseURL, "api-url", envString("API_URL", "http://localhost"+DefaultHTTPAddr), "Arcade API base URL used by clients")
	fs.StringVar(&cfg.AdminSecret, "admin-secret", os.Getenv("ADMIN_SECRET"), "Admin key for waitlist export")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", os.Getenv("JWT_SECRET"), "HMAC secret for session tokens")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", envDuration("SESSION_TTL", DefaultSessionTTL), "Session token lifetime")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", envDuration("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout), "Graceful shutdown timeout")
	fs.StringVar(&cfg.CatalogPath, "catalog", os.Getenv("CATALOG_PATH"), "YAML catalog of tokens, games and battle modes")

	fs.StringVar(&cfg.TelegramToken, "telegram-token", os.Getenv("TELEGRAM_BOT_TOKEN"), "Telegram bot token")
	fs.StringVar(&cfg.WebAppURL, "webapp-url", envString("WEBAPP_URL", DefaultWebAppURL), "Arcade web app URL")
	fs.StringVar(&cfg.WebhookURL, "webhook-url", os.Getenv("WEBHOOK_URL"), "Public webhook URL (enables webhook mode and bot API)")
	fs.StringVar(&cfg.BotAPIAddr, "bot-api-addr", envString("BOT_API_ADDR", DefaultBotAPIAddr), "Bot API listen address in webhook mode")
	fs.StringVar(&cfg.TrialsFile, "trials-file", envString("TRIALS_FILE", DefaultTrialsFile), "Bot trial state file")
	fs.StringVar(&cfg.DepositAddress, "deposit-address", os.Getenv("DEPOSIT_ADDRESS"), "Solana deposit address shown by the bot")
}

// Load loads .env, registers flags on a new FlagSet and parses args.
func Load(name string, args []string) (*Config, *flag.FlagSet, error) {
	LoadDotEnv()

	cfg := &Config{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	RegisterFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return cfg, fs, nil
}

// ValidateServer checks settings required by the API server.
func (c *Config) ValidateServer() error {
	var errs []error
	if c.RPCEndpoint == "" {
		errs = append(errs, errors.New("--rpc-endpoint is required"))
	}
	if !c.UseMemory && c.PostgresDSN == "" {
		errs = append(errs, errors.New("--postgres-dsn is required (use --use-memory for in-memory storage)"))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("--jwt-secret must be at least 16 bytes"))
	}
	if c.JupiterRPS <= 0 || c.JupiterBurst <= 0 {
		errs = append(errs, errors.New("--jupiter-rps and --jupiter-burst must be positive"))
	}
	errs = append(errs, c.Validate())
	return errors.Join(errs...)
}

// ValidateBot checks settings required by the Telegram bot.
func (c *Config) ValidateBot() error {
	var errs []error
	if c.TelegramToken == "" || c.TelegramToken == "YOUR_BOT_TOKEN_HERE" {
		errs = append(errs, errors.New("--telegram-token (TELEGRAM_BOT_TOKEN) is required"))
	}
	if c.WebAppURL == "" {
		errs = append(errs, errors.New("--webapp-url is required"))
	}
	if c.TrialsFile == "" {
		errs = append(errs, errors.New("--trials-file is required"))
	}
	errs = append(errs, c.Validate())
	return errors.Join(errs...)
}

// Validate checks settings shared by every binary.
func (c *Config) Validate() error {
	var errs []error
	if c.SlippageBps < 0 || c.SlippageBps > 10000 {
		errs = append(errs, fmt.Errorf("--slippage-bps %d out of range [0,10000]", c.SlippageBps))
	}
	if c.MinTokenBalance < 0 {
		errs = append(errs, errors.New("--min-token-balance must not be negative"))
	}
	if err := checkAddress(c.NAGMint); err != nil {
		errs = append(errs, fmt.Errorf("--nag-mint: %w", err))
	}
	return errors.Join(errs...)
}

func checkAddress(s string) error {
	b, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("address %q: %w", s, err)
	}
	if len(b) != 32 {
		return fmt.Errorf("address %q decodes to %d bytes, want 32", s, len(b))
	}
	return nil
}
