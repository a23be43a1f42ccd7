// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ashureev/tradebot/internal/domain"
	"github.com/ashureev/tradebot/internal/logging"
)

const (
	defaultTradePolling    = 800 * time.Millisecond
	minTradePollingMillis  = 100
	defaultMaxTradeSeconds = 180
	defaultActionGapSecs   = 30
)

// Config holds all application configuration.
type Config struct {
	DBPath            string
	GatewayURL        string
	WebURL            string
	OperatorAddr      string
	OperatorToken     string
	HealthAddr        string
	BotFile           string
	WebAuthRetryDelay time.Duration
	TransportCooldown time.Duration
	OfferPollInterval time.Duration
	Bot               BotInfo
}

// BotInfo is the bot definition, normally read from a TOML file.
type BotInfo struct {
	Username             string   `toml:"username"`
	Password             string   `toml:"password"`
	DisplayName          string   `toml:"display_name"`
	DisplayNamePrefix    string   `toml:"display_name_prefix"`
	ChatResponse         string   `toml:"chat_response"`
	Admins               []uint64 `toml:"admins"`
	MaximumTradeTime     int      `toml:"maximum_trade_time"`
	MaximumActionGap     int      `toml:"maximum_action_gap"`
	TradePollingInterval int      `toml:"trade_polling_interval"`
	Inventories          []string `toml:"inventories"`
	APIKey               string   `toml:"api_key"`
	LogFile              string   `toml:"log_file"`
	LogLevel             string   `toml:"log_level"`
	ConsoleLogLevel      string   `toml:"console_log_level"`
	FileLogLevel         string   `toml:"file_log_level"`
	BotControlClass      string   `toml:"bot_control_class"`
}

// Load reads the bot file at botFile (if it exists) and applies environment overrides.
func Load(botFile string) (*Config, error) {
	cfg := &Config{
		DBPath:            getEnv("DB_PATH", "./data/tradebot.db"),
		GatewayURL:        getEnv("GATEWAY_URL", ""),
		WebURL:            getEnv("WEB_URL", ""),
		OperatorAddr:      getEnv("OPERATOR_ADDR", "127.0.0.1:8090"),
		OperatorToken:     getEnv("OPERATOR_TOKEN", ""),
		HealthAddr:        getEnv("HEALTH_ADDR", ""),
		BotFile:           botFile,
		WebAuthRetryDelay: getEnvDuration("WEB_AUTH_RETRY_DELAY", 2*time.Second),
		TransportCooldown: getEnvDuration("TRANSPORT_COOLDOWN", 45*time.Second),
		OfferPollInterval: getEnvDuration("OFFER_POLL_INTERVAL", 0),
		Bot: BotInfo{
			MaximumTradeTime: defaultMaxTradeSeconds,
			MaximumActionGap: defaultActionGapSecs,
			ConsoleLogLevel:  "info",
			FileLogLevel:     "info",
			BotControlClass:  "default",
		},
	}

	if botFile != "" {
		if _, err := toml.DecodeFile(botFile, &cfg.Bot); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read bot file %s: %w", botFile, err)
			}
			slog.Info("No bot file found, using environment variables", "path", botFile)
		}
	}

	cfg.Bot.Username = getEnv("BOT_USERNAME", cfg.Bot.Username)
	cfg.Bot.Password = getEnv("BOT_PASSWORD", cfg.Bot.Password)
	cfg.Bot.DisplayName = getEnv("BOT_DISPLAY_NAME", cfg.Bot.DisplayName)
	cfg.Bot.APIKey = getEnv("API_KEY", cfg.Bot.APIKey)
	cfg.Bot.LogFile = getEnv("BOT_LOG_FILE", cfg.Bot.LogFile)
	cfg.Bot.MaximumTradeTime = getEnvInt("MAXIMUM_TRADE_TIME", cfg.Bot.MaximumTradeTime)
	cfg.Bot.MaximumActionGap = getEnvInt("MAXIMUM_ACTION_GAP", cfg.Bot.MaximumActionGap)
	if cfg.Bot.DisplayName == "" {
		cfg.Bot.DisplayName = cfg.Bot.Username
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Bot.Username == "" {
		return fmt.Errorf("bot username cannot be empty")
	}
	if c.Bot.Password == "" {
		return fmt.Errorf("bot password cannot be empty")
	}
	if c.GatewayURL == "" {
		return fmt.Errorf("GATEWAY_URL cannot be empty")
	}
	if c.WebURL == "" {
		return fmt.Errorf("WEB_URL cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.WebAuthRetryDelay <= 0 {
		return fmt.Errorf("WEB_AUTH_RETRY_DELAY must be > 0")
	}
	if c.TransportCooldown < 0 {
		return fmt.Errorf("TRANSPORT_COOLDOWN must be >= 0")
	}
	if c.Bot.MaximumTradeTime <= 0 {
		return fmt.Errorf("maximum_trade_time must be > 0")
	}
	if c.Bot.MaximumActionGap <= 0 {
		return fmt.Errorf("maximum_action_gap must be > 0")
	}
	if _, err := c.Bot.InventoryContexts(); err != nil {
		return err
	}
	return nil
}

// TradeLimits returns the maximum trade duration, the maximum gap between partner
// actions and the trade polling interval. Intervals of 100ms or less fall back to 800ms.
func (b BotInfo) TradeLimits() (maxDuration, actionGap, pollInterval time.Duration) {
	maxDuration = time.Duration(b.MaximumTradeTime) * time.Second
	actionGap = time.Duration(b.MaximumActionGap) * time.Second
	pollInterval = defaultTradePolling
	if b.TradePollingInterval > minTradePollingMillis {
		pollInterval = time.Duration(b.TradePollingInterval) * time.Millisecond
	}
	return maxDuration, actionGap, pollInterval
}

// InventoryContexts parses the configured inventories.
func (b BotInfo) InventoryContexts() ([]domain.InventoryContext, error) {
	out := make([]domain.InventoryContext, 0, len(b.Inventories))
	for _, raw := range b.Inventories {
		c, err := domain.ParseInventoryContext(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// AdminIDs returns the configured admins as identities.
func (b BotInfo) AdminIDs() []domain.SteamID {
	out := make([]domain.SteamID, len(b.Admins))
	for i, a := range b.Admins {
		out[i] = domain.SteamID(a)
	}
	return out
}

// LogLevels resolves the console and file levels. The deprecated log_level key still
// sets the console level. Notes describe fallbacks the caller should surface.
func (b BotInfo) LogLevels() (console, file slog.Level, notes []string) {
	consoleRaw := b.ConsoleLogLevel
	if b.LogLevel != "" {
		consoleRaw = b.LogLevel
		notes = append(notes, "log_level is deprecated, use console_log_level instead")
	}

	var err error
	if console, err = logging.ParseLevel(consoleRaw); err != nil {
		notes = append(notes, fmt.Sprintf("console_log_level invalid or unspecified (%q), defaulting to info", consoleRaw))
	}
	if file, err = logging.ParseLevel(b.FileLogLevel); err != nil {
		notes = append(notes, fmt.Sprintf("file_log_level invalid or unspecified (%q), defaulting to info", b.FileLogLevel))
	}
	return console, file, notes
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
