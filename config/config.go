package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Sensitive data (bot token, Terabox cookie, token secret) must be
// provided via the environment or the config file, never defaulted in code.
type AppConfig struct {
	// Telegram
	BotToken         string
	DumpChatID       int64
	FsubChatID       int64
	AdminIDs         []int64
	BroadcastEnabled bool

	// Access tokens
	TokenSecret      string
	TokenExpiryHours int

	// Download pipeline
	DownloadDir      string
	BlockedKeywords  []string
	SpamDelaySeconds int

	// Terabox upstream
	TeraboxCookie         string
	TeraboxBaseURL        string
	RequestTimeoutSeconds int
	ResolveCacheTTLMin    int

	// User store: StorePath is used unless DatabaseURI points at MySQL.
	StorePath   string
	DatabaseURI string

	// Status API ("disabled" turns it off)
	StatusPort string

	// Redis for the shared resolution cache (optional)
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN must be set in environment variables")
	}
	if cfg.TokenSecret == "" {
		log.Fatal("TOKEN_SECRET must be set in environment variables")
	}
	if cfg.TeraboxCookie == "" {
		log.Fatal("TERABOX_COOKIE must be set in environment variables")
	}

	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		log.Fatalf("cannot create download directory %s: %v", cfg.DownloadDir, err)
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads the JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			}
		}
		return 0
	}
	getInt64 := func(m map[string]any, key string) int64 {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int64(t)
			case int:
				return int64(t)
			case string:
				n, _ := strconv.ParseInt(t, 10, 64)
				return n
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string, def bool) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return def
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}
	getInt64Slice := func(m map[string]any, key string) []int64 {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]int64, 0, len(arr))
				for _, it := range arr {
					switch t := it.(type) {
					case float64:
						res = append(res, int64(t))
					case string:
						if n, err := strconv.ParseInt(t, 10, 64); err == nil {
							res = append(res, n)
						}
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.BotToken = getString(app, "BotToken")
		out.TokenSecret = getString(app, "TokenSecret")
		out.DumpChatID = getInt64(app, "DumpChatID")
		out.FsubChatID = getInt64(app, "FsubChatID")
		if ids := getInt64Slice(app, "AdminIDs"); len(ids) > 0 {
			out.AdminIDs = ids
		}
		out.BroadcastEnabled = getBool(app, "BroadcastEnabled", true)
		if v := getInt(app, "TokenExpiryHours"); v != 0 {
			out.TokenExpiryHours = v
		}
		if v := getInt(app, "SpamDelaySeconds"); v != 0 {
			out.SpamDelaySeconds = v
		}
		if v := getString(app, "DownloadDir"); v != "" {
			out.DownloadDir = v
		}
		if list := getStringSlice(app, "BlockedKeywords"); len(list) > 0 {
			out.BlockedKeywords = list
		}
		if v := getString(app, "StatusPort"); v != "" {
			out.StatusPort = v
		}
	}

	if tb, ok := raw["terabox"].(map[string]any); ok {
		out.TeraboxCookie = getString(tb, "Cookie")
		if v := getString(tb, "BaseURL"); v != "" {
			out.TeraboxBaseURL = v
		}
		if v := getInt(tb, "RequestTimeoutSeconds"); v != 0 {
			out.RequestTimeoutSeconds = v
		}
		if v := getInt(tb, "CacheTTLMinutes"); v != 0 {
			out.ResolveCacheTTLMin = v
		}
	}

	if st, ok := raw["store"].(map[string]any); ok {
		if v := getString(st, "Path"); v != "" {
			out.StorePath = v
		}
		out.DatabaseURI = getString(st, "DatabaseURI")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "Compress", false)
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.TokenExpiryHours == 0 {
		c.TokenExpiryHours = 24
	}
	if c.SpamDelaySeconds == 0 {
		c.SpamDelaySeconds = 60
	}
	if c.DownloadDir == "" {
		c.DownloadDir = "downloads"
	}
	if len(c.BlockedKeywords) == 0 {
		c.BlockedKeywords = []string{"porn", "xxx", "sex", "hentai", "nudity", "adult"}
	}
	if c.TeraboxBaseURL == "" {
		c.TeraboxBaseURL = "https://www.terabox.com"
	}
	if c.RequestTimeoutSeconds == 0 {
		c.RequestTimeoutSeconds = 30
	}
	if c.ResolveCacheTTLMin == 0 {
		c.ResolveCacheTTLMin = 30
	}
	if c.StorePath == "" {
		c.StorePath = "bot_database.json"
	}
	if c.StatusPort == "" {
		c.StatusPort = "8081"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("BOT_TOKEN", ""); v != "" {
		c.BotToken = v
	}
	if v := getEnv("TOKEN_SECRET", ""); v != "" {
		c.TokenSecret = v
	}
	if v := getEnv("DUMP_CHAT_ID", ""); v != "" {
		c.DumpChatID = mustParseInt64(v)
	}
	if v := getEnv("FSUB_ID", ""); v != "" {
		c.FsubChatID = mustParseInt64(v)
	}
	if v := getEnv("ADMIN_IDS", ""); v != "" {
		c.AdminIDs = parseIDList(v)
	}
	if v := getEnv("BROADCAST", ""); v != "" {
		c.BroadcastEnabled = parseBool(v)
	}
	if v := getEnv("TOKEN_EXPIRY_HOURS", ""); v != "" {
		c.TokenExpiryHours = mustParseInt(v)
	}
	if v := getEnv("SPAM_DELAY_SECONDS", ""); v != "" {
		c.SpamDelaySeconds = mustParseInt(v)
	}
	if v := getEnv("DOWNLOAD_DIR", ""); v != "" {
		c.DownloadDir = v
	}
	if v := getEnv("BLOCKED_KEYWORDS", ""); v != "" {
		c.BlockedKeywords = splitAndTrim(v)
	}
	if v := getEnv("TERABOX_COOKIE", ""); v != "" {
		c.TeraboxCookie = v
	}
	if v := getEnv("TERABOX_BASE_URL", ""); v != "" {
		c.TeraboxBaseURL = v
	}
	if v := getEnv("TERABOX_TIMEOUT_SECONDS", ""); v != "" {
		c.RequestTimeoutSeconds = mustParseInt(v)
	}
	if v := getEnv("RESOLVE_CACHE_TTL_MINUTES", ""); v != "" {
		c.ResolveCacheTTLMin = mustParseInt(v)
	}
	if v := getEnv("DATABASE_FILE", ""); v != "" {
		c.StorePath = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("STATUS_PORT", ""); v != "" {
		c.StatusPort = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = parseBool(v)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func mustParseInt64(val string) int64 {
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func parseBool(val string) bool {
	switch strings.ToLower(val) {
	case "true", "1", "t", "y", "yes":
		return true
	}
	return false
}

// parseIDList parses a comma separated list of user IDs, skipping invalid entries.
func parseIDList(raw string) []int64 {
	ids := []int64{}
	for _, item := range splitAndTrim(raw) {
		id, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			log.Printf("invalid admin ID %q, skipping", item)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
