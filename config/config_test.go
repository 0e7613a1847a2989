package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)

	if c.TokenExpiryHours != 24 {
		t.Errorf("TokenExpiryHours = %d, want 24", c.TokenExpiryHours)
	}
	if c.SpamDelaySeconds != 60 {
		t.Errorf("SpamDelaySeconds = %d, want 60", c.SpamDelaySeconds)
	}
	if c.DownloadDir != "downloads" {
		t.Errorf("DownloadDir = %q, want downloads", c.DownloadDir)
	}
	if c.TeraboxBaseURL != "https://www.terabox.com" {
		t.Errorf("TeraboxBaseURL = %q", c.TeraboxBaseURL)
	}
	if c.RequestTimeoutSeconds != 30 || c.ResolveCacheTTLMin != 30 {
		t.Errorf("timeouts = %d/%d, want 30/30", c.RequestTimeoutSeconds, c.ResolveCacheTTLMin)
	}
	if c.StorePath != "bot_database.json" {
		t.Errorf("StorePath = %q", c.StorePath)
	}
	if c.StatusPort != "8081" {
		t.Errorf("StatusPort = %q, want 8081", c.StatusPort)
	}
	if len(c.BlockedKeywords) == 0 {
		t.Error("BlockedKeywords default is empty")
	}
	if c.LogLevel != "info" || c.LogMaxSizeMB != 100 {
		t.Errorf("log defaults = %q/%d", c.LogLevel, c.LogMaxSizeMB)
	}

	// Defaults never touch set values.
	c2 := AppConfig{TokenExpiryHours: 6, StatusPort: "disabled"}
	applyDefaults(&c2)
	if c2.TokenExpiryHours != 6 || c2.StatusPort != "disabled" {
		t.Errorf("defaults overwrote set values: %d/%q", c2.TokenExpiryHours, c2.StatusPort)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("FSUB_ID", "-1001234567890")
	t.Setenv("ADMIN_IDS", "1, 2,oops, 3")
	t.Setenv("BROADCAST", "false")
	t.Setenv("TOKEN_EXPIRY_HOURS", "12")
	t.Setenv("BLOCKED_KEYWORDS", "foo, bar ,")
	t.Setenv("STATUS_PORT", "disabled")

	var c AppConfig
	applyDefaults(&c)
	applyEnvOverrides(&c)

	if c.BotToken != "123:abc" {
		t.Errorf("BotToken = %q", c.BotToken)
	}
	if c.FsubChatID != -1001234567890 {
		t.Errorf("FsubChatID = %d", c.FsubChatID)
	}
	if !reflect.DeepEqual(c.AdminIDs, []int64{1, 2, 3}) {
		t.Errorf("AdminIDs = %v, want [1 2 3]", c.AdminIDs)
	}
	if c.BroadcastEnabled {
		t.Error("BroadcastEnabled = true, want false")
	}
	if c.TokenExpiryHours != 12 {
		t.Errorf("TokenExpiryHours = %d, want 12", c.TokenExpiryHours)
	}
	if !reflect.DeepEqual(c.BlockedKeywords, []string{"foo", "bar"}) {
		t.Errorf("BlockedKeywords = %v, want [foo bar]", c.BlockedKeywords)
	}
	if c.StatusPort != "disabled" {
		t.Errorf("StatusPort = %q, want disabled", c.StatusPort)
	}
}

func TestLoadJSONConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
  "app": {
    "BotToken": "json-token",
    "FsubChatID": -100200300,
    "AdminIDs": [10, "20"],
    "TokenExpiryHours": 48,
    "StatusPort": "9000"
  },
  "terabox": {
    "Cookie": "ndus=fromjson",
    "BaseURL": "https://mirror.example"
  },
  "store": {
    "Path": "custom.json"
  },
  "log": {
    "Level": "debug"
  }
}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		t.Fatalf("loadJSONConfig: %v", err)
	}

	if c.BotToken != "json-token" {
		t.Errorf("BotToken = %q", c.BotToken)
	}
	if c.FsubChatID != -100200300 {
		t.Errorf("FsubChatID = %d", c.FsubChatID)
	}
	if !reflect.DeepEqual(c.AdminIDs, []int64{10, 20}) {
		t.Errorf("AdminIDs = %v, want [10 20]", c.AdminIDs)
	}
	if c.TokenExpiryHours != 48 || c.StatusPort != "9000" {
		t.Errorf("app section = %d/%q", c.TokenExpiryHours, c.StatusPort)
	}
	if c.TeraboxCookie != "ndus=fromjson" || c.TeraboxBaseURL != "https://mirror.example" {
		t.Errorf("terabox section = %q/%q", c.TeraboxCookie, c.TeraboxBaseURL)
	}
	if c.StorePath != "custom.json" {
		t.Errorf("StorePath = %q", c.StorePath)
	}
	if c.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", c.LogLevel)
	}
}

func TestLoadJSONConfigMissingFile(t *testing.T) {
	var c AppConfig
	if err := loadJSONConfig(filepath.Join(t.TempDir(), "nope.json"), &c); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}
}

func TestLoadJSONConfigInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	var c AppConfig
	if err := loadJSONConfig(path, &c); err == nil {
		t.Error("invalid JSON should surface an error")
	}
}

func TestParseIDList(t *testing.T) {
	if got := parseIDList("1,2, 3 ,bad,"); !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Errorf("parseIDList = %v, want [1 2 3]", got)
	}
	if got := parseIDList(""); len(got) != 0 {
		t.Errorf("parseIDList(\"\") = %v, want empty", got)
	}
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"true", "1", "t", "y", "YES"} {
		if !parseBool(v) {
			t.Errorf("parseBool(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"false", "0", "no", ""} {
		if parseBool(v) {
			t.Errorf("parseBool(%q) = true, want false", v)
		}
	}
}
