package bot

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
database:
  host: localhost
  user: avylbot
  name: avylbot
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if got := cfg.Core.Telegram.RunMode; got != "longpoll" {
		t.Errorf("run mode default: %q", got)
	}
	if cfg.Database.Port != "5432" || cfg.Database.SSLMode != "disable" {
		t.Errorf("database defaults not applied: port=%q sslmode=%q", cfg.Database.Port, cfg.Database.SSLMode)
	}
	if cfg.Media.ImagesDir != "images" || cfg.Media.VoicesDir != "voices" {
		t.Errorf("media defaults not applied: %+v", cfg.Media)
	}
	if cfg.GigaChat.Enabled() {
		t.Error("gigachat should be disabled without auth key")
	}
	if cfg.CoreConfig() != &cfg.Core {
		t.Error("CoreConfig must expose the embedded core config")
	}
}

func TestLoadConfigRequiresToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	path := writeConfig(t, `
telegram:
  admin_id: 7
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("want error for missing telegram token")
	}
}

func TestLoadConfigWebhookValidation(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  run_mode: webhook
webhook:
  url: https://bot.example.com/hook
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("want error for webhook mode without listen address")
	}
}
