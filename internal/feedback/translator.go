package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TranslatorConfig configures the translate.tatar client.
type TranslatorConfig struct {
	BaseURL        string `yaml:"base_url" envconfig:"TRANSLATOR_BASE_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (c *TranslatorConfig) normalize() {
	if c.BaseURL == "" {
		c.BaseURL = "https://v2.api.translate.tatar"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
}

// Enabled reports whether the translator should be wired.
func (c TranslatorConfig) Enabled() bool {
	return strings.TrimSpace(c.BaseURL) != ""
}

// Translator calls the translate.tatar gradio endpoint.
type Translator struct {
	base string
	http *http.Client
}

// NewTranslator builds the client.
func NewTranslator(cfg TranslatorConfig) *Translator {
	cfg.normalize()
	return &Translator{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

type gradioPayload struct {
	Data []string `json:"data"`
}

// Translate converts text between languages; direction follows the service's
// convention, e.g. "rus2tat".
func (t *Translator) Translate(ctx context.Context, direction, text string) (string, error) {
	body, err := json.Marshal(gradioPayload{Data: []string{direction, text}})
	if err != nil {
		return "", fmt.Errorf("feedback: encode translate request: %w", err)
	}

	endpoint := t.base + "/run/translate_interface"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("feedback: translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("feedback: translate call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &StatusError{Endpoint: "translate", Status: resp.StatusCode}
	}

	var parsed gradioPayload
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("feedback: translate decode: %w", err)
	}
	if len(parsed.Data) == 0 || strings.TrimSpace(parsed.Data[0]) == "" {
		return "", fmt.Errorf("feedback: translate response is empty")
	}
	return strings.TrimSpace(parsed.Data[0]), nil
}
