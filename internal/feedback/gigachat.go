// Package feedback produces encouraging Tatar-language feedback for wrong
// free-text answers via the GigaChat API, with a best-effort translation hop.
package feedback

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"avylbot/core/logger"
	"log/slog"
)

const component = "service.feedback"

// GigaChatConfig configures the GigaChat client.
type GigaChatConfig struct {
	// AuthKey is the base64 client credential used for the OAuth Basic header.
	AuthKey string `yaml:"auth_key" envconfig:"GIGACHAT_AUTH_KEY"`
	Scope   string `yaml:"scope" envconfig:"GIGACHAT_SCOPE"`
	OAuthURL string `yaml:"oauth_url"`
	APIURL   string `yaml:"api_url"`
	Model    string `yaml:"model"`
	// InsecureTLS skips certificate verification; the Sber endpoints are
	// signed by a CA that is rarely in system trust stores.
	InsecureTLS    bool `yaml:"insecure_tls" envconfig:"GIGACHAT_INSECURE_TLS"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`
}

func (c *GigaChatConfig) normalize() {
	if c.Scope == "" {
		c.Scope = "GIGACHAT_API_PERS"
	}
	if c.OAuthURL == "" {
		c.OAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	}
	if c.APIURL == "" {
		c.APIURL = "https://gigachat.devices.sberbank.ru/api/v1/chat/completions"
	}
	if c.Model == "" {
		c.Model = "GigaChat"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
}

// Enabled reports whether credentials are configured.
func (c GigaChatConfig) Enabled() bool {
	return strings.TrimSpace(c.AuthKey) != ""
}

// StatusError reports an unexpected HTTP status from a gateway endpoint.
type StatusError struct {
	Endpoint string
	Status   int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("feedback: %s returned status %d", e.Endpoint, e.Status)
}

// Code returns the stable error code for structured logging.
func (e *StatusError) Code() string { return "GATEWAY_FAILURE" }

// GigaChat asks the LLM to comment on a wrong answer in the voice of a kind
// grandmother, then translates the reply to Tatar when a translator is wired.
type GigaChat struct {
	cfg        GigaChatConfig
	http       *http.Client
	translator *Translator

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewGigaChat builds the client. translator may be nil; replies then stay in
// Russian.
func NewGigaChat(cfg GigaChatConfig, translator *Translator) *GigaChat {
	cfg.normalize()
	transport := &http.Transport{}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
	}
	return &GigaChat{
		cfg: cfg,
		http: &http.Client{
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
			Transport: transport,
		},
		translator: translator,
	}
}

type oauthResponse struct {
	AccessToken string `json:"access_token"`
	// ExpiresAt is a unix timestamp in milliseconds.
	ExpiresAt int64 `json:"expires_at"`
}

// accessToken returns a cached OAuth token, refreshing it when expired.
func (g *GigaChat) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token != "" && time.Now().Before(g.tokenExp.Add(-time.Minute)) {
		return g.token, nil
	}

	form := url.Values{"scope": {g.cfg.Scope}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.OAuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("feedback: oauth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.NewString())
	req.Header.Set("Authorization", "Basic "+g.cfg.AuthKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("feedback: oauth call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &StatusError{Endpoint: "oauth", Status: resp.StatusCode}
	}

	var parsed oauthResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("feedback: oauth decode: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("feedback: oauth response missing access_token")
	}

	g.token = parsed.AccessToken
	if parsed.ExpiresAt > 0 {
		g.tokenExp = time.UnixMilli(parsed.ExpiresAt)
	} else {
		g.tokenExp = time.Now().Add(25 * time.Minute)
	}

	logger.Debug(ctx, component, "oauth.refreshed",
		slog.Time("expires", g.tokenExp),
	)
	return g.token, nil
}

func grandmotherPrompt(question, answer string) string {
	return fmt.Sprintf(
		"Представь, что ты добрая и вежливая бабушка, которая говорит ТОЛЬКО ПО-РУССКИ.\n"+
			"Пользователю был задан вопрос: '%s'\n"+
			"Пользователь ответил: '%s'\n"+
			"Если пользователь правильно ответил на вопрос — похвали его.\n"+
			"Если пользователь ответил не по теме — вежливо укажи на ошибки.\n"+
			"Будь доброй и поддерживающей. Не отвечай по-татарски.\n"+
			"Отвечай сплошным текстом, не по пунктам, не больше двух предложений.",
		question, answer,
	)
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Explain returns feedback for the user's answer. Translation failures fall
// back to the untranslated reply; only the LLM call itself can fail.
func (g *GigaChat) Explain(ctx context.Context, question, answer string) (string, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: grandmotherPrompt(question, answer)},
			{Role: "user", Content: fmt.Sprintf("Ответ: '%s'", answer)},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("feedback: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("feedback: chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("feedback: chat call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		// An expired token yields 401; drop the cache so the next call refreshes.
		if resp.StatusCode == http.StatusUnauthorized {
			g.mu.Lock()
			g.token = ""
			g.mu.Unlock()
		}
		return "", &StatusError{Endpoint: "chat", Status: resp.StatusCode}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("feedback: chat decode: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("feedback: chat response has no choices")
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("feedback: chat response is empty")
	}

	logger.Debug(ctx, component, "explain.done",
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	)

	if g.translator == nil {
		return text, nil
	}
	translated, err := g.translator.Translate(ctx, "rus2tat", text)
	if err != nil {
		logger.Warn(ctx, component, "translate.failed",
			slog.String("err", err.Error()),
		)
		return text, nil
	}
	return translated, nil
}
