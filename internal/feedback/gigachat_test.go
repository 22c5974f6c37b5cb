package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func tokenHandler(t *testing.T, calls *int) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		*calls++
		if r.Header.Get("RqUID") == "" {
			t.Error("oauth request missing RqUID header")
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Basic ") {
			t.Error("oauth request missing Basic authorization")
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostFormValue("scope"); got != "GIGACHAT_API_PERS" {
			t.Errorf("unexpected scope %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"expires_at":   time.Now().Add(30 * time.Minute).UnixMilli(),
		})
	}
}

func chatHandler(t *testing.T, reply string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("unexpected authorization %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode chat request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Fatalf("unexpected messages: %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[0].Content, "бабушка") {
			t.Error("system prompt lost its persona")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	}
}

func newTestClient(t *testing.T, oauth, chat http.HandlerFunc, translator *Translator) *GigaChat {
	t.Helper()
	oauthSrv := httptest.NewServer(oauth)
	t.Cleanup(oauthSrv.Close)
	chatSrv := httptest.NewServer(chat)
	t.Cleanup(chatSrv.Close)
	return NewGigaChat(GigaChatConfig{
		AuthKey:  "c2VjcmV0",
		OAuthURL: oauthSrv.URL,
		APIURL:   chatSrv.URL,
	}, translator)
}

func TestExplainHappyPath(t *testing.T) {
	tokenCalls := 0
	client := newTestClient(t, tokenHandler(t, &tokenCalls), chatHandler(t, "Молодец, почти получилось!"), nil)

	got, err := client.Explain(context.Background(), "как сказать спасибо", "рахмет")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if got != "Молодец, почти получилось!" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestTokenIsCached(t *testing.T) {
	tokenCalls := 0
	client := newTestClient(t, tokenHandler(t, &tokenCalls), chatHandler(t, "ответ"), nil)

	for i := 0; i < 3; i++ {
		if _, err := client.Explain(context.Background(), "q", "a"); err != nil {
			t.Fatalf("Explain %d: %v", i, err)
		}
	}
	if tokenCalls != 1 {
		t.Fatalf("want 1 token fetch, got %d", tokenCalls)
	}
}

func TestExplainOAuthFailure(t *testing.T) {
	client := newTestClient(t,
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
		chatHandler(t, "unused"),
		nil,
	)
	_, err := client.Explain(context.Background(), "q", "a")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("want StatusError, got %v", err)
	}
	if statusErr.Status != http.StatusForbidden || statusErr.Code() != "GATEWAY_FAILURE" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
}

func TestExplainChatFailureDropsExpiredToken(t *testing.T) {
	tokenCalls := 0
	chatCalls := 0
	client := newTestClient(t,
		tokenHandler(t, &tokenCalls),
		func(w http.ResponseWriter, r *http.Request) {
			chatCalls++
			if chatCalls == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			chatHandler(t, "ответ")(w, r)
		},
		nil,
	)

	if _, err := client.Explain(context.Background(), "q", "a"); err == nil {
		t.Fatal("want error on 401")
	}
	if _, err := client.Explain(context.Background(), "q", "a"); err != nil {
		t.Fatalf("second call should refresh token: %v", err)
	}
	if tokenCalls != 2 {
		t.Fatalf("want token refresh after 401, got %d fetches", tokenCalls)
	}
}

func TestExplainTranslatesReply(t *testing.T) {
	trSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p gradioPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Fatalf("decode translate request: %v", err)
		}
		if len(p.Data) != 2 || p.Data[0] != "rus2tat" {
			t.Fatalf("unexpected translate payload: %+v", p.Data)
		}
		_ = json.NewEncoder(w).Encode(gradioPayload{Data: []string{"Бик яхшы!"}})
	}))
	t.Cleanup(trSrv.Close)

	tokenCalls := 0
	translator := NewTranslator(TranslatorConfig{BaseURL: trSrv.URL + "/"})
	client := newTestClient(t, tokenHandler(t, &tokenCalls), chatHandler(t, "Очень хорошо!"), translator)

	got, err := client.Explain(context.Background(), "q", "a")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if got != "Бик яхшы!" {
		t.Fatalf("want translated reply, got %q", got)
	}
}

func TestTranslateFailureFallsBackToRussian(t *testing.T) {
	trSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(trSrv.Close)

	tokenCalls := 0
	translator := NewTranslator(TranslatorConfig{BaseURL: trSrv.URL})
	client := newTestClient(t, tokenHandler(t, &tokenCalls), chatHandler(t, "Очень хорошо!"), translator)

	got, err := client.Explain(context.Background(), "q", "a")
	if err != nil {
		t.Fatalf("translation failure must not fail Explain: %v", err)
	}
	if got != "Очень хорошо!" {
		t.Fatalf("want russian fallback, got %q", got)
	}
}
