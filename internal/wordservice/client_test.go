package wordservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/wordbot/core/config"
	"github.com/m3rciful/wordbot/core/logger"
)

func TestMain(m *testing.M) {
	_ = logger.InitLogger(&coreconfig.Config{})
	os.Exit(m.Run())
}

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(coreconfig.WordServiceConfig{
		BaseURL:        srv.URL,
		TimeoutSeconds: 2,
		PageSize:       6,
	})
}

func TestCollections(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections", r.URL.Path)
		require.Equal(t, "2", r.URL.Query().Get("page"))
		require.Equal(t, "6", r.URL.Query().Get("size"))
		require.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(CollectionPage{
			Items: []Collection{{ID: 1, Title: "Basics"}, {ID: 2, Title: "Travel"}},
			Page:  2,
			Pages: 3,
		})
	}))

	page, err := client.Collections(context.Background(), "user-token", 2, 6)
	require.NoError(t, err)
	require.Equal(t, 2, page.Page)
	require.Equal(t, 3, page.Pages)
	require.Len(t, page.Items, 2)
	require.Equal(t, "Basics", page.Items[0].Title)
}

func TestCollectionsClampsPage(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1", r.URL.Query().Get("page"), "page below 1 must be clamped")
		_ = json.NewEncoder(w).Encode(CollectionPage{Page: 1, Pages: 1})
	}))

	_, err := client.Collections(context.Background(), "t", 0, 6)
	require.NoError(t, err)
}

func TestCollectionQuiz(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/42/quiz", r.URL.Path)
		_, _ = w.Write([]byte(`{"words":[{"id":7,"word":"approve","translate":"одобрить"}]}`))
	}))

	words, err := client.CollectionQuiz(context.Background(), "t", 42)
	require.NoError(t, err)
	require.Len(t, words, 1)
	require.Equal(t, int64(7), words[0].ID)
	require.Equal(t, "одобрить", words[0].Translate)
}

func TestStatusError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	_, err := client.Collections(context.Background(), "t", 1, 6)
	require.Error(t, err)

	var status *StatusError
	require.ErrorAs(t, err, &status)
	require.Equal(t, http.StatusBadGateway, status.Code)
}

func TestTokenProviderRegistersUnknownUser(t *testing.T) {
	var registered bool
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login/access-token-bot":
			require.Equal(t, "Bearer bot-token", r.Header.Get("Authorization"))
			http.Error(w, "unknown user", http.StatusNotFound)
		case "/users/":
			registered = true
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.EqualValues(t, 42, body["user_id"])
			_, _ = w.Write([]byte(`{"access_token":"fresh-token"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	provider := NewTokenProvider(client, "bot-token")
	token, err := provider.UserToken(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, registered)
	require.Equal(t, "fresh-token", token)
}

func TestTokenProviderPassesThroughKnownUser(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login/access-token-bot", r.URL.Path)
		_, _ = w.Write([]byte(`{"access_token":"known-token"}`))
	}))

	provider := NewTokenProvider(client, "bot-token")
	token, err := provider.UserToken(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "known-token", token)
}

func TestBotToken(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login/access-token", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "bot@example.com", body["email"])
		_, _ = w.Write([]byte(`{"access_token":"bot-token"}`))
	}))

	token, err := client.BotToken(context.Background(), "bot@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, "bot-token", token)
}
