// ABOUTME: Tests for the OpenAI-compatible clients against a local test server
// ABOUTME: Verifies ordering by index, retry behaviour and error tagging
package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/storybrief/internal/models"
)

func testConfig(url string) ClientConfig {
	return ClientConfig{
		APIKey:     "test-key",
		BaseURL:    url,
		Model:      "test-model",
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Dimensions: 3,
	}
}

func TestNewClients_RequireAPIKey(t *testing.T) {
	_, err := NewEmbeddingClient(ClientConfig{})
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.TagInvalidInput))

	_, err = NewChatClient(ClientConfig{})
	require.Error(t, err)
}

func TestEmbeddingClient_OrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)

		// Reply in reverse order
		data := []map[string]any{}
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(i), 0, 1},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": req.Model})
	}))
	defer srv.Close()

	client, err := NewEmbeddingClient(testConfig(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, 3, client.Dimension())

	vecs, err := client.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for i, v := range vecs {
		assert.Equal(t, float32(i), v[0])
	}
}

func TestEmbeddingClient_EmptyBatch(t *testing.T) {
	client, err := NewEmbeddingClient(testConfig("http://127.0.0.1:1"))
	require.NoError(t, err)
	vecs, err := client.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestEmbeddingClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,2,3]}]}`))
	}))
	defer srv.Close()

	client, err := NewEmbeddingClient(testConfig(srv.URL))
	require.NoError(t, err)

	vecs, err := client.EmbedBatch(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2, 3}}, vecs)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbeddingClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad input","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client, err := NewEmbeddingClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.EmbedBatch(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Equal(t, models.KindEmbeddingFailure, models.KindOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbeddingClient_RejectsWrongWidth(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,2]}]}`))
	}))
	defer srv.Close()

	client, err := NewEmbeddingClient(testConfig(srv.URL))
	require.NoError(t, err)

	vecs, err := client.EmbedBatch(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Nil(t, vecs)
	assert.True(t, models.IsKind(err, models.TagEmbeddingFailure))
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbeddingClient_ZeroDimensionAcceptsAnyWidth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,2]}]}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Dimensions = 0
	client, err := NewEmbeddingClient(cfg)
	require.NoError(t, err)

	vecs, err := client.EmbedBatch(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}}, vecs)
}

func TestChatClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req struct {
			Model    string    `json:"model"`
			Messages []Message `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, RoleUser, req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "cmpl-1",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": "echo: " + req.Messages[0].Content},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	client, err := NewChatClient(testConfig(srv.URL))
	require.NoError(t, err)

	got, err := client.Complete(context.Background(), []Message{UserMessage("你好")})
	require.NoError(t, err)
	assert.Equal(t, "echo: 你好", got)
}

func TestChatClient_FailureIsGenerationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	client, err := NewChatClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), []Message{UserMessage("hi")})
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.TagGenerationFailure))
}

func TestDefaultConfigs(t *testing.T) {
	chat := DefaultChatConfig("k")
	assert.Equal(t, DefaultChatModel, chat.Model)
	assert.Equal(t, 16384, chat.MaxTokens)

	emb := DefaultEmbeddingConfig("k")
	assert.Equal(t, DefaultEmbeddingModel, emb.Model)
	assert.Equal(t, DefaultEmbeddingDim, emb.Dimensions)
}
