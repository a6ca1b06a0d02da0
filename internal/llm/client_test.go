package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/sidekick/internal/config"
	"github.com/soyeahso/sidekick/internal/logging"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func ollamaConfig(baseURL string) config.Config {
	cfg := config.Defaults()
	cfg.Ollama.BaseURL = baseURL
	return cfg
}

// --- Ollama generate ---

func TestOllamaCompleteSendsPrompt(t *testing.T) {
	var got ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"model":"llama3.1","response":"ok","done":true}`))
	}))
	defer srv.Close()

	reg := NewDefaultRegistry(silentLog())
	out, err := reg.Transform(context.Background(), ollamaConfig(srv.URL), "You are terse.", "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	assert.Equal(t, "llama3.1", got.Model)
	assert.Equal(t, "You are terse.\n\nInput:\nhello", got.Prompt)
	assert.False(t, got.Stream)
}

func TestOllamaCompleteStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewOllamaClient(srv.URL, "llama3.1").Complete(context.Background(), CompletionRequest{Input: "x"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTransport))

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 500, pe.Code)
	assert.Equal(t, "ollama", pe.Provider)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestOllamaCompleteFormatErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>oops</html>"},
		{"missing response", `{"model":"llama3.1","done":true}`},
		{"response not a string", `{"response":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOllamaClient(srv.URL, "m").Complete(context.Background(), CompletionRequest{Input: "x"})
			require.Error(t, err)
			assert.True(t, IsKind(err, KindFormat), "got %v", err)
		})
	}
}

func TestOllamaCompleteEmptyResponseIsValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":""}`))
	}))
	defer srv.Close()

	resp, err := NewOllamaClient(srv.URL, "m").Complete(context.Background(), CompletionRequest{Input: "x"})
	require.NoError(t, err)
	assert.Equal(t, "", resp.Content)
}

func TestOllamaCompleteRequestModelOverrides(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaGenerateRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Write([]byte(`{"response":"` + req.Model + `"}`))
	}))
	defer srv.Close()

	resp, err := NewOllamaClient(srv.URL+"/", "default").Complete(context.Background(), CompletionRequest{Model: "phi3"})
	require.NoError(t, err)
	assert.Equal(t, "phi3", resp.Content)
	assert.Equal(t, "phi3", resp.Model)
}

func TestOllamaTimeoutFollowsConfig(t *testing.T) {
	cfg := ollamaConfig("http://127.0.0.1:1")
	cfg.Timeouts.Transform = 5 * time.Minute

	c, err := NewDefaultRegistry(silentLog()).Resolve(cfg)
	require.NoError(t, err)
	oc, ok := c.(*OllamaClient)
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, oc.client.Timeout)

	assert.Equal(t, defaultOllamaTimeout, NewOllamaClient("", "m").WithTimeout(0).client.Timeout)
}

func TestOllamaResponseBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"` + strings.Repeat("a", 200) + `","done":true,"models":[]}`))
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3.1")
	c.maxBody = 64

	_, err := c.Complete(context.Background(), CompletionRequest{Input: "x"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTransport))
	assert.Contains(t, err.Error(), "response larger than 64 B")

	_, err = c.ListModels(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTransport))

	c.maxBody = maxResponseBody
	out, err := c.Complete(context.Background(), CompletionRequest{Input: "x"})
	require.NoError(t, err)
	assert.Len(t, out.Content, 200)
}

func TestTransformTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := ollamaConfig(srv.URL)
	cfg.Timeouts.Transform = 100 * time.Millisecond

	start := time.Now()
	_, err := NewDefaultRegistry(silentLog()).Transform(context.Background(), cfg, "s", "i")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTransport))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestTransformTimeoutWrapsNonTransportErrors(t *testing.T) {
	mock := &MockClient{
		ProviderName: "slow",
		CompleteFunc: func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	_, err := Transform(context.Background(), mock, 20*time.Millisecond, "s", "i")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTransport))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTransformPassesSystemAndInput(t *testing.T) {
	var got CompletionRequest
	mock := &MockClient{
		CompleteFunc: func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
			got = req
			return &CompletionResponse{Content: "done"}, nil
		},
	}

	out, err := Transform(context.Background(), mock, 0, "sys", "in")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, CompletionRequest{System: "sys", Input: "in"}, got)
}

// --- Provider dispatch ---

func TestCloudProvidersUnsupported(t *testing.T) {
	reg := NewDefaultRegistry(silentLog())

	for _, id := range []config.ProviderID{config.ProviderOpenAI, config.ProviderGemini, config.ProviderDeepSeek} {
		t.Run(string(id), func(t *testing.T) {
			cfg := config.Defaults()
			cfg.Provider = id
			_, err := reg.Transform(context.Background(), cfg, "s", "i")
			require.Error(t, err)
			assert.True(t, IsKind(err, KindUnsupported))
			assert.Contains(t, err.Error(), string(id)+" support is not available yet")
		})
	}
}

func TestUnknownProviderIsConfigError(t *testing.T) {
	cfg := config.Defaults()
	cfg.Provider = "anthropic"

	_, err := NewDefaultRegistry(silentLog()).Transform(context.Background(), cfg, "s", "i")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfig))
	assert.Equal(t, KindConfig, KindOf(err))
}

func TestRegistryRegisterOverrides(t *testing.T) {
	reg := NewDefaultRegistry(silentLog())
	reg.Register(config.ProviderOllama, func(config.Config) Client {
		return &MockClient{ProviderName: "fake"}
	})

	c, err := reg.Resolve(config.Defaults())
	require.NoError(t, err)
	assert.Equal(t, "fake", c.Name())
}

func TestRegistryList(t *testing.T) {
	reg := NewDefaultRegistry(silentLog())
	assert.Equal(t, []string{"deepseek", "gemini", "ollama", "openai"}, reg.List())
}

// --- Model listing ---

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[{"name":"llama3.1:latest"},{"name":"mistral:7b"}]}`))
	}))
	defer srv.Close()

	names, err := NewDefaultRegistry(silentLog()).ListModels(context.Background(), ollamaConfig(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.1:latest", "mistral:7b"}, names)
}

func TestListModelsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	names, err := NewDefaultRegistry(silentLog()).ListModels(context.Background(), ollamaConfig(srv.URL))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListModelsErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewDefaultRegistry(silentLog()).ListModels(context.Background(), ollamaConfig(srv.URL))
		require.Error(t, err)
		assert.True(t, IsKind(err, KindTransport))
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("bad json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("nope"))
		}))
		defer srv.Close()

		_, err := NewDefaultRegistry(silentLog()).ListModels(context.Background(), ollamaConfig(srv.URL))
		assert.True(t, IsKind(err, KindFormat))
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		_, err := NewDefaultRegistry(silentLog()).ListModels(context.Background(), ollamaConfig(url))
		require.Error(t, err)
		assert.True(t, IsKind(err, KindTransport))
		assert.Contains(t, err.Error(), "failed to connect to ollama")
	})

	t.Run("slow server", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		cfg := ollamaConfig(srv.URL)
		cfg.Timeouts.ListModels = 50 * time.Millisecond
		_, err := NewDefaultRegistry(silentLog()).ListModels(context.Background(), cfg)
		assert.True(t, IsKind(err, KindTransport))
	})
}

// --- Errors ---

func TestProviderErrorFormat(t *testing.T) {
	tests := []struct {
		err  ProviderError
		want string
	}{
		{ProviderError{Provider: "ollama", Message: "API error: boom", Code: 500}, "ollama: 500 API error: boom"},
		{ProviderError{Provider: "gemini", Message: "oops"}, "gemini: oops"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(context.Canceled))
	assert.False(t, IsKind(nil, KindConfig))
}

func TestMockClientDefaults(t *testing.T) {
	mock := &MockClient{ProviderName: "default"}
	resp, err := mock.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "mock response", resp.Content)

	models, err := mock.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"mock-model"}, models)
}
