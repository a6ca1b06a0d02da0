package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyPath(t *testing.T) {
	tests := []struct {
		input   string
		want    KeyPath
		wantErr bool
	}{
		{"provider", KeyPath{"provider"}, false},
		{"ollama.baseUrl", KeyPath{"ollama", "baseUrl"}, false},
		{"gateway.auth.mode", KeyPath{"gateway", "auth", "mode"}, false},
		{"logging.max_size-mb", KeyPath{"logging", "max_size-mb"}, false},
		{"", nil, true},
		{"ollama..model", nil, true},
		{".ollama", nil, true},
		{"ollama.", nil, true},
		{"ollama.base url", nil, true},
		{"gateway.$ref", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKeyPath(tt.input)
			if tt.wantErr {
				var ce *ConfigError
				assert.ErrorAs(t, err, &ce)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestKeyPathGet(t *testing.T) {
	root := map[string]any{
		"ollama":      map[string]any{"model": "llama3.1"},
		"permissions": map[string]any{"webSearch": true},
		"provider":    "ollama",
	}

	tests := []struct {
		key  string
		want any
		ok   bool
	}{
		{"ollama.model", "llama3.1", true},
		{"permissions.webSearch", true, true},
		{"provider", "ollama", true},
		{"missing", nil, false},
		{"ollama.missing", nil, false},
		{"provider.sub", nil, false},
		{"a.b.c", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			k, err := ParseKeyPath(tt.key)
			require.NoError(t, err)
			val, ok := k.Get(root)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, val)
		})
	}
}

func TestKeyPathSet(t *testing.T) {
	root := map[string]any{"ollama": map[string]any{"model": "llama3.1"}, "provider": "ollama"}

	require.NoError(t, KeyPath{"ollama", "model"}.Set(root, "mistral"))
	val, _ := KeyPath{"ollama", "model"}.Get(root)
	assert.Equal(t, "mistral", val)

	require.NoError(t, KeyPath{"gateway", "auth", "token"}.Set(root, "abc"))
	val, ok := KeyPath{"gateway", "auth", "token"}.Get(root)
	assert.True(t, ok)
	assert.Equal(t, "abc", val)

	err := KeyPath{"provider", "name"}.Set(root, "x")
	assert.ErrorContains(t, err, "provider is a string")
	assert.Equal(t, "ollama", root["provider"])

	assert.Error(t, KeyPath{}.Set(root, 1))
}

func TestKeyPathUnset(t *testing.T) {
	root := map[string]any{
		"ollama":   map[string]any{"model": "llama3.1", "baseUrl": "http://localhost:11434"},
		"provider": "ollama",
	}

	assert.True(t, KeyPath{"ollama", "model"}.Unset(root))
	_, found := KeyPath{"ollama", "model"}.Get(root)
	assert.False(t, found)

	val, found := KeyPath{"ollama", "baseUrl"}.Get(root)
	assert.True(t, found)
	assert.Equal(t, "http://localhost:11434", val)

	assert.False(t, KeyPath{"ollama", "model"}.Unset(root))
	assert.False(t, KeyPath{"a", "b", "c"}.Unset(root))
	assert.False(t, KeyPath{"provider", "sub"}.Unset(root))
}
