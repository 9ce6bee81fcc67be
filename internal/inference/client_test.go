package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode([]map[string]string{{"generated_text": "prompt echo Response: hi"}})
	}))
	defer backend.Close()

	client := NewClient("secret", WithBaseURL(backend.URL))
	text, err := client.Generate(context.TODO(), "gpt2", "say hi", 150)
	require.NoError(t, err)
	assert.Equal(t, "prompt echo Response: hi", text)
	assert.Equal(t, "/gpt2", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "say hi", gotBody["inputs"])

	params := gotBody["parameters"].(map[string]interface{})
	assert.Equal(t, float64(150), params["max_length"])
	assert.Equal(t, 0.7, params["temperature"])
	assert.Equal(t, true, params["do_sample"])
}

func TestGenerateSingleObjectResponse(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"generated_text": "plain"})
	}))
	defer backend.Close()

	client := NewClient("secret", WithBaseURL(backend.URL))
	text, err := client.Generate(context.TODO(), "", "hello", 50)
	require.NoError(t, err)
	assert.Equal(t, "plain", text)
}

func TestGenerateAPIError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model is loading", http.StatusServiceUnavailable)
	}))
	defer backend.Close()

	client := NewClient("secret", WithBaseURL(backend.URL))
	_, err := client.Generate(context.TODO(), "gpt2", "hello", 50)
	require.Error(t, err)
	assert.ErrorContains(t, err, "503")
}

func TestGenerateNoToken(t *testing.T) {
	t.Setenv(TokenEnvVar, "")
	client := NewClient("")
	_, err := client.Generate(context.TODO(), "gpt2", "hello", 50)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestGenerateEmptyResult(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]string{})
	}))
	defer backend.Close()

	client := NewClient("secret", WithBaseURL(backend.URL))
	_, err := client.Generate(context.TODO(), "gpt2", "hello", 50)
	assert.ErrorContains(t, err, "no response generated")
}
