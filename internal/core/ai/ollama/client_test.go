package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"fridge-vision/internal/core/ai/provider"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHost = "http://ollama.test"

func newMockedClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient(provider.Config{BaseURL: testHost + "/", Model: "mistral", Timeout: time.Second})
	httpmock.ActivateNonDefault(c.client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestGenerate(t *testing.T) {
	c := newMockedClient(t)

	httpmock.RegisterResponder(http.MethodPost, testHost+"/api/generate",
		func(req *http.Request) (*http.Response, error) {
			var body generateRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
			}
			assert.Equal(t, "mistral", body.Model)
			assert.False(t, body.Stream)
			assert.Equal(t, "list three recipes", body.Prompt)
			assert.InDelta(t, 0.7, body.Options["temperature"], 1e-9)
			return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
				"model":             "mistral",
				"response":          "  [ {\"name\": \"Omelette\"} ]  ",
				"done":              true,
				"prompt_eval_count": 12,
				"eval_count":        30,
			})
		})

	resp, err := c.Generate(context.Background(), provider.NewUserRequest("list three recipes", 0.7))
	require.NoError(t, err)

	assert.Equal(t, `[ {"name": "Omelette"} ]`, resp.Content)
	assert.Equal(t, 42, resp.Usage.TotalTokens)
}

func TestGenerateErrorStatus(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodPost, testHost+"/api/generate",
		httpmock.NewStringResponder(http.StatusNotFound, `{"error":"model 'mistral' not found"}`))

	_, err := c.Generate(context.Background(), provider.NewUserRequest("hi", 0.5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestPing(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodGet, testHost+"/api/tags",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{"models": []any{}}))

	assert.NoError(t, c.Ping(context.Background()))

	httpmock.RegisterResponder(http.MethodGet, testHost+"/api/tags",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "loading"))

	assert.ErrorIs(t, c.Ping(context.Background()), provider.ErrUnavailable)
}
