package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultVoyageBaseURL = "https://api.voyageai.com/v1"

type voyageConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

// voyageEmbedProvider talks to the Voyage embeddings endpoint. Voyage
// only serves embeddings, so there is no generator counterpart.
type voyageEmbedProvider struct {
	apiKey  string
	baseURL string
}

type voyageEmbedRequest struct {
	Model     string `json:"model"`
	Input     string `json:"input"`
	InputType string `json:"input_type,omitempty"`
}

type voyageEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *voyageEmbedProvider) Name() string {
	return "voyage"
}

func (p *voyageEmbedProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	endpoint := strings.TrimRight(p.baseURL, "/") + "/embeddings"
	reqBody := voyageEmbedRequest{
		Model:     model,
		Input:     text,
		InputType: voyageInputType(taskType),
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("voyage request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var out voyageEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("voyage response has no embeddings")
	}
	return out.Data[0].Embedding, nil
}

func voyageInputType(taskType string) string {
	switch taskType {
	case TaskTypeQuery:
		return "query"
	case TaskTypeDocument:
		return "document"
	default:
		return ""
	}
}

func createVoyageEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &voyageConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultVoyageBaseURL
	}
	return &voyageEmbedProvider{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
	}, nil
}

func init() {
	RegisterEmbed("voyage", createVoyageEmbedFactory)
}
