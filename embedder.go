package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// NewEmbedder returns the embedding function selected by cfg.EmbeddingProvider.
// Both the local and the remote store embed documents client-side with it.
func NewEmbedder(ctx context.Context, cfg *Config, logger *zap.Logger) (chromem.EmbeddingFunc, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.EmbeddingProvider {
	case EmbeddingProviderHash, "":
		logger.Info("using hashing embedder", zap.Int("dimension", EmbeddingDimension))
		return makeHashEmbedder(EmbeddingDimension), nil

	case EmbeddingProviderGemini:
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini embedding provider")
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.Gemini.APIKey})
		if err != nil {
			return nil, fmt.Errorf("failed to create GenAI client: %w", err)
		}
		logger.Info("using gemini embedder", zap.String("model", cfg.Gemini.EmbeddingModel))
		return makeGeminiEmbedder(client, cfg.Gemini.EmbeddingModel, EmbeddingDimension), nil

	case EmbeddingProviderLMStudio:
		logger.Info("using lmstudio embedder",
			zap.String("base_url", cfg.LMStudio.BaseURL),
			zap.String("model", cfg.LMStudio.EmbeddingModel))
		return makeLMStudioEmbedder(http.DefaultClient, cfg.LMStudio.BaseURL, cfg.LMStudio.EmbeddingModel), nil
	}

	return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
}

// makeHashEmbedder creates a deterministic feature-hashing embedder. It needs
// no model or network and is good enough for an admin tool that never queries.
func makeHashEmbedder(dim int) chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, dim)
		tokens := tokenize(text)
		if len(tokens) == 0 && text != "" {
			tokens = []string{text}
		}
		for _, tok := range tokens {
			h := xxhash.Sum64String(tok)
			idx := int(h % uint64(dim))
			if h&(1<<63) != 0 {
				vec[idx]--
			} else {
				vec[idx]++
			}
		}
		if !normalize(vec) {
			// empty input still needs a unit vector
			vec[0] = 1
		}
		return vec, nil
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// makeGeminiEmbedder creates an embedding function using Gemini's embedding API.
func makeGeminiEmbedder(client *genai.Client, modelName string, dimension int) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		contents := []*genai.Content{{Parts: []*genai.Part{{Text: text}}}}
		dim := int32(dimension)
		res, err := client.Models.EmbedContent(ctx, modelName, contents, &genai.EmbedContentConfig{
			TaskType:             TaskTypeDocument,
			OutputDimensionality: &dim,
		})
		if err != nil {
			return nil, fmt.Errorf("embedding failed: %w", err)
		}
		if len(res.Embeddings) == 0 {
			return nil, fmt.Errorf("no embeddings returned")
		}
		values := res.Embeddings[0].Values
		normalize(values)
		return values, nil
	}
}

// makeLMStudioEmbedder creates an embedding function using LM Studio's OpenAI-compatible API.
func makeLMStudioEmbedder(httpClient *http.Client, baseURL, modelName string) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		url := strings.TrimSuffix(baseURL, "/") + "/embeddings"
		requestBody, err := json.Marshal(map[string]any{
			"model": modelName,
			"input": []string{text},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		var result struct {
			Data []struct {
				Embedding []float32 `json:"embedding"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		if len(result.Data) != 1 {
			return nil, fmt.Errorf("returned embedding count mismatch: expected 1, got %d", len(result.Data))
		}

		normalize(result.Data[0].Embedding)
		return result.Data[0].Embedding, nil
	}
}

// normalize performs L2 normalization in place. It reports false for a zero vector.
func normalize(v []float32) bool {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}
	magnitude := float32(math.Sqrt(sum))
	if magnitude <= 0 {
		return false
	}
	for i := range v {
		v[i] /= magnitude
	}
	return true
}
