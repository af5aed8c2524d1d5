package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	apperrors "github.com/ZanzyTHEbar/introscore/internal/errors"
	"github.com/ZanzyTHEbar/introscore/internal/resilience"
)

const ServiceEmbeddings = "embeddings"

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embeddings calls an OpenAI-compatible /embeddings endpoint, such as a
// local sentence-transformers server
type Embeddings struct {
	baseURL string
	model   string
	apiKey  string
	client  *resilience.ServiceClient
}

func NewEmbeddings(baseURL, model, apiKey string, client *resilience.ServiceClient) *Embeddings {
	return &Embeddings{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  client,
	}
}

// Embed returns one vector per text, in input order
func (e *Embeddings) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(embeddingRequest{Input: texts, Model: e.model})
	if err != nil {
		return nil, apperrors.NewInternalError("encode embedding request", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if e.apiKey != "" {
		headers["Authorization"] = "Bearer " + e.apiKey
	}

	body, err := e.client.Do(ctx, http.MethodPost, e.baseURL+"/embeddings", payload, headers)
	if err != nil {
		return nil, err
	}

	var resp embeddingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewExternalAPIError(ServiceEmbeddings, fmt.Errorf("decode response: %w", err))
	}
	if len(resp.Data) != len(texts) {
		return nil, apperrors.NewExternalAPIError(ServiceEmbeddings, fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)))
	}

	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	out := make([][]float64, len(resp.Data))
	for i, d := range resp.Data {
		if len(d.Embedding) == 0 {
			return nil, apperrors.NewExternalAPIError(ServiceEmbeddings, fmt.Errorf("empty embedding at index %d", d.Index))
		}
		out[i] = d.Embedding
	}
	return out, nil
}

// Ping embeds a single short string
func (e *Embeddings) Ping(ctx context.Context) error {
	_, err := e.Embed(ctx, []string{"ping"})
	return err
}
