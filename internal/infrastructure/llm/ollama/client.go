package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/changsoo-Shin/ktds-jinseop/internal/infrastructure/resilience"
)

// Client talks to one Ollama instance. All calls share a rate limiter
// so bulk indexing cannot starve interactive judgment calls of the
// backend's capacity.
type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	limiter    *rate.Limiter
	runner     *resilience.Runner
}

func New(baseURL, genModel, embedModel string, rps float64, runner *resilience.Runner) *Client {
	if rps <= 0 {
		rps = 10
	}
	if runner == nil {
		runner = resilience.NewRunner(resilience.DefaultPolicy())
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		runner:     runner,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, "embed", "/api/embed", request, &response); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count %d for %d inputs", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
}

// Judge runs a free-form judgment prompt and returns the raw model
// text; callers own the parsing.
type Judge struct {
	client *Client
}

func NewJudge(client *Client) *Judge {
	return &Judge{client: client}
}

func (j *Judge) Judge(ctx context.Context, prompt string) (string, error) {
	return j.client.generateText(ctx, "judge", prompt)
}

func (c *Client) generateText(ctx context.Context, operation, prompt string) (string, error) {
	request := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}
	var response struct {
		Response string `json:"response"`
	}
	if err := c.call(ctx, operation, "/api/generate", request, &response); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func (c *Client) call(ctx context.Context, operation, path string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	err := c.runner.Do(ctx, operation, classifyOllamaError, func(ctx context.Context) error {
		return c.postJSON(ctx, path, payload, out, operation)
	})
	return wrapTemporaryIfNeeded(operation, err)
}
