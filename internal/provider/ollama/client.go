package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/davidbz/ember/internal/domain"
	"github.com/davidbz/ember/internal/observability"
)

const (
	tagsPath       = "/api/tags"
	chatPath       = "/api/chat"
	embeddingsPath = "/api/embeddings"

	readBufferBytes = 64 << 10
	maxFrameBytes   = 1 << 20
)

// ErrMalformedResponse indicates a 2xx response whose body is not valid JSON.
var ErrMalformedResponse = errors.New("malformed backend response")

var errFrameTooLong = errors.New("stream frame exceeds size limit")

// Client wraps the HTTP client for Ollama API calls.
// A single Client is shared by all requests; each stream owns its own response body.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Ollama HTTP client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Ollama API request structures.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
	Options     *chatOptions  `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// HealthCheck reports whether the daemon answers the tags endpoint with a 2xx status.
func (c *Client) HealthCheck(ctx context.Context) bool {
	resp, err := c.get(ctx, tagsPath)
	if err != nil {
		observability.FromContext(ctx).Error("ollama health check failed", observability.Error(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return true
}

// ListModels returns the locally installed models, or an empty slice on failure.
func (c *Client) ListModels(ctx context.Context) []domain.ModelInfo {
	logger := observability.FromContext(ctx)

	resp, err := c.get(ctx, tagsPath)
	if err != nil {
		logger.Error("failed to list ollama models", observability.Error(err))
		return []domain.ModelInfo{}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("failed to read ollama model list",
			observability.Error(fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)))
		return []domain.ModelInfo{}
	}

	if !gjson.ValidBytes(body) {
		logger.Error("failed to parse ollama model list",
			observability.Error(fmt.Errorf("%w: %.200s", ErrMalformedResponse, body)))
		return []domain.ModelInfo{}
	}

	return toModelInfos(gjson.GetBytes(body, "models"))
}

// Chat sends a non-streaming chat request and returns the native response object.
func (c *Client) Chat(ctx context.Context, req chatRequest) (gjson.Result, error) {
	req.Stream = false

	resp, err := c.post(ctx, chatPath, req)
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: failed to read response: %w", domain.ErrBackendUnavailable, err)
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: %.200s", ErrMalformedResponse, body)
	}

	native := gjson.ParseBytes(body)
	if backendErr := native.Get("error"); backendErr.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: %s", domain.ErrBackendUnavailable, backendErr.String())
	}

	return native, nil
}

// ChatStream returns the native NDJSON frames of a streaming chat request.
// The request is issued when the sequence is ranged over. Malformed or
// oversized lines are logged and skipped. An error frame, or a body that ends
// before the done frame, is yielded as ErrBackendUnavailable. The response body
// is closed when the stream ends or the consumer stops ranging.
func (c *Client) ChatStream(ctx context.Context, req chatRequest) iter.Seq2[gjson.Result, error] {
	req.Stream = true

	return func(yield func(gjson.Result, error) bool) {
		logger := observability.FromContext(ctx)

		//nolint:bodyclose // closed by the deferred call below
		resp, err := c.post(ctx, chatPath, req)
		if err != nil {
			yield(gjson.Result{}, err)
			return
		}
		defer resp.Body.Close()

		reader := bufio.NewReaderSize(resp.Body, readBufferBytes)
		buf := make([]byte, 0, readBufferBytes)

		for {
			line, readErr := nextFrame(reader, buf)
			if errors.Is(readErr, errFrameTooLong) {
				logger.Warn("skipping oversized stream frame",
					observability.Error(domain.ErrNormalizationSkipped),
					observability.Int("max_bytes", maxFrameBytes))
				continue
			}

			if line = bytes.TrimSpace(line); len(line) > 0 {
				if !gjson.ValidBytes(line) {
					logger.Warn("skipping malformed stream frame",
						observability.Error(domain.ErrNormalizationSkipped),
						observability.String("frame", string(line)))
				} else {
					// Copy: the line buffer is reused for the next frame.
					frame := gjson.Parse(string(line))

					if backendErr := frame.Get("error"); backendErr.Exists() {
						yield(gjson.Result{}, fmt.Errorf("%w: %s", domain.ErrBackendUnavailable, backendErr.String()))
						return
					}

					if !yield(frame, nil) {
						return
					}

					if frame.Get("done").Bool() {
						return
					}
				}
			}

			if errors.Is(readErr, io.EOF) {
				yield(gjson.Result{}, fmt.Errorf("%w: stream ended before completion", domain.ErrBackendUnavailable))
				return
			}

			if readErr != nil {
				yield(gjson.Result{}, fmt.Errorf("%w: stream read failed: %w", domain.ErrBackendUnavailable, readErr))
				return
			}
		}
	}
}

// nextFrame reads one newline-terminated line into buf, reusing its storage.
// A line longer than maxFrameBytes is drained and reported as errFrameTooLong,
// so a single oversized frame does not end the stream. A final line without a
// trailing newline is returned together with io.EOF.
func nextFrame(reader *bufio.Reader, buf []byte) ([]byte, error) {
	buf = buf[:0]
	tooLong := false

	for {
		chunk, err := reader.ReadSlice('\n')

		if !tooLong {
			if len(buf)+len(chunk) > maxFrameBytes {
				tooLong = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		if tooLong {
			return nil, errFrameTooLong
		}

		return buf, err
	}
}

// Embed requests one embedding per text. A failed text yields a zero vector of
// the given dimension instead of failing the batch.
func (c *Client) Embed(ctx context.Context, model string, texts []string, dimension int) [][]float64 {
	logger := observability.FromContext(ctx)

	embeddings := make([][]float64, 0, len(texts))
	for _, text := range texts {
		embedding, err := c.embedOne(ctx, model, text)
		if err != nil {
			logger.Error("failed to generate embedding, substituting zero vector",
				observability.Error(err),
				observability.Int("dimension", dimension))
			embedding = make([]float64, dimension)
		}
		embeddings = append(embeddings, embedding)
	}

	return embeddings
}

func (c *Client) embedOne(ctx context.Context, model, text string) ([]float64, error) {
	resp, err := c.post(ctx, embeddingsPath, embeddingRequest{Model: model, Prompt: text})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", domain.ErrBackendUnavailable, err)
	}

	values := gjson.GetBytes(body, "embedding")
	if !values.IsArray() {
		return nil, fmt.Errorf("%w: embedding missing from response", ErrMalformedResponse)
	}

	embedding := make([]float64, 0, len(values.Array()))
	values.ForEach(func(_, value gjson.Result) bool {
		embedding = append(embedding, value.Float())
		return true
	})

	return embedding, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(httpReq)
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq)
}

// do executes the request and maps transport errors and non-2xx statuses to ErrBackendUnavailable.
func (c *Client) do(httpReq *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", domain.ErrBackendUnavailable, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: API returned status %d: %s", domain.ErrBackendUnavailable, resp.StatusCode, string(body))
	}

	return resp, nil
}

func toModelInfos(models gjson.Result) []domain.ModelInfo {
	infos := make([]domain.ModelInfo, 0, len(models.Array()))
	models.ForEach(func(_, model gjson.Result) bool {
		id := model.Get("name").String()
		if id == "" {
			id = model.Get("model").String()
		}

		infos = append(infos, domain.ModelInfo{
			ID:         id,
			OwnedBy:    "local",
			Family:     model.Get("details.family").String(),
			Digest:     model.Get("digest").String(),
			Size:       model.Get("size").Int(),
			ModifiedAt: model.Get("modified_at").Time(),
		})
		return true
	})

	return infos
}
