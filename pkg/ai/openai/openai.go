package openai

import (
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"

	"github.com/nodal-works/ferret/backend/pkg/ai"
)

// Client implements ai.Client against OpenAI-compatible endpoints. Chat and
// embedding traffic can be pointed at different hosts, which matters when
// embeddings come from a cheaper provider than generation.
type Client struct {
	chatModel      string
	embeddingModel string

	chatURL      string
	chatKey      string
	embeddingURL string
	embeddingKey string

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewClientParams defines the configuration for creating a Client. Leaving
// EmbeddingURL/EmbeddingKey empty reuses the chat endpoint for embeddings.
type NewClientParams struct {
	ChatModel      string
	EmbeddingModel string

	ChatURL      string
	ChatKey      string
	EmbeddingURL string
	EmbeddingKey string

	MaxConcurrentRequests int64
}

// NewClient creates an OpenAI-backed AI client.
func NewClient(params NewClientParams) *Client {
	embeddingURL, embeddingKey := params.EmbeddingURL, params.EmbeddingKey
	if embeddingKey == "" {
		embeddingURL, embeddingKey = params.ChatURL, params.ChatKey
	}

	concurrency := params.MaxConcurrentRequests
	if concurrency <= 0 {
		concurrency = 4
	}

	return &Client{
		chatModel:      params.ChatModel,
		embeddingModel: params.EmbeddingModel,

		chatURL:      params.ChatURL,
		chatKey:      params.ChatKey,
		embeddingURL: embeddingURL,
		embeddingKey: embeddingKey,

		reqLock: semaphore.NewWeighted(concurrency),

		ChatClient:      newOpenaiClient(params.ChatURL, params.ChatKey),
		EmbeddingClient: newOpenaiClient(embeddingURL, embeddingKey),
	}
}

func newOpenaiClient(baseURL string, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}
