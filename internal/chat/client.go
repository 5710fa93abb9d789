// Package chat relays visitor questions to a hosted generative-language
// model and holds the optional live voice stream.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel    = "gemini-2.5-flash"
	Temperature     = 0.7

	// maxHistory bounds the conversation kept per client, in turns.
	maxHistory = 40
)

const SystemInstruction = `You are the studio assistant of Voxelyard, an interactive build yard where
visitors assemble a project from labelled service blocks.

Your job is to help visitors understand the blocks on the shelves, what the
studio builds, and how to get in touch.

- Be natural and professional. Keep answers short and concrete.
- If asked what you are, say you are an AI assistant for this site.
- If asked for prices, explain that every project is scoped individually and
  suggest using the FINISH button to send the manifest to the studio.
- Answer in English unless the visitor writes in another language.`

const (
	DemoReply  = "Demo mode: no chat API key is configured on the server. Use FINISH to send your manifest to the studio."
	EmptyReply = "The assistant returned an empty reply."
)

// ErrUnavailable wraps every transport, auth and upstream failure.
var ErrUnavailable = errors.New("chat unavailable")

type Reply struct {
	Text string
	Demo bool
}

// Replier answers one prompt.
type Replier interface {
	Reply(ctx context.Context, prompt string) (Reply, error)
}

type Config struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
}

// New returns a Client when an API key is set and Demo otherwise.
func New(cfg Config) Replier {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Demo{}
	}
	return NewClient(cfg)
}

// Demo answers every prompt with a fixed notice.
type Demo struct{}

func (Demo) Reply(context.Context, string) (Reply, error) {
	return Reply{Text: DemoReply, Demo: true}, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateRequest struct {
	SystemInstruction content          `json:"systemInstruction"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Client keeps one multi-turn conversation with the model.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client

	mu      sync.Mutex
	history []content
}

func NewClient(cfg Config) *Client {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		model:      model,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Reply(ctx context.Context, prompt string) (Reply, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Reply{}, fmt.Errorf("empty prompt")
	}

	// The lock spans the request so turns stay ordered.
	c.mu.Lock()
	defer c.mu.Unlock()

	user := content{Role: "user", Parts: []part{{Text: prompt}}}
	body, err := json.Marshal(generateRequest{
		SystemInstruction: content{Parts: []part{{Text: SystemInstruction}}},
		Contents:          append(append([]content(nil), c.history...), user),
		GenerationConfig:  generationConfig{Temperature: Temperature},
	})
	if err != nil {
		return Reply{}, err
	}

	u := c.endpoint + "/models/" + c.model + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return Reply{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Reply{}, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Reply{}, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Reply{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	var sb strings.Builder
	if len(out.Candidates) > 0 {
		for _, p := range out.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return Reply{Text: EmptyReply}, nil
	}

	c.history = append(c.history, user, content{Role: "model", Parts: []part{{Text: text}}})
	if len(c.history) > maxHistory {
		c.history = append([]content(nil), c.history[len(c.history)-maxHistory:]...)
	}
	return Reply{Text: text}, nil
}

// Reset forgets the conversation.
func (c *Client) Reset() {
	c.mu.Lock()
	c.history = nil
	c.mu.Unlock()
}
