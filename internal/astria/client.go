package astria

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"headshots/internal/config"
	"headshots/internal/entity/common"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://api.astria.ai"

	// Realistic Vision v5.1 from the Astria gallery
	baseTuneID      = 690204
	defaultBranch   = "sd15"
	tuneToken       = "ohwx"
	imagesPerPrompt = 8
)

var promptTemplates = []string{
	"portrait of ohwx %s wearing a business suit, professional photo, white background, Amazing Details, Best Quality, Masterpiece, dramatic lighting highly detailed, analog photo, overglaze, 80mm Sigma f/1.4 or any ZEISS lens",
	"8k close up linkedin profile picture of ohwx %s, professional jack suite, professional headshots, photo-realistic, 4k, high-resolution image, workplace settings, upper body, modern outfit, professional suit, business, blurred background, glass building, office window",
}

// Client talks to the Astria fine-tuning API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client from configuration.
func NewClient(cfg config.Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.AstriaAPIKey)
	if apiKey == "" {
		return nil, errors.New("astria api key is not configured")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.AstriaBaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.AstriaTimeout()},
	}, nil
}

// TuneRequest describes one fine-tune submission.
type TuneRequest struct {
	Title           string
	ModelType       string
	PackID          string
	ImageURLs       []string
	Characteristics map[string]any
	Callbacks       Callbacks
}

// TuneResponse carries the provider status whatever it was.
type TuneResponse struct {
	StatusCode int
	TuneID     string
	Body       string
}

type promptAttributes struct {
	Text      string `json:"text,omitempty"`
	Callback  string `json:"callback"`
	NumImages int    `json:"num_images,omitempty"`
}

type tunePayload struct {
	Title             string             `json:"title"`
	BaseTuneID        int                `json:"base_tune_id,omitempty"`
	Name              string             `json:"name"`
	Branch            string             `json:"branch,omitempty"`
	Token             string             `json:"token,omitempty"`
	ImageURLs         []string           `json:"image_urls"`
	Callback          string             `json:"callback"`
	Characteristics   map[string]any     `json:"characteristics,omitempty"`
	PromptsAttributes []promptAttributes `json:"prompts_attributes,omitempty"`
	PromptAttributes  *promptAttributes  `json:"prompt_attributes,omitempty"`
}

type tuneEnvelope struct {
	Tune tunePayload `json:"tune"`
}

type tuneCreated struct {
	ID common.FlexibleString `json:"id"`
}

// CreateTune submits a fine-tune job. A non-2xx status is returned in the
// response, not as an error; only transport failures yield *TransportError.
func (c *Client) CreateTune(ctx context.Context, req TuneRequest) (*TuneResponse, error) {
	if c == nil {
		return nil, errors.New("astria client not initialised")
	}

	endpoint, envelope := c.buildTuneRequest(req)
	logger := astriaLogger(ctx, endpoint)
	logger.WithFields(logrus.Fields{
		"title":       req.Title,
		"type":        req.ModelType,
		"pack":        req.PackID,
		"image_count": len(req.ImageURLs),
	}).Info("astria_create_tune_start")

	bs, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("astria marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("astria create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		kind := classifyTransportError(err)
		logger.WithError(err).WithField("kind", kind).Error("astria_create_tune_failed")
		return nil, &TransportError{Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &TransportError{Kind: ErrorNoResponse, Err: fmt.Errorf("read response: %w", err)}
	}

	out := &TuneResponse{StatusCode: resp.StatusCode, Body: string(body)}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var created tuneCreated
		if err := json.Unmarshal(body, &created); err == nil {
			out.TuneID = created.ID.String()
		}
	}

	logger.WithFields(logrus.Fields{
		"status":  resp.StatusCode,
		"tune_id": out.TuneID,
		"body":    logSnippet(out.Body),
	}).Info("astria_create_tune_done")
	return out, nil
}

func (c *Client) buildTuneRequest(req TuneRequest) (string, tuneEnvelope) {
	imageURLs := req.ImageURLs
	if imageURLs == nil {
		imageURLs = []string{}
	}
	characteristics := req.Characteristics
	if len(characteristics) == 0 {
		characteristics = nil
	}

	if pack := strings.TrimSpace(req.PackID); pack != "" {
		return "/p/" + url.PathEscape(pack) + "/tunes", tuneEnvelope{Tune: tunePayload{
			Title:            req.Title,
			Name:             req.ModelType,
			Callback:         req.Callbacks.Train,
			Characteristics:  characteristics,
			PromptAttributes: &promptAttributes{Callback: req.Callbacks.Prompt},
			ImageURLs:        imageURLs,
		}}
	}

	prompts := make([]promptAttributes, 0, len(promptTemplates))
	for _, tmpl := range promptTemplates {
		prompts = append(prompts, promptAttributes{
			Text:      fmt.Sprintf(tmpl, req.ModelType),
			Callback:  req.Callbacks.Prompt,
			NumImages: imagesPerPrompt,
		})
	}
	return "/tunes", tuneEnvelope{Tune: tunePayload{
		Title:             req.Title,
		BaseTuneID:        baseTuneID,
		Name:              req.ModelType,
		Branch:            defaultBranch,
		Token:             tuneToken,
		ImageURLs:         imageURLs,
		Callback:          req.Callbacks.Train,
		Characteristics:   characteristics,
		PromptsAttributes: prompts,
	}}
}
