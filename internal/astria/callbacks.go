package astria

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	TrainWebhookPath  = "/astria/train-webhook"
	PromptWebhookPath = "/astria/prompt-webhook"
)

// Callbacks are the webhook URLs handed to Astria for one model.
type Callbacks struct {
	Train  string
	Prompt string
}

// BuildCallbacks embeds the owner, the model and the shared secret in both webhook URLs.
func BuildCallbacks(baseURL, userID string, modelID uint, secret string) Callbacks {
	base := strings.TrimRight(baseURL, "/")
	query := url.Values{}
	query.Set("user_id", userID)
	query.Set("model_id", strconv.FormatUint(uint64(modelID), 10))
	query.Set("webhook_secret", secret)
	encoded := query.Encode()

	return Callbacks{
		Train:  base + TrainWebhookPath + "?" + encoded,
		Prompt: base + PromptWebhookPath + "?" + encoded,
	}
}
