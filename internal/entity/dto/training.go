package dto

import (
	"encoding/json"
	"headshots/internal/entity/common"
	"strings"
)

// TrainModelRequest POST /astria/train-model 请求体。
type TrainModelRequest struct {
	URLs            json.RawMessage       `json:"urls"`
	Type            string                `json:"type"`
	Name            string                `json:"name"`
	Pack            common.FlexibleString `json:"pack,omitempty"`
	Characteristics map[string]any        `json:"characteristics,omitempty"`
}

// DecodeTrainModelRequest 逐字段解析请求体。
// 空请求体、非法 JSON 或类型不符的字段都按缺失处理，由调用方给出具体的字段错误。
func DecodeTrainModelRequest(body []byte) TrainModelRequest {
	var req TrainModelRequest
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return req
	}
	req.URLs = fields["urls"]
	req.Type = stringField(fields["type"])
	req.Name = stringField(fields["name"])
	if raw, ok := fields["pack"]; ok {
		if err := json.Unmarshal(raw, &req.Pack); err != nil {
			req.Pack = ""
		}
	}
	if raw, ok := fields["characteristics"]; ok {
		var characteristics map[string]any
		if err := json.Unmarshal(raw, &characteristics); err == nil {
			req.Characteristics = characteristics
		}
	}
	return req
}

func stringField(raw json.RawMessage) string {
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

// ImageURLs 解析 urls 字段，非数组返回 false。
func (r *TrainModelRequest) ImageURLs() ([]string, bool) {
	raw := strings.TrimSpace(string(r.URLs))
	if raw == "" || raw == "null" || !strings.HasPrefix(raw, "[") {
		return nil, false
	}
	var items []string
	if err := json.Unmarshal(r.URLs, &items); err != nil {
		return nil, false
	}
	urls := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	return urls, true
}

// MessageResponse 通用 {message} 响应。
type MessageResponse struct {
	Message string `json:"message"`
}

// AstriaHealthConfig 配置是否就绪。
type AstriaHealthConfig struct {
	AstriaAPIConfigured          bool   `json:"astriaApiConfigured"`
	WebhookSecretConfigured      bool   `json:"webhookSecretConfigured"`
	DeploymentURLConfigured      bool   `json:"deploymentUrlConfigured"`
	TuneType                     string `json:"tuneType"`
	PackQueryType                string `json:"packQueryType"`
	StripeEnabled                bool   `json:"stripeEnabled"`
	BlobStorageConfigured        bool   `json:"blobStorageConfigured"`
	EmailNotificationsConfigured bool   `json:"emailNotificationsConfigured"`
}

// AstriaHealthResponse GET /astria/health 响应。
type AstriaHealthResponse struct {
	Status  string             `json:"status"`
	Message string             `json:"message"`
	Config  AstriaHealthConfig `json:"config"`
}

// UploadResponse 上传后的公开地址。
type UploadResponse struct {
	URLs []string `json:"urls"`
}
