package astria

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

const logSnippetLimit = 200

func astriaLogger(ctx context.Context, endpoint string) *logrus.Entry {
	fields := logrus.Fields{
		"provider": "astria",
	}
	if trimmed := strings.TrimSpace(endpoint); trimmed != "" {
		fields["endpoint"] = trimmed
	}

	entry := logrus.WithFields(fields)
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}
	return entry
}

func logSnippet(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	runes := []rune(value)
	if len(runes) <= logSnippetLimit {
		return value
	}

	return string(runes[:logSnippetLimit]) + "..."
}
