package astria

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	PackQueryUsers   = "users"
	PackQueryGallery = "gallery"
	PackQueryBoth    = "both"
)

// Pack is a prompt pack offered by Astria.
type Pack struct {
	ID       int64  `json:"id"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	CoverURL string `json:"cover_url,omitempty"`
}

// ListPacks returns the account packs, the public gallery packs, or both.
func (c *Client) ListPacks(ctx context.Context, queryType string) ([]Pack, error) {
	if c == nil {
		return nil, errors.New("astria client not initialised")
	}

	switch strings.ToLower(strings.TrimSpace(queryType)) {
	case PackQueryGallery:
		return c.fetchPacks(ctx, "/gallery/packs")
	case PackQueryBoth:
		users, err := c.fetchPacks(ctx, "/packs")
		if err != nil {
			return nil, err
		}
		gallery, err := c.fetchPacks(ctx, "/gallery/packs")
		if err != nil {
			return nil, err
		}
		return mergePacks(users, gallery), nil
	default:
		return c.fetchPacks(ctx, "/packs")
	}
}

func (c *Client) fetchPacks(ctx context.Context, endpoint string) ([]Pack, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("astria create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Kind: classifyTransportError(err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("astria read packs: %w", err)
	}
	if resp.StatusCode >= 400 {
		astriaLogger(ctx, endpoint).WithField("status", resp.StatusCode).Warn("astria_list_packs_failed")
		return nil, fmt.Errorf("astria http %d: %s", resp.StatusCode, logSnippet(string(body)))
	}

	var packs []Pack
	if err := json.Unmarshal(body, &packs); err != nil {
		return nil, fmt.Errorf("astria decode packs: %w", err)
	}
	return packs, nil
}

func mergePacks(lists ...[]Pack) []Pack {
	seen := make(map[int64]struct{})
	merged := make([]Pack, 0)
	for _, list := range lists {
		for _, p := range list {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			merged = append(merged, p)
		}
	}
	return merged
}
