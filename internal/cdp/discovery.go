package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ListTargets queries the browser's HTTP directory endpoint and returns
// its debuggable page targets in the order the browser reported them.
// Non-page targets (workers, iframes, service workers) are filtered
// out. The list is fetched fresh on every call; nothing is cached.
func ListTargets(ctx context.Context, baseURL string) ([]Target, error) {
	url := strings.TrimRight(baseURL, "/") + "/json/list"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &DiscoveryError{URL: url, Err: err}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, &DiscoveryError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &DiscoveryError{URL: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var targets []Target
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return nil, &DiscoveryError{URL: url, Err: fmt.Errorf("malformed target list: %w", err)}
	}

	pages := make([]Target, 0, len(targets))
	for _, t := range targets {
		if t.Type == "page" {
			pages = append(pages, t)
		}
	}
	return pages, nil
}
