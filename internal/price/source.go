// internal/price/source.go
package price

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Source resolves USD prices for a batch of mints. A source returns only the
// entries it could parse; an error means the whole source was unavailable.
type Source interface {
	Name() string
	Resolve(ctx context.Context, mints []string) (map[string]float64, error)
}

// httpGetter is shared by all HTTP-backed sources.
type httpGetter struct {
	client *http.Client
}

func newHTTPGetter(client *http.Client) httpGetter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return httpGetter{client: client}
}

// get выполняет GET и возвращает тело ответа при статусе 200.
func (g httpGetter) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
