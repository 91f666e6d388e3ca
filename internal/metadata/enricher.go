// internal/metadata/enricher.go
package metadata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HosicoLabs/Litterbox/internal/domain"
)

// UnknownName is shown when an asset lookup fails.
const UnknownName = "Unknown Token"

// Asset is the display metadata of one mint.
type Asset struct {
	Symbol string
	Name   string
	Image  string
}

// Placeholder returns the metadata used when a lookup fails.
func Placeholder(mint string) Asset {
	symbol := mint
	if len(symbol) > 8 {
		symbol = symbol[:8] + "..."
	}
	return Asset{Symbol: symbol, Name: UnknownName}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type getAssetParams struct {
	ID string `json:"id"`
}

// Enricher fetches per-mint display metadata through the DAS getAsset call.
type Enricher struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewEnricher создаёт клиент для DAS API.
func NewEnricher(endpoint string, client *http.Client, logger *zap.Logger) *Enricher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Enricher{
		endpoint: endpoint,
		client:   client,
		logger:   logger.Named("metadata"),
	}
}

// Lookup resolves one mint. Missing fields fall back to the placeholder values.
func (e *Enricher) Lookup(ctx context.Context, mint string) (Asset, error) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      "1",
		Method:  "getAsset",
		Params:  getAssetParams{ID: mint},
	})
	if err != nil {
		return Asset{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Asset{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return Asset{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Asset{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Asset{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return Asset{}, fmt.Errorf("invalid JSON in getAsset response")
	}

	root := gjson.ParseBytes(body)
	if msg := root.Get("error.message"); msg.Exists() {
		return Asset{}, fmt.Errorf("getAsset: %s", msg.String())
	}
	content := root.Get("result.content")
	if !content.Exists() {
		return Asset{}, fmt.Errorf("getAsset: no content for %s", mint)
	}

	ph := Placeholder(mint)
	asset := Asset{
		Symbol: content.Get("metadata.symbol").String(),
		Name:   content.Get("metadata.name").String(),
		Image:  content.Get("links.image").String(),
	}
	if asset.Symbol == "" {
		asset.Symbol = ph.Symbol
	}
	if asset.Name == "" {
		asset.Name = ph.Name
	}
	return asset, nil
}

// EnrichPage looks up every record of one page concurrently and returns a
// copy with metadata merged in. A failed lookup degrades only its record.
func (e *Enricher) EnrichPage(ctx context.Context, page []domain.TokenAccountRecord) []domain.TokenAccountRecord {
	out := make([]domain.TokenAccountRecord, len(page))
	copy(out, page)

	var g errgroup.Group
	for i := range out {
		g.Go(func() error {
			mint := out[i].MintKey()
			asset, err := e.Lookup(ctx, mint)
			if err != nil {
				e.logger.Debug("Asset lookup failed", zap.String("mint", mint), zap.Error(err))
				asset = Placeholder(mint)
			}
			out[i].Symbol = asset.Symbol
			out[i].Name = asset.Name
			out[i].Image = asset.Image
			out[i].Enriched = true
			return nil
		})
	}
	_ = g.Wait()
	return out
}
