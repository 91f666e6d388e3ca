// internal/price/sources.go
package price

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	errMalformed = errors.New("malformed price response")
	errPanicked  = errors.New("price source panicked")
)

// JupiterV3 is the primary bulk endpoint: {"<mint>":{"usdPrice":1.23}, ...}.
type JupiterV3 struct {
	baseURL string
	http    httpGetter
}

func NewJupiterV3(baseURL string, client *http.Client) *JupiterV3 {
	return &JupiterV3{baseURL: baseURL, http: newHTTPGetter(client)}
}

func (s *JupiterV3) Name() string { return "jupiter_v3" }

func (s *JupiterV3) Resolve(ctx context.Context, mints []string) (map[string]float64, error) {
	body, err := s.http.get(ctx, s.baseURL+"?ids="+strings.Join(mints, ","))
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, errMalformed
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, errMalformed
	}

	out := make(map[string]float64)
	root.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = nonNegative(value.Get("usdPrice").Float())
		return true
	})
	return out, nil
}

// CoinGecko is the public price index: {"<mint>":{"usd":1.23}, ...}. Keys may come back lowercased.
type CoinGecko struct {
	baseURL string
	http    httpGetter
}

func NewCoinGecko(baseURL string, client *http.Client) *CoinGecko {
	return &CoinGecko{baseURL: baseURL, http: newHTTPGetter(client)}
}

func (s *CoinGecko) Name() string { return "coingecko" }

func (s *CoinGecko) Resolve(ctx context.Context, mints []string) (map[string]float64, error) {
	q := url.Values{}
	q.Set("contract_addresses", strings.Join(mints, ","))
	q.Set("vs_currencies", "usd")

	body, err := s.http.get(ctx, s.baseURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, errMalformed
	}

	byLower := make(map[string]string, len(mints))
	for _, m := range mints {
		byLower[strings.ToLower(m)] = m
	}

	out := make(map[string]float64)
	gjson.ParseBytes(body).ForEach(func(key, value gjson.Result) bool {
		mint, ok := byLower[strings.ToLower(key.String())]
		if !ok {
			return true
		}
		if usd := value.Get("usd"); usd.Exists() {
			out[mint] = nonNegative(usd.Float())
		}
		return true
	})
	return out, nil
}

// JupiterV2 is the alternate aggregator endpoint: {"data":{"<mint>":{"price":"1.23"}}}.
// Price may be a JSON string or number; null entries are skipped.
type JupiterV2 struct {
	baseURL string
	http    httpGetter
}

func NewJupiterV2(baseURL string, client *http.Client) *JupiterV2 {
	return &JupiterV2{baseURL: baseURL, http: newHTTPGetter(client)}
}

func (s *JupiterV2) Name() string { return "jupiter_v2" }

func (s *JupiterV2) Resolve(ctx context.Context, mints []string) (map[string]float64, error) {
	body, err := s.http.get(ctx, s.baseURL+"?ids="+strings.Join(mints, ","))
	if err != nil {
		return nil, err
	}
	data := gjson.GetBytes(body, "data")
	if !data.IsObject() {
		return nil, errMalformed
	}

	out := make(map[string]float64)
	data.ForEach(func(key, value gjson.Result) bool {
		p := value.Get("price")
		if p.Exists() && p.Type != gjson.Null {
			out[key.String()] = nonNegative(p.Float())
		}
		return true
	})
	return out, nil
}

// QuoteDerived prices the target token from a swap quote of one native unit:
// price = nativePriceUSD / (outAmount / 10^targetDecimals). Only the target mint is answered.
type QuoteDerived struct {
	baseURL        string
	http           httpGetter
	nativeMint     string
	targetMint     string
	nativeDecimals uint8
	targetDecimals uint8
	sanityMax      float64
	nativePrice    func() float64
}

// QuoteDerivedConfig collects the fixed parameters of the derived source.
type QuoteDerivedConfig struct {
	BaseURL        string
	NativeMint     string
	TargetMint     string
	NativeDecimals uint8
	TargetDecimals uint8
	SanityMax      float64
	// NativePrice returns the current native USD price; it is called per lookup.
	NativePrice func() float64
}

func NewQuoteDerived(cfg QuoteDerivedConfig, client *http.Client) *QuoteDerived {
	return &QuoteDerived{
		baseURL:        cfg.BaseURL,
		http:           newHTTPGetter(client),
		nativeMint:     cfg.NativeMint,
		targetMint:     cfg.TargetMint,
		nativeDecimals: cfg.NativeDecimals,
		targetDecimals: cfg.TargetDecimals,
		sanityMax:      cfg.SanityMax,
		nativePrice:    cfg.NativePrice,
	}
}

func (s *QuoteDerived) Name() string { return "jupiter_quote" }

func (s *QuoteDerived) Resolve(ctx context.Context, mints []string) (map[string]float64, error) {
	out := make(map[string]float64)
	wanted := false
	for _, m := range mints {
		if m == s.targetMint {
			wanted = true
			break
		}
	}
	if !wanted {
		return out, nil
	}

	q := url.Values{}
	q.Set("inputMint", s.nativeMint)
	q.Set("outputMint", s.targetMint)
	q.Set("amount", fmt.Sprintf("%d", pow10(s.nativeDecimals)))
	q.Set("slippageBps", "50")

	body, err := s.http.get(ctx, s.baseURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	outAmount := gjson.GetBytes(body, "outAmount").Float()
	if outAmount <= 0 {
		return nil, errMalformed
	}

	nativeUSD := s.nativePrice()
	if nativeUSD <= 0 {
		return out, nil
	}

	implied := nativeUSD / (outAmount / float64(pow10(s.targetDecimals)))
	if implied > 0 && implied < s.sanityMax && !math.IsInf(implied, 0) && !math.IsNaN(implied) {
		out[s.targetMint] = implied
	}
	return out, nil
}

func pow10(decimals uint8) uint64 {
	v := uint64(1)
	for i := uint8(0); i < decimals; i++ {
		v *= 10
	}
	return v
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
