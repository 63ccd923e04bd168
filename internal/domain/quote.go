package domain

import "encoding/json"

// QuoteSource identifies which venue produced a quote.
type QuoteSource string

const (
	QuoteSourceJupiter QuoteSource = "jupiter"
	QuoteSourcePumpFun QuoteSource = "pumpfun"
)

// Quote is a priced route for an exact (input, output, amount, slippage) tuple.
// Amounts are in smallest units.
type Quote struct {
	InputMint            string          `json:"inputMint"`
	OutputMint           string          `json:"outputMint"`
	InAmount             string          `json:"inAmount"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          int             `json:"slippageBps"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            []RouteStep     `json:"routePlan"`
	ContextSlot          int64           `json:"contextSlot,omitempty"`
	TimeTaken            float64         `json:"timeTaken,omitempty"`
	Source               QuoteSource     `json:"source"`
	FetchedAt            int64           `json:"fetchedAt"` // ms
	Raw                  json.RawMessage `json:"-"`         // upstream body, echoed back on swap
}

// RouteStep is one hop of a route.
type RouteStep struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  int      `json:"percent"`
}

// SwapInfo describes the AMM used for a hop.
type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label,omitempty"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount,omitempty"`
	FeeMint    string `json:"feeMint,omitempty"`
}

// SwapTransaction is an unsigned serialized transaction ready for signing.
type SwapTransaction struct {
	SwapTransaction           string `json:"swapTransaction"` // base64
	LastValidBlockHeight      uint64 `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports uint64 `json:"prioritizationFeeLamports,omitempty"`
}

// SwapResult is the outcome of an executed swap.
type SwapResult struct {
	Signature string      `json:"signature"`
	Source    QuoteSource `json:"source"`
	InAmount  string      `json:"inAmount"`
	OutAmount string      `json:"outAmount"`
}
