package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"nova-arcade/internal/domain"
	"nova-arcade/internal/jupiter"
)

// SwapRequest is the body of POST /api/jupiter/swap.
type SwapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          *bool           `json:"wrapAndUnwrapSol,omitempty"`
	PrioritizationFeeLamports *uint64         `json:"prioritizationFeeLamports,omitempty"`
}

// PriceResponse is the body of GET /api/jupiter/price/{mint}.
type PriceResponse struct {
	Mint   string  `json:"mint"`
	Price  float64 `json:"price"`
	Cached bool    `json:"cached"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if s.deps.Quoter == nil {
		writeError(w, http.StatusServiceUnavailable, "quotes unavailable")
		return
	}

	q := r.URL.Query()
	inputMint, outputMint, amount := q.Get("inputMint"), q.Get("outputMint"), q.Get("amount")
	if inputMint == "" || outputMint == "" || amount == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}
	slippage := DefaultSlippageBps
	if v := q.Get("slippageBps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 10000 {
			writeError(w, http.StatusBadRequest, "invalid slippageBps")
			return
		}
		slippage = n
	}

	quote, err := s.deps.Quoter.GetQuote(r.Context(), inputMint, outputMint, amount, slippage)
	if err != nil {
		s.proxyError(w, "quote", err)
		return
	}

	body, err := quoteBody(quote)
	if err != nil {
		s.log.Errorf("encode quote: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to encode quote")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// quoteBody returns the upstream quote with source and fetchedAt added,
// so the client can hand it back to the swap route unchanged.
func quoteBody(q *domain.Quote) ([]byte, error) {
	if len(q.Raw) == 0 {
		return json.Marshal(q)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(q.Raw, &fields); err != nil {
		return nil, err
	}
	source, _ := json.Marshal(q.Source)
	fields["source"] = source
	fields["fetchedAt"] = json.RawMessage(strconv.FormatInt(q.FetchedAt, 10))
	return json.Marshal(fields)
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	if s.deps.Builder == nil {
		writeError(w, http.StatusServiceUnavailable, "swaps unavailable")
		return
	}

	var req SwapRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.QuoteResponse) == 0 || req.UserPublicKey == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}
	if req.WrapAndUnwrapSol != nil && !*req.WrapAndUnwrapSol {
		writeError(w, http.StatusBadRequest, "wrapAndUnwrapSol=false is not supported")
		return
	}

	var head struct {
		Source domain.QuoteSource `json:"source"`
	}
	if err := json.Unmarshal(req.QuoteResponse, &head); err != nil {
		writeError(w, http.StatusBadRequest, "invalid quoteResponse")
		return
	}
	quote := &domain.Quote{Source: head.Source, Raw: req.QuoteResponse}
	if quote.Source == "" {
		quote.Source = domain.QuoteSourceJupiter
	}

	fee := s.priorityFee
	if req.PrioritizationFeeLamports != nil {
		fee = *req.PrioritizationFeeLamports
	}

	tx, err := s.deps.Builder.SwapTransaction(r.Context(), quote, req.UserPublicKey, fee)
	if err != nil {
		s.proxyError(w, "swap", err)
		return
	}
	if tx.PrioritizationFeeLamports == 0 {
		tx.PrioritizationFeeLamports = fee
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	mint := r.PathValue("mint")
	if mint == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}
	if s.deps.Tracker != nil {
		if price, ok := s.deps.Tracker.Price(mint); ok {
			writeJSON(w, http.StatusOK, PriceResponse{Mint: mint, Price: price, Cached: true})
			return
		}
	}
	if s.deps.Prices == nil {
		writeError(w, http.StatusServiceUnavailable, "prices unavailable")
		return
	}

	prices, err := s.deps.Prices.GetPrices(r.Context(), []string{mint})
	if err != nil {
		s.proxyError(w, "price", err)
		return
	}
	price, ok := prices[mint]
	if !ok {
		writeError(w, http.StatusNotFound, "no price for "+mint)
		return
	}
	writeJSON(w, http.StatusOK, PriceResponse{Mint: mint, Price: price})
}

func (s *Server) handleTokens(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Catalog.Tokens)
}

// proxyError maps upstream failures: bad input is 400, upstream HTTP
// errors keep their status, anything else is 503.
func (s *Server) proxyError(w http.ResponseWriter, op string, err error) {
	var apiErr *jupiter.APIError
	switch {
	case errors.Is(err, jupiter.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &apiErr):
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		writeError(w, apiErr.StatusCode, msg)
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		s.log.Warnf("%s proxy: %v", op, err)
		writeError(w, http.StatusServiceUnavailable, "Failed to fetch "+op)
	}
}
