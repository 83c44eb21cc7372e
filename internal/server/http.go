// Package server exposes the engine over HTTP/JSON and a gRPC endpoint with
// health checking and reflection.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"SynthLedger/internal/engine"
	"SynthLedger/internal/fixedpoint"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/observability"
	"SynthLedger/internal/oracle"
	"SynthLedger/internal/query"
	"SynthLedger/internal/registry"
)

// HTTPServer is the JSON API over the engine and the query service.
type HTTPServer struct {
	engine  *engine.Engine
	queries *query.Service
	health  *observability.HealthChecker
	metrics *observability.Metrics
	log     zerolog.Logger
	srv     *http.Server
}

func NewHTTPServer(addr string, eng *engine.Engine, queries *query.Service, health *observability.HealthChecker, metrics *observability.Metrics, log zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		engine:  eng,
		queries: queries,
		health:  health,
		metrics: metrics,
		log:     log,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/collateral/deposit", s.handleDeposit)
	mux.HandleFunc("POST /v1/collateral/redeem", s.handleRedeem)
	mux.HandleFunc("POST /v1/liability/mint", s.handleMint)
	mux.HandleFunc("POST /v1/liability/burn", s.handleBurn)
	mux.HandleFunc("POST /v1/deposit-and-mint", s.handleDepositAndMint)
	mux.HandleFunc("POST /v1/redeem-for-dsc", s.handleRedeemForDsc)
	mux.HandleFunc("POST /v1/liquidate", s.handleLiquidate)

	mux.HandleFunc("GET /v1/accounts/{user}", s.handleAccountInformation)
	mux.HandleFunc("GET /v1/accounts/{user}/health-factor", s.handleHealthFactor)
	mux.HandleFunc("GET /v1/accounts/{user}/collateral/{asset}", s.handleCollateralBalance)
	mux.HandleFunc("GET /v1/accounts/{user}/balances/{asset}", s.handleProjectedBalance)
	mux.HandleFunc("GET /v1/accounts/{user}/journal", s.handleJournalHistory)
	mux.HandleFunc("GET /v1/collateral/assets", s.handleListAssets)
	mux.HandleFunc("GET /v1/price/{asset}/value", s.handleUsdValue)
	mux.HandleFunc("GET /v1/price/{asset}/amount", s.handleTokenAmount)
	mux.HandleFunc("GET /v1/operations", s.handleOperations)
	mux.HandleFunc("GET /v1/integrity", s.handleIntegrity)

	mux.HandleFunc("/healthz", health.LivenessHandler)
	mux.HandleFunc("/readyz", health.ReadinessHandler)
	mux.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// ---- mutation handlers ----

type positionRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Asset  string    `json:"asset,omitempty"`
	Amount string    `json:"amount"`
}

type compositeRequest struct {
	UserID           uuid.UUID `json:"user_id"`
	Asset            string    `json:"asset"`
	CollateralAmount string    `json:"collateral_amount"`
	DscAmount        string    `json:"dsc_amount"`
}

type liquidateRequest struct {
	Liquidator  uuid.UUID `json:"liquidator"`
	Target      uuid.UUID `json:"target"`
	Asset       string    `json:"asset"`
	DebtToCover string    `json:"debt_to_cover"`
}

func (s *HTTPServer) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	amount, ok := s.decodeAmount(w, r, &req, &req.Amount)
	if !ok {
		return
	}
	s.finishMutation(w, "deposit",
		s.engine.DepositCollateral(r.Context(), req.UserID, req.Asset, amount))
}

func (s *HTTPServer) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	amount, ok := s.decodeAmount(w, r, &req, &req.Amount)
	if !ok {
		return
	}
	s.finishMutation(w, "redeem",
		s.engine.RedeemCollateral(r.Context(), req.UserID, req.Asset, amount))
}

func (s *HTTPServer) handleMint(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	amount, ok := s.decodeAmount(w, r, &req, &req.Amount)
	if !ok {
		return
	}
	s.finishMutation(w, "mint",
		s.engine.MintLiability(r.Context(), req.UserID, amount))
}

func (s *HTTPServer) handleBurn(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	amount, ok := s.decodeAmount(w, r, &req, &req.Amount)
	if !ok {
		return
	}
	s.finishMutation(w, "burn",
		s.engine.BurnLiability(r.Context(), req.UserID, amount))
}

func (s *HTTPServer) handleDepositAndMint(w http.ResponseWriter, r *http.Request) {
	var req compositeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	collateral, err := parseWad(req.CollateralAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dsc, err := parseWad(req.DscAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.finishMutation(w, "deposit_and_mint",
		s.engine.DepositCollateralAndMint(r.Context(), req.UserID, req.Asset, collateral, dsc))
}

func (s *HTTPServer) handleRedeemForDsc(w http.ResponseWriter, r *http.Request) {
	var req compositeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	collateral, err := parseWad(req.CollateralAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dsc, err := parseWad(req.DscAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.finishMutation(w, "redeem_for_dsc",
		s.engine.RedeemCollateralForDsc(r.Context(), req.UserID, req.Asset, collateral, dsc))
}

func (s *HTTPServer) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	var req liquidateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	debt, err := parseWad(req.DebtToCover)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.finishMutation(w, "liquidate",
		s.engine.Liquidate(r.Context(), req.Liquidator, req.Target, req.Asset, debt))
}

// ---- query handlers ----

func (s *HTTPServer) handleAccountInformation(w http.ResponseWriter, r *http.Request) {
	user, ok := pathUser(w, r)
	if !ok {
		return
	}
	info, err := s.engine.GetAccountInformation(r.Context(), user)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"liability":            fixedpoint.String(info.Liability),
		"collateral_value_usd": fixedpoint.String(info.CollateralValueUsd),
	})
}

func (s *HTTPServer) handleHealthFactor(w http.ResponseWriter, r *http.Request) {
	user, ok := pathUser(w, r)
	if !ok {
		return
	}
	factor, err := s.engine.GetHealthFactor(r.Context(), user)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	resp := map[string]interface{}{"health_factor": fixedpoint.String(factor)}
	if factor.Cmp(fixedpoint.Infinity) == 0 {
		resp["health_factor"] = "infinity"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleCollateralBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := pathUser(w, r)
	if !ok {
		return
	}
	asset := r.PathValue("asset")
	balance := s.engine.GetCollateralBalance(user, asset)
	writeJSON(w, http.StatusOK, map[string]string{
		"asset":   asset,
		"balance": fixedpoint.String(balance),
	})
}

// handleProjectedBalance reads from the projection tables rather than the
// live engine, so it reflects state as of the projection watermark.
func (s *HTTPServer) handleProjectedBalance(w http.ResponseWriter, r *http.Request) {
	if s.queries == nil {
		writeError(w, http.StatusServiceUnavailable, "query store not configured")
		return
	}
	user, ok := pathUser(w, r)
	if !ok {
		return
	}
	balance, err := s.queries.GetBalance(r.Context(), user, r.PathValue("asset"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (s *HTTPServer) handleJournalHistory(w http.ResponseWriter, r *http.Request) {
	if s.queries == nil {
		writeError(w, http.StatusServiceUnavailable, "query store not configured")
		return
	}
	user, ok := pathUser(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	var before *int64
	if v := r.URL.Query().Get("before"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			before = &n
		}
	}
	entries, err := s.queries.GetJournalHistory(r.Context(), user, limit, before)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (s *HTTPServer) handleListAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assets": s.engine.ListCollateralAssets(),
	})
}

func (s *HTTPServer) handleUsdValue(w http.ResponseWriter, r *http.Request) {
	asset := r.PathValue("asset")
	amount, err := parseWad(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	value, err := s.engine.GetUsdValue(r.Context(), asset, amount)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"usd_value": fixedpoint.String(value)})
}

func (s *HTTPServer) handleTokenAmount(w http.ResponseWriter, r *http.Request) {
	asset := r.PathValue("asset")
	usd, err := parseWad(r.URL.Query().Get("usd"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := s.engine.GetTokenAmountFromUsd(r.Context(), asset, usd)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token_amount": fixedpoint.String(amount)})
}

func (s *HTTPServer) handleOperations(w http.ResponseWriter, r *http.Request) {
	if s.queries == nil {
		writeError(w, http.StatusServiceUnavailable, "query store not configured")
		return
	}
	from, _ := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ops, err := s.queries.GetOperations(r.Context(), from, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"operations": ops})
}

func (s *HTTPServer) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	if s.queries == nil {
		writeError(w, http.StatusServiceUnavailable, "query store not configured")
		return
	}
	report, err := s.queries.VerifyIntegrity(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ---- helpers ----

func (s *HTTPServer) decodeAmount(w http.ResponseWriter, r *http.Request, req *positionRequest, raw *string) (*big.Int, bool) {
	if !decodeJSON(w, r, req) {
		return nil, false
	}
	amount, err := parseWad(*raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return amount, true
}

func (s *HTTPServer) finishMutation(w http.ResponseWriter, op string, err error) {
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "op": op})
}

// writeEngineError maps engine errors onto HTTP status codes.
func (s *HTTPServer) writeEngineError(w http.ResponseWriter, err error) {
	var (
		broken  engine.BrokenHealthFactorError
		unknown registry.ErrUnknownAsset
	)
	switch {
	case errors.Is(err, engine.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &unknown):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &broken),
		errors.Is(err, engine.ErrHealthFactorOk),
		errors.Is(err, engine.ErrHealthFactorNotImproved),
		errors.Is(err, ledger.ErrInsufficientCollateral),
		errors.Is(err, ledger.ErrInsufficientDebt):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, oracle.ErrStalePrice), errors.Is(err, oracle.ErrOracleUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, engine.ErrMintFailed), errors.Is(err, engine.ErrTransferFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.log.Error().Err(err).Msg("unhandled engine error")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func pathUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	user, err := uuid.Parse(r.PathValue("user"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return uuid.Nil, false
	}
	return user, true
}

func parseWad(raw string) (*big.Int, error) {
	if raw == "" {
		return nil, errors.New("amount is required")
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, errors.New("amount must be a decimal integer in wad units")
	}
	return v, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
