// Package api exposes the swap pipeline over HTTP. The API accepts
// amounts in base units as decimal strings; it never accepts private
// keys. Externally signed transactions enter through /v1/swap/submit.
package api

import (
	"context"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/greyfield/swaprouter/internal/engine"
	"github.com/greyfield/swaprouter/internal/helpers"
	"github.com/greyfield/swaprouter/internal/report"
	"github.com/greyfield/swaprouter/internal/signer"
	"github.com/greyfield/swaprouter/internal/swaperr"
	"github.com/greyfield/swaprouter/internal/telemetry"
	"github.com/greyfield/swaprouter/internal/venue"
)

// Executor runs full pipeline swaps; Broadcaster is Phase B as the API
// sees it.
type Executor interface {
	Execute(ctx context.Context, req engine.Request) (report.SwapOutcome, error)
}

type Broadcaster interface {
	Broadcast(ctx context.Context, blob signer.SignedBlob) (*types.Receipt, error)
}

type Server struct {
	echo        *echo.Echo
	engine      Executor
	broadcaster Broadcaster
	catalog     *venue.Catalog
	sink        report.Sink
}

func NewServer(eng Executor, b Broadcaster, catalog *venue.Catalog, sink report.Sink) *Server {
	s := &Server{
		engine:      eng,
		broadcaster: b,
		catalog:     catalog,
		sink:        sink,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLog)

	e.POST("/v1/swap/execute", s.handleExecute)
	e.POST("/v1/swap/submit", s.handleSubmit)
	e.GET("/v1/venues", s.handleVenues)
	e.GET("/v1/outcomes", s.handleOutcomes)
	e.GET("/debug/logs", s.handleLogs)

	s.echo = e
	return s
}

func (s *Server) Start(addr string) error {
	telemetry.Infof("[api] listening on %s", addr)
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.echo }

func requestLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		telemetry.Debugf("[api] %s %s -> %d",
			c.Request().Method, c.Request().URL.Path, c.Response().Status)
		return err
	}
}

type executeRequest struct {
	TokenIn         string `json:"token_in"`
	TokenInAddress  string `json:"token_in_address,omitempty"`
	TokenOut        string `json:"token_out"`
	TokenOutAddress string `json:"token_out_address,omitempty"`

	// Base-unit decimal strings.
	AmountIn    string `json:"amount_in"`
	ExpectedOut string `json:"expected_out"`

	SlippageBps    *int64 `json:"slippage_bps,omitempty"`
	Recipient      string `json:"recipient,omitempty"`
	PreferredVenue string `json:"preferred_venue,omitempty"`
}

type errorResponse struct {
	Error       string        `json:"error"`
	Class       swaperr.Class `json:"class"`
	Remediation string        `json:"remediation,omitempty"`
}

func (s *Server) handleExecute(c echo.Context) error {
	var req executeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error: "malformed request body", Class: swaperr.ClassPrecondition,
		})
	}

	amountIn, ok := new(big.Int).SetString(req.AmountIn, 10)
	if !ok {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error: "amount_in must be a base-unit decimal string", Class: swaperr.ClassPrecondition,
		})
	}
	expectedOut, ok := new(big.Int).SetString(req.ExpectedOut, 10)
	if !ok {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error: "expected_out must be a base-unit decimal string", Class: swaperr.ClassPrecondition,
		})
	}

	if req.TokenInAddress != "" && req.TokenOutAddress != "" &&
		helpers.SameAddress(req.TokenInAddress, req.TokenOutAddress) {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error: "token_in_address and token_out_address are the same asset", Class: swaperr.ClassPrecondition,
		})
	}

	var recipient common.Address
	if req.Recipient != "" {
		if !common.IsHexAddress(req.Recipient) {
			return c.JSON(http.StatusBadRequest, errorResponse{
				Error: "recipient is not a valid address", Class: swaperr.ClassPrecondition,
			})
		}
		recipient = common.HexToAddress(req.Recipient)
	}

	outcome, err := s.engine.Execute(c.Request().Context(), engine.Request{
		TokenIn:         req.TokenIn,
		TokenInAddress:  req.TokenInAddress,
		TokenOut:        req.TokenOut,
		TokenOutAddress: req.TokenOutAddress,
		AmountIn:        amountIn,
		ExpectedOut:     expectedOut,
		SlippageBps:     req.SlippageBps,
		Recipient:       recipient,
		PreferredVenue:  req.PreferredVenue,
	})
	if err != nil {
		class := swaperr.ClassOf(err)
		return c.JSON(statusFor(class), struct {
			errorResponse
			Outcome report.SwapOutcome `json:"outcome"`
		}{
			errorResponse{Error: err.Error(), Class: class, Remediation: swaperr.Remediation(class)},
			outcome,
		})
	}
	return c.JSON(http.StatusOK, outcome)
}

type submitRequest struct {
	// RawTx is the hex-encoded signed transaction, 0x-prefixed.
	RawTx string `json:"raw_tx"`
}

type submitResponse struct {
	TxHash            string `json:"tx_hash"`
	From              string `json:"from"`
	BlockNumber       uint64 `json:"block_number"`
	GasUsed           uint64 `json:"gas_used"`
	EffectiveGasPrice string `json:"effective_gas_price,omitempty"`
}

// handleSubmit is the externally-signed entry point: the payload is
// broadcast exactly as received.
func (s *Server) handleSubmit(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error: "malformed request body", Class: swaperr.ClassPrecondition,
		})
	}

	raw, err := hexutil.Decode(req.RawTx)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error: "raw_tx must be 0x-prefixed hex", Class: swaperr.ClassPrecondition,
		})
	}
	blob, err := signer.ParseRaw(raw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error: err.Error(), Class: swaperr.ClassPrecondition,
		})
	}

	receipt, err := s.broadcaster.Broadcast(c.Request().Context(), blob)
	if err != nil {
		class := swaperr.ClassOf(err)
		return c.JSON(statusFor(class), errorResponse{
			Error: err.Error(), Class: class, Remediation: swaperr.Remediation(class),
		})
	}

	resp := submitResponse{
		TxHash:  receipt.TxHash.Hex(),
		From:    blob.From().Hex(),
		GasUsed: receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		resp.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if receipt.EffectiveGasPrice != nil {
		resp.EffectiveGasPrice = receipt.EffectiveGasPrice.String()
	}
	return c.JSON(http.StatusOK, resp)
}

type venueView struct {
	ID         string `json:"id"`
	Router     string `json:"router"`
	Convention string `json:"convention"`
	FeeTier    int64  `json:"fee_tier,omitempty"`
	DefaultGas uint64 `json:"default_gas"`
}

func (s *Server) handleVenues(c echo.Context) error {
	all := s.catalog.All()
	out := make([]venueView, 0, len(all))
	for _, v := range all {
		out = append(out, venueView{
			ID:         v.ID,
			Router:     v.Router.Hex(),
			Convention: v.Convention.String(),
			FeeTier:    v.FeeTier,
			DefaultGas: v.DefaultGas,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleOutcomes(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, errorResponse{
				Error: "limit must be a positive integer", Class: swaperr.ClassPrecondition,
			})
		}
		limit = n
	}

	outcomes, err := s.sink.Recent(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusBadGateway, errorResponse{
			Error: err.Error(), Class: swaperr.ClassTransport,
		})
	}
	return c.JSON(http.StatusOK, outcomes)
}

func (s *Server) handleLogs(c echo.Context) error {
	n := 100
	if raw := c.QueryParam("n"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			n = parsed
		}
	}
	return c.JSON(http.StatusOK, telemetry.Tail(n))
}

// statusFor maps failure classes onto HTTP statuses: caller mistakes are
// 4xx, chain-side failures are 409, transport trouble is 502.
func statusFor(class swaperr.Class) int {
	switch class {
	case swaperr.ClassPrecondition:
		return http.StatusBadRequest
	case swaperr.ClassInsufficientBalance, swaperr.ClassNoLiquidity:
		return http.StatusUnprocessableEntity
	case swaperr.ClassTransport:
		return http.StatusBadGateway
	default:
		return http.StatusConflict
	}
}
