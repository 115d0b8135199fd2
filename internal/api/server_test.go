package api

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greyfield/swaprouter/internal/engine"
	"github.com/greyfield/swaprouter/internal/report"
	"github.com/greyfield/swaprouter/internal/signer"
	"github.com/greyfield/swaprouter/internal/swaperr"
	"github.com/greyfield/swaprouter/internal/venue"
)

type stubExecutor struct {
	calls   int
	lastReq engine.Request
	outcome report.SwapOutcome
	err     error
}

func (s *stubExecutor) Execute(_ context.Context, req engine.Request) (report.SwapOutcome, error) {
	s.calls++
	s.lastReq = req
	return s.outcome, s.err
}

type stubBroadcaster struct {
	lastBlob signer.SignedBlob
	receipt  *types.Receipt
	err      error
}

func (s *stubBroadcaster) Broadcast(_ context.Context, blob signer.SignedBlob) (*types.Receipt, error) {
	s.lastBlob = blob
	return s.receipt, s.err
}

func newTestServer(t *testing.T, exec *stubExecutor, b *stubBroadcaster) (*Server, *report.MemorySink) {
	t.Helper()
	catalog, err := venue.DefaultCatalog(venue.Ethereum)
	require.NoError(t, err)
	sink := report.NewMemorySink(16)
	return NewServer(exec, b, catalog, sink), sink
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echoContentType, "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func TestExecuteEndpointSuccess(t *testing.T) {
	exec := &stubExecutor{outcome: report.SwapOutcome{
		Success:   true,
		TxHash:    "0xabc",
		VenueUsed: "uniswap-v2",
	}}
	srv, _ := newTestServer(t, exec, &stubBroadcaster{})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/swap/execute", `{
		"token_in": "ETH",
		"token_out": "USDC",
		"amount_in": "1000000000000000000",
		"expected_out": "3000000000",
		"slippage_bps": 30,
		"preferred_venue": "uniswap-v3"
	}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, 1, exec.calls)
	assert.Equal(t, "ETH", exec.lastReq.TokenIn)
	assert.Equal(t, "1000000000000000000", exec.lastReq.AmountIn.String())
	require.NotNil(t, exec.lastReq.SlippageBps)
	assert.Equal(t, int64(30), *exec.lastReq.SlippageBps)
	assert.Equal(t, "uniswap-v3", exec.lastReq.PreferredVenue)

	var out report.SwapOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, "uniswap-v2", out.VenueUsed)
}

func TestExecuteEndpointRejectsBadAmount(t *testing.T) {
	exec := &stubExecutor{}
	srv, _ := newTestServer(t, exec, &stubBroadcaster{})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/swap/execute", `{
		"token_in": "ETH",
		"token_out": "USDC",
		"amount_in": "1.5",
		"expected_out": "3000000000"
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, exec.calls)
}

func TestExecuteEndpointRejectsDuplicateExplicitAddresses(t *testing.T) {
	exec := &stubExecutor{}
	srv, _ := newTestServer(t, exec, &stubBroadcaster{})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/swap/execute", `{
		"token_in": "AAA",
		"token_in_address": "0x6B175474E89094C44Da98b954EedeAC495271d0F",
		"token_out": "BBB",
		"token_out_address": "0x6b175474e89094c44da98b954eedeac495271d0f",
		"amount_in": "1000",
		"expected_out": "1000"
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, exec.calls)
}

func TestExecuteEndpointFailureCarriesClass(t *testing.T) {
	exec := &stubExecutor{
		outcome: report.SwapOutcome{Success: false, FailureClass: swaperr.ClassNoLiquidity},
		err:     swaperr.New(swaperr.ClassNoLiquidity, "all venues infeasible"),
	}
	srv, _ := newTestServer(t, exec, &stubBroadcaster{})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/swap/execute", `{
		"token_in": "ETH",
		"token_out": "USDC",
		"amount_in": "1000000000000000000",
		"expected_out": "3000000000"
	}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Class       swaperr.Class      `json:"class"`
		Remediation string             `json:"remediation"`
		Outcome     report.SwapOutcome `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, swaperr.ClassNoLiquidity, body.Class)
	assert.NotEmpty(t, body.Remediation)
	assert.False(t, body.Outcome.Success)
}

func TestSubmitEndpointBroadcastsExactPayload(t *testing.T) {
	key, err := crypto.HexToECDSA("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)
	blob, err := signer.NewLocalSigner(key).Sign(&signer.UnsignedTx{
		To:        common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"),
		Value:     big.NewInt(0),
		Data:      []byte{0x38, 0xed, 0x17, 0x39, 0x01},
		Nonce:     4,
		GasLimit:  300_000,
		GasFeeCap: big.NewInt(30_000_000_000),
		GasTipCap: big.NewInt(2_000_000_000),
		ChainID:   big.NewInt(1),
	})
	require.NoError(t, err)

	b := &stubBroadcaster{receipt: &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      blob.Hash(),
		BlockNumber: big.NewInt(19_000_000),
		GasUsed:     182_411,
	}}
	srv, _ := newTestServer(t, &stubExecutor{}, b)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/swap/submit",
		`{"raw_tx": "`+hexutil.Encode(blob.Raw())+`"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, blob.Hash(), b.lastBlob.Hash())
	assert.Equal(t, blob.From(), b.lastBlob.From())

	var resp submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, blob.Hash().Hex(), resp.TxHash)
	assert.Equal(t, blob.From().Hex(), resp.From)
	assert.Equal(t, uint64(182_411), resp.GasUsed)
}

func TestSubmitEndpointRejectsBadHex(t *testing.T) {
	srv, _ := newTestServer(t, &stubExecutor{}, &stubBroadcaster{})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/swap/submit",
		`{"raw_tx": "not-hex"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/v1/swap/submit",
		`{"raw_tx": "0x00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVenuesEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &stubExecutor{}, &stubBroadcaster{})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/v1/venues", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var venues []venueView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &venues))
	require.NotEmpty(t, venues)
	assert.Equal(t, "uniswap-v3", venues[0].ID)
	assert.Equal(t, "concentratedSingleHop", venues[0].Convention)
}

func TestOutcomesEndpoint(t *testing.T) {
	srv, sink := newTestServer(t, &stubExecutor{}, &stubBroadcaster{})
	require.NoError(t, sink.Record(context.Background(), report.SwapOutcome{
		Success: true, TxHash: "0x01", VenueUsed: "sushiswap",
	}))

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/v1/outcomes?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var outcomes []report.SwapOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcomes))
	require.Len(t, outcomes, 1)
	assert.Equal(t, "sushiswap", outcomes[0].VenueUsed)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/v1/outcomes?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
