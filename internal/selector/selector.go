// Package selector walks the venue catalog and returns the first venue
// whose probe reports feasibility. A caller-preferred venue jumps the
// queue; otherwise catalog priority order decides. Probing is sequential
// to bound RPC load.
package selector

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/greyfield/swaprouter/internal/probe"
	"github.com/greyfield/swaprouter/internal/swaperr"
	"github.com/greyfield/swaprouter/internal/telemetry"
	"github.com/greyfield/swaprouter/internal/token"
	"github.com/greyfield/swaprouter/internal/venue"
)

// Prober abstracts the liquidity prober for tests.
type Prober interface {
	Probe(ctx context.Context, v venue.Profile, owner common.Address,
		tokenIn, tokenOut token.Descriptor, amountIn, expectedOut *big.Int) (probe.Result, error)
}

// Seed is the selected venue plus the gas budget its probe produced. The
// builder turns it into a full plan.
type Seed struct {
	Venue    venue.Profile
	GasLimit uint64
}

type Selector struct {
	catalog *venue.Catalog
	prober  Prober
}

func New(catalog *venue.Catalog, prober Prober) *Selector {
	return &Selector{catalog: catalog, prober: prober}
}

// Select probes venues until one is feasible. preferredID, when it names a
// catalog entry, is probed first and skipped during the catalog pass.
// Exhausting the catalog is terminal: the caller must change amount or
// pair, retrying verbatim cannot succeed.
func (s *Selector) Select(ctx context.Context, owner common.Address,
	tokenIn, tokenOut token.Descriptor, amountIn, expectedOut *big.Int,
	preferredID string) (Seed, error) {

	tried := ""
	if preferredID != "" {
		if v, ok := s.catalog.ByID(preferredID); ok {
			seed, feasible, err := s.tryVenue(ctx, v, owner, tokenIn, tokenOut, amountIn, expectedOut)
			if err != nil {
				return Seed{}, err
			}
			if feasible {
				return seed, nil
			}
			tried = v.ID
		} else {
			telemetry.Debugf("[selector] ignoring unknown preferred venue %q", preferredID)
		}
	}

	for _, v := range s.catalog.All() {
		if v.ID == tried {
			continue
		}
		seed, feasible, err := s.tryVenue(ctx, v, owner, tokenIn, tokenOut, amountIn, expectedOut)
		if err != nil {
			return Seed{}, err
		}
		if feasible {
			return seed, nil
		}
	}

	return Seed{}, swaperr.New(swaperr.ClassNoLiquidity,
		"no venue can fill %s -> %s", tokenIn.Symbol, tokenOut.Symbol)
}

func (s *Selector) tryVenue(ctx context.Context, v venue.Profile, owner common.Address,
	tokenIn, tokenOut token.Descriptor, amountIn, expectedOut *big.Int) (Seed, bool, error) {

	res, err := s.prober.Probe(ctx, v, owner, tokenIn, tokenOut, amountIn, expectedOut)
	if err != nil {
		return Seed{}, false, err
	}
	if res.FailureClass == probe.FailureSelfSwap {
		return Seed{}, false, swaperr.New(swaperr.ClassPrecondition,
			"input and output token are the same")
	}
	if !res.Feasible {
		telemetry.Debugf("[selector] venue=%s infeasible (%s)", v.ID, res.FailureClass)
		return Seed{}, false, nil
	}

	telemetry.Infof("[selector] venue=%s feasible, gas=%d", v.ID, res.GasEstimate)
	return Seed{Venue: v, GasLimit: res.GasEstimate}, true, nil
}
