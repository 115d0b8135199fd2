package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"

	"github.com/greyfield/swaprouter/internal/api"
	"github.com/greyfield/swaprouter/internal/approve"
	"github.com/greyfield/swaprouter/internal/builder"
	"github.com/greyfield/swaprouter/internal/config"
	"github.com/greyfield/swaprouter/internal/engine"
	"github.com/greyfield/swaprouter/internal/helpers"
	"github.com/greyfield/swaprouter/internal/probe"
	"github.com/greyfield/swaprouter/internal/report"
	"github.com/greyfield/swaprouter/internal/selector"
	"github.com/greyfield/swaprouter/internal/signer"
	"github.com/greyfield/swaprouter/internal/submit"
	"github.com/greyfield/swaprouter/internal/telemetry"
	"github.com/greyfield/swaprouter/internal/token"
	"github.com/greyfield/swaprouter/internal/venue"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	telemetry.Start(2048)
	defer telemetry.Stop()

	// Ctrl-C / SIGTERM handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}
	telemetry.EnableDebug(cfg.DEBUG)

	client, err := ethclient.DialContext(ctx, cfg.RPC_URL)
	if err != nil {
		log.Fatalf("rpc dial: %v", err)
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		log.Fatalf("chain id: %v", err)
	}

	key, wallet, err := helpers.ValidatePrivateKey(cfg.PRIVATE_KEY)
	if err != nil {
		log.Fatalf("private key: %v", err)
	}
	sig := signer.NewLocalSigner(key)

	network := venue.Network(cfg.NETWORK)
	catalog, err := venue.DefaultCatalog(network)
	if err != nil {
		log.Fatalf("venue catalog: %v", err)
	}

	var known []token.Descriptor
	if network == venue.Ethereum {
		known = token.MainnetTokens()
	}
	resolver := token.NewResolver(catalog.WrappedNative(), known)

	maxFeeCap, err := helpers.GweiToWei(cfg.MAX_GAS_PRICE_GWEI)
	if err != nil {
		log.Fatalf("MAX_GAS_PRICE_GWEI: %v", err)
	}
	defaultBps, err := helpers.SlippageToBps(cfg.SLIPPAGE_PERCENT)
	if err != nil {
		log.Fatalf("SLIPPAGE_PERCENT: %v", err)
	}

	var sink report.Sink
	if cfg.REDIS_ADDR != "" {
		rs := report.NewRedisSink(cfg.REDIS_ADDR, cfg.REDIS_PASSWORD)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rs.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		defer rs.Close()
		sink = rs
		telemetry.Infof("outcome sink: redis at %s", cfg.REDIS_ADDR)
	} else {
		sink = report.NewMemorySink(256)
		telemetry.Infof("outcome sink: in-memory ring")
	}

	deadline := time.Duration(cfg.DEADLINE_SECONDS) * time.Second
	broadcaster := submit.New(client)

	eng := engine.New(engine.Deps{
		Backend:            client,
		Resolver:           resolver,
		Selector:           selector.New(catalog, probe.New(client, cfg.PROBE_RATE_LIMIT)),
		Approver:           approve.NewManager(client, sig, chainID, cfg.GAS_TIP_BOOST, maxFeeCap),
		Builder:            builder.New(client, chainID, deadline, cfg.GAS_TIP_BOOST, maxFeeCap),
		Signer:             sig,
		Broadcaster:        broadcaster,
		Sink:               sink,
		DefaultSlippageBps: defaultBps,
	})

	srv := api.NewServer(eng, broadcaster, catalog, sink)

	go func() {
		<-ctx.Done()
		telemetry.Infof("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			telemetry.Errorf("api shutdown: %v", err)
		}
	}()

	telemetry.Infof("swapd up: network=%s chain=%s wallet=%s venues=%d",
		cfg.NETWORK, chainID, helpers.ShortAddress(wallet), len(catalog.All()))

	if err := srv.Start(cfg.LISTEN_ADDR); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("api server: %v", err)
	}
}
