package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"hybrix/pkg/amm"
	"hybrix/pkg/config"
	"hybrix/pkg/filedb"
	"hybrix/pkg/info"
	"hybrix/pkg/matcher"
	"hybrix/pkg/model"
	"hybrix/pkg/xetcd"
	"hybrix/pkg/xlog"
	"hybrix/pkg/xnats"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var logger = xlog.GetLogger()

var (
	fApp     string
	fSymbol  string
	fKind    string
	fPrice   string
	fOrders  int
	fLogDir  string
	fLogFile string
)

var apps = map[string]func(ctx context.Context) error{
	"matcher": startMatcher,
	"quote":   startQuote,
	"journal": startJournal,
	"bm":      PrepareForBenchmark,
}

func init() {
	flag.StringVar(&fApp, "app", "", "matcher, quote, journal or bm")
	flag.StringVar(&fSymbol, "symbol", "", "pair as BASE_QUOTE, defaults to every configured pair for matcher")
	flag.StringVar(&fKind, "kind", "to_buy", "quote kind: over, under, to_buy or to_sell")
	flag.StringVar(&fPrice, "price", "", "price to quote at")
	flag.IntVar(&fOrders, "orders", 10000, "orders per pair created by bm")
	flag.StringVar(&fLogDir, "logdir", "", "")
	flag.StringVar(&fLogFile, "logfile", "", "")
}

func main() {
	flag.Parse()

	start, ok := apps[fApp]
	if !ok {
		names := make([]string, 0, len(apps))
		for k := range apps {
			names = append(names, k)
		}
		sort.Strings(names)
		panic("invalid app, only (" + strings.Join(names, ", ") + ") available")
	}

	config.EasyInit()

	if fLogDir == "" {
		fLogDir = filepath.Join(config.Shared.DataDir, "logs")
	}
	if fLogFile == "" {
		fLogFile = fApp + ".log"
	}
	logPath := filepath.Join(fLogDir, fLogFile)
	xlog.Init(fApp, logPath)
	logger.Info(info.Banner(fApp))
	logger.Infof("xlog in %s", logPath)

	go handleSignals()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := start(ctx); err != nil {
		logger.Errorf("%s failed with err:%s", fApp, err)
		os.Exit(1)
	}
	logger.Infof("%s finished", fApp)
}

// handleSignals changes the log level on SIGUSR1
//
//	docker exec <container_id> sh -c 'export XLOG_LVL=DEBUG && kill -SIGUSR1 1'
func handleSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGUSR1)

	for range sigChan {
		if level := os.Getenv("XLOG_LVL"); level != "" {
			logger.SetLevel(level)
		}
	}
}

func pairs() ([]string, error) {
	if fSymbol != "" {
		return []string{strings.ToUpper(fSymbol)}, nil
	}
	if len(config.Shared.Matcher.Pairs) == 0 {
		return nil, errors.New("no pairs, set -symbol or matcher.pairs")
	}
	return config.Shared.Matcher.Pairs, nil
}

func requireSymbol() (string, error) {
	if fSymbol == "" {
		return "", errors.New("empty symbol")
	}
	return strings.ToUpper(fSymbol), nil
}

func journalPath(symbol string) string {
	return filepath.Join(config.Shared.DataDir, "journal", strings.ToLower(symbol)+".log")
}

func openStore() (*model.Store, error) {
	db, err := model.OpenMySQL(config.Shared.MySQL.Main, config.Shared.IsDebug)
	if err != nil {
		return nil, err
	}
	return model.NewStore(db), nil
}

// resolveNats returns the NATS url from etcd when it is enabled, otherwise from the config.
func resolveNats(ctx context.Context) (url string, err error) {
	cfg := config.Shared
	if !cfg.Etcd.Main.Enabled {
		return cfg.Nats.Url, nil
	}
	if xetcd.Shared == nil {
		err = xetcd.InitShared([]string{cfg.Etcd.Main.Url})
		if err != nil {
			return
		}
	}
	return xetcd.Shared.ResolveNatsURL(ctx, cfg.Nats.Url)
}

// startMatcher runs one isolated matcher.Worker per pair until a signal arrives.
func startMatcher(ctx context.Context) (err error) {
	cfg := config.Shared
	symbols, err := pairs()
	if err != nil {
		return
	}

	store, err := openStore()
	if err != nil {
		return
	}
	err = store.AutoMigrate(symbols...)
	if err != nil {
		return
	}

	var cache matcher.PriceCache
	if cfg.Redis.Main.Enabled {
		cache = model.NewPriceCache(model.OpenRedis(cfg.Redis.Main))
	}

	natsURL, err := resolveNats(ctx)
	if err != nil {
		return
	}
	var publisher matcher.Publisher
	if natsURL != "" {
		var p *xnats.Publisher
		p, err = xnats.Connect(natsURL, cfg.Nats.Stream)
		if err != nil {
			return
		}
		defer p.Close()
		publisher = p
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		if xetcd.Shared != nil {
			err = xetcd.Shared.RegisterMatcher(gctx, symbol, xetcd.Registration{
				InstanceID: info.InstanceID,
				Version:    info.Version,
				Since:      time.Now().Unix(),
			}, cfg.Etcd.Main.LeaseTTL)
			if err != nil {
				return
			}
		}

		var fdb *filedb.Filedb
		fdb, err = filedb.New(journalPath(symbol))
		if err != nil {
			return
		}
		defer fdb.Close()

		var w *matcher.Worker
		w, err = matcher.New(symbol, matcher.Options{
			TickPrecision: amm.TickPrecision(cfg.Matcher.TickPrecision),
			Interval:      cfg.Matcher.Interval,
			PassTimeout:   cfg.Matcher.PassTimeout,
			Store:         store,
			Journal:       fdb,
			Cache:         cache,
			Publisher:     publisher,
		})
		if err != nil {
			return
		}
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	return g.Wait()
}

// startQuote prints what every active pool of a pair would trade at -price.
func startQuote(ctx context.Context) (err error) {
	symbol, err := requireSymbol()
	if err != nil {
		return
	}
	kind, err := amm.ParseQuoteKind(fKind)
	if err != nil {
		return
	}
	price, err := decimal.NewFromString(fPrice)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", fPrice, err)
	}

	store, err := openStore()
	if err != nil {
		return
	}
	snap, err := store.LoadSnapshot(ctx, symbol)
	if err != nil {
		return
	}

	for _, pool := range snap.Pools {
		c, err := pool.Curve()
		if err != nil {
			return err
		}
		fmt.Printf("pool %d (price %s): %s %s at %s = %s\n",
			pool.ID, c.Price(), kind, symbol, price, amm.Quote(c, kind, price))
	}
	return
}

// startJournal follows the journal of a pair and republishes committed
// passes, waiting for the ones whose commit is still in flight. JetStream
// drops the ones already published by their message id.
func startJournal(ctx context.Context) (err error) {
	symbol, err := requireSymbol()
	if err != nil {
		return
	}
	store, err := openStore()
	if err != nil {
		return
	}
	natsURL, err := resolveNats(ctx)
	if err != nil {
		return
	}
	publisher, err := xnats.Connect(natsURL, config.Shared.Nats.Stream)
	if err != nil {
		return
	}
	defer publisher.Close()

	fdb, err := filedb.New(journalPath(symbol))
	if err != nil {
		return
	}
	defer fdb.Close()

	r := matcher.NewRepublisher(store, publisher, config.Shared.Matcher.PassTimeout)
	ch := make(chan string, 1024)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(ch)
		return fdb.Tailf(gctx, ch)
	})
	g.Go(func() error {
		return filedb.Drain(ch, 100, func(lines []string) error {
			n, err := r.Republish(gctx, lines)
			logger.Debugf("journal republished %d of %d passes", n, len(lines))
			return err
		})
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return
}
