package module

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"

	"github.com/phoreproject/beaconcore/beacon"
	"github.com/phoreproject/beaconcore/beacon/chainfile"
	"github.com/phoreproject/beaconcore/beacon/config"
	"github.com/phoreproject/beaconcore/beacon/db"
	"github.com/phoreproject/beaconcore/beacon/rpc"
	"github.com/phoreproject/beaconcore/utils"
)

// BeaconApp contains the state of a beacon node: the database, the chain
// processing blocks and the metrics endpoint.
type BeaconApp struct {
	options config.Options

	config      *config.Config
	chainConfig *chainfile.ChainConfig
	genesis     beacon.Genesis

	// exitChan receives a struct when an exit is requested.
	exitChan chan struct{}
	exitOnce sync.Once

	database      *db.BadgerDB
	chain         *beacon.BeaconChain
	metricsServer *http.Server
	rpcServer     *rpc.Server
}

// NewBeaconApp creates a new instance of BeaconApp
func NewBeaconApp(options config.Options) (*BeaconApp, error) {
	f, err := os.Open(options.ChainCFG)
	if err != nil {
		return nil, errors.Wrap(err, "could not open chain file")
	}

	chainConfig, err := chainfile.ReadChainFile(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "could not read chain file")
	}

	err = f.Close()
	if err != nil {
		return nil, err
	}

	app := &BeaconApp{
		options:     options,
		chainConfig: chainConfig,
		exitChan:    make(chan struct{}, 1),
	}

	err = app.loadConfig()
	if err != nil {
		return nil, err
	}
	err = app.loadDatabase()
	if err != nil {
		return nil, err
	}
	err = app.loadBlockchain()
	if err != nil {
		_ = app.database.Close()
		return nil, err
	}

	return app, nil
}

func (app *BeaconApp) networkID() string {
	if app.options.NetworkID != "" {
		return app.options.NetworkID
	}
	if app.chainConfig.NetworkID != "" {
		return app.chainConfig.NetworkID
	}
	return "mainnet"
}

func (app *BeaconApp) loadConfig() error {
	c, err := config.LoadConfig(app.networkID(), app.options.ConsensusCFG)
	if err != nil {
		return err
	}
	app.config = c

	genesis, err := app.chainConfig.Genesis()
	if err != nil {
		return err
	}
	app.genesis = genesis
	return nil
}

func (app *BeaconApp) loadDatabase() error {
	var dir string
	if app.options.DataDir == "" {
		dataDir, err := config.GetBaseDirectory(app.networkID())
		if err != nil {
			return err
		}
		dir = dataDir
	} else {
		d, err := homedir.Expand(app.options.DataDir)
		if err != nil {
			return err
		}
		dir = d
	}

	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return err
	}

	logger.WithField("dir", dir).Info("initializing database")
	database, err := db.NewBadgerDB(filepath.Join(dir, "db"), filepath.Join(dir, "db"))
	if err != nil {
		return err
	}

	if app.options.Resync {
		logger.Info("dropping all keys in database to resync")

		err = database.Flush()
		if err != nil {
			_ = database.Close()
			return err
		}
	}

	app.database = database

	return nil
}

func (app *BeaconApp) loadBlockchain() error {
	registry, err := app.chainConfig.Registry()
	if err != nil {
		return err
	}

	chain, err := beacon.NewBeaconChain(beacon.ChainConfig{
		Config:            app.config,
		Database:          app.database,
		Transition:        beacon.NewBlockTransition(app.config),
		InitialTransition: beacon.NewGenesisTransition(registry, app.config, app.genesis),
		Score:             beacon.FinalityScore,
	})
	if err != nil {
		return err
	}

	err = chain.Init()
	if err != nil {
		return err
	}

	app.chain = chain
	return nil
}

// GetBlockchain gets the beacon chain.
func (app *BeaconApp) GetBlockchain() *beacon.BeaconChain {
	return app.chain
}

// CurrentSlot gets the slot the network is at according to the clock.
func (app *BeaconApp) CurrentSlot() uint64 {
	return app.config.SlotAt(utils.Now(), app.genesis.Time)
}

// ImportBlocks inserts the blocks of a block file in order and returns the
// number of blocks stored.
func (app *BeaconApp) ImportBlocks(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	blocks, err := chainfile.ReadBlocks(f)
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, b := range blocks {
		res, err := app.chain.Insert(b)
		if err != nil {
			return imported, errors.Wrapf(err, "could not import %s", b)
		}
		if !res.IsAccepted() {
			logger.WithFields(logger.Fields{
				"block":  b.String(),
				"result": res,
			}).Warn("skipping block from file")
			continue
		}
		imported++
	}

	logger.WithFields(logger.Fields{
		"file":     path,
		"imported": imported,
		"total":    len(blocks),
	}).Info("imported blocks")

	return imported, nil
}

// ExportBlocks writes the canonical chain to a block file.
func (app *BeaconApp) ExportBlocks(path string) error {
	head := app.chain.GetCanonicalHead()
	blocks, err := app.chain.Blocks().GetChainFrom(head.Hash())
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := chainfile.WriteBlocks(f, blocks); err != nil {
		_ = f.Close()
		return err
	}

	logger.WithFields(logger.Fields{
		"file":   path,
		"blocks": len(blocks),
	}).Info("exported canonical chain")

	return f.Close()
}

func (app *BeaconApp) startMetrics() {
	if app.options.MetricsListen == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	app.metricsServer = &http.Server{
		Addr:              app.options.MetricsListen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.WithField("addr", app.options.MetricsListen).Info("serving metrics")
		err := app.metricsServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("error serving metrics: %s", err)
		}
	}()
}

func (app *BeaconApp) startRPC() {
	if app.options.RPCListen == "" {
		return
	}

	app.rpcServer = rpc.NewServer(app.chain)
	go func() {
		err := app.rpcServer.Start(app.options.RPCListen)
		if err != nil {
			logger.Errorf("error serving rpc: %s", err)
		}
	}()
}

func (app *BeaconApp) logEvents(events chan interface{}) {
	for e := range events {
		processed, ok := e.(beacon.BlockProcessed)
		if !ok || !processed.Best {
			continue
		}
		logger.WithFields(logger.Fields{
			"head":        processed.Block.String(),
			"currentSlot": app.CurrentSlot(),
			"justified":   processed.State.LastJustifiedSlot,
			"finalized":   processed.State.LastFinalizedSlot,
		}).Info("new canonical head")
	}
}

// Run imports and exports the configured block files, then serves metrics
// and rpc until an exit is requested.
func (app *BeaconApp) Run() error {
	events := app.chain.Subscribe()
	go app.logEvents(events)
	defer app.chain.Unsubscribe(events)

	if app.options.Import != "" {
		if _, err := app.ImportBlocks(app.options.Import); err != nil {
			return err
		}
	}

	if app.options.Export != "" {
		if err := app.ExportBlocks(app.options.Export); err != nil {
			return err
		}
	}

	app.startMetrics()
	app.startRPC()

	signalHandler := make(chan os.Signal, 1)
	signal.Notify(signalHandler, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalHandler)

	select {
	case <-signalHandler:
	case <-app.exitChan:
	}

	logger.Info("exiting")
	return app.Close()
}

// Exit sends a request to exit the application.
func (app *BeaconApp) Exit() {
	app.exitOnce.Do(func() {
		app.exitChan <- struct{}{}
	})
}

// Close stops the servers and closes the database.
func (app *BeaconApp) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if app.metricsServer != nil {
		if err := app.metricsServer.Shutdown(ctx); err != nil {
			logger.WithError(err).Warn("could not stop metrics server")
		}
	}
	if app.rpcServer != nil {
		if err := app.rpcServer.Shutdown(ctx); err != nil {
			logger.WithError(err).Warn("could not stop rpc server")
		}
	}
	return app.database.Close()
}
