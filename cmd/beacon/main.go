package main

import (
	"flag"
	"fmt"
	"os"

	logger "github.com/sirupsen/logrus"

	"github.com/phoreproject/beaconcore/beacon/config"
	"github.com/phoreproject/beaconcore/beacon/module"
	"github.com/phoreproject/beaconcore/cfg"
	"github.com/phoreproject/beaconcore/utils"
)

func main() {
	beaconConfig := config.Options{}
	globalConfig := cfg.NewGlobalOptions()

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s -chaincfg chain.json [options]\n", os.Args[0])
		flag.PrintDefaults()
	}

	err := cfg.LoadFlags(&beaconConfig, &globalConfig)
	if err != nil {
		logger.Fatal(err)
	}

	err = globalConfig.ApplyLogging()
	if err != nil {
		logger.Fatal(err)
	}

	if beaconConfig.ChainCFG == "" {
		flag.Usage()
		os.Exit(2)
	}

	if _, err := utils.CheckNTP(utils.DefaultNTPServer); err != nil {
		logger.WithError(err).Warn("using the local clock without an NTP offset")
	}

	a, err := module.NewBeaconApp(beaconConfig)
	if err != nil {
		logger.Fatal(err)
	}

	err = a.Run()
	if err != nil {
		logger.Fatal(err)
	}
}
