package main

import (
	"flag"
	"os"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/phoreproject/beaconcore/beacon/chainfile"
	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/phoreproject/beaconcore/utils"
	"github.com/phoreproject/beaconcore/validator"
)

func main() {
	rootkey := flag.String("rootkey", "", "this key derives all other keys")
	validators := flag.String("validators", "0-15", "validator indices and ranges to register")
	networkID := flag.String("networkid", "regtest", "network of the chain")
	randaoRounds := flag.Int("randaorounds", validator.DefaultRandaoRounds, "length of each validator's randao hash chain")
	outfile := flag.String("outfile", "chain.json", "chain file to write")
	flag.Parse()

	if *rootkey == "" {
		logger.Fatal("expected -rootkey")
	}

	validatorIndices, err := validator.ParseRanges(strings.Split(*validators, ","))
	if err != nil {
		logger.Fatal(err)
	}

	keystore := validator.NewRootKeyStore(*rootkey, *randaoRounds)

	genesisRandao := chainhash.HashH([]byte(*rootkey + "/genesis"))
	chainConfig := &chainfile.ChainConfig{
		GenesisTime:  uint64(utils.Now().Unix()),
		NetworkID:    *networkID,
		RandaoReveal: genesisRandao.String(),
	}

	for _, v := range validatorIndices {
		registered := validator.RegisteredValidator(keystore, v, 0)
		chainConfig.Validators = append(chainConfig.Validators, chainfile.ValidatorInformation{
			PubKey:           registered.PubKeyHex(),
			WithdrawalShard:  registered.WithdrawalShard,
			RandaoCommitment: registered.RandaoCommitment.String(),
		})
	}

	f, err := os.Create(*outfile)
	if err != nil {
		logger.Fatal(err)
	}

	err = chainfile.WriteChainFile(f, chainConfig)
	if err != nil {
		logger.Fatal(err)
	}

	err = f.Close()
	if err != nil {
		logger.Fatal(err)
	}

	logger.WithFields(logger.Fields{
		"validators": len(validatorIndices),
		"file":       *outfile,
	}).Info("wrote chain file")
}
