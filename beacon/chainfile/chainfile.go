package chainfile

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/phoreproject/beaconcore/beacon"
	"github.com/phoreproject/beaconcore/beacon/config"
	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/phoreproject/beaconcore/primitives"
)

// ValidatorInformation is the JSON encoded information of a validator
// registered on the main chain.
type ValidatorInformation struct {
	PubKey            string
	WithdrawalShard   uint64
	WithdrawalAddress string
	RandaoCommitment  string
}

// ChainConfig is the JSON encoded information about the network.
type ChainConfig struct {
	GenesisTime  uint64
	NetworkID    string
	RandaoReveal string
	MainChainRef string
	// Public keys of the validators the chain starts with. Every registered
	// validator is used if empty.
	InitialValidators []string
	Validators        []ValidatorInformation
}

// ReadChainFile reads a network config from the reader.
func ReadChainFile(r io.Reader) (*ChainConfig, error) {
	var chainConfig ChainConfig

	d := json.NewDecoder(r)
	err := d.Decode(&chainConfig)
	if err != nil {
		return nil, err
	}

	return &chainConfig, nil
}

// WriteChainFile writes a network config to the writer.
func WriteChainFile(w io.Writer, chainConfig *ChainConfig) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(chainConfig)
}

func decodeHash(s string) (chainhash.Hash, error) {
	if s == "" {
		return chainhash.Hash{}, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return chainhash.Hash{}, err
	}
	return chainhash.BytesToHash(b)
}

// NetworkConfig gets the consensus config of the network.
func (chainConfig *ChainConfig) NetworkConfig() (*config.Config, error) {
	networkID := chainConfig.NetworkID
	if networkID == "" {
		networkID = "mainnet"
	}
	c, found := config.NetworkIDs[networkID]
	if !found {
		return nil, fmt.Errorf("unknown network %s", networkID)
	}
	return &c, nil
}

// Genesis gets the genesis parameters of the chain.
func (chainConfig *ChainConfig) Genesis() (beacon.Genesis, error) {
	randaoReveal, err := decodeHash(chainConfig.RandaoReveal)
	if err != nil {
		return beacon.Genesis{}, errors.Wrap(err, "invalid randao reveal")
	}
	mainChainRef, err := decodeHash(chainConfig.MainChainRef)
	if err != nil {
		return beacon.Genesis{}, errors.Wrap(err, "invalid main chain reference")
	}

	return beacon.Genesis{
		Time:              time.Unix(int64(chainConfig.GenesisTime), 0),
		RandaoReveal:      randaoReveal,
		MainChainRef:      mainChainRef,
		InitialValidators: chainConfig.InitialValidators,
	}, nil
}

// Registry gets the validators listed in the chain file.
func (chainConfig *ChainConfig) Registry() (beacon.StaticRegistry, error) {
	registry := make(beacon.StaticRegistry, len(chainConfig.Validators))
	for i, validator := range chainConfig.Validators {
		pubKey, err := hex.DecodeString(validator.PubKey)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid public key of validator %d", i)
		}

		withdrawalAddress, err := hex.DecodeString(validator.WithdrawalAddress)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid withdrawal address of validator %d", i)
		}

		randaoCommitment, err := decodeHash(validator.RandaoCommitment)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid randao commitment of validator %d", i)
		}

		registry[i] = primitives.Validator{
			PubKey:            pubKey,
			WithdrawalShard:   validator.WithdrawalShard,
			WithdrawalAddress: withdrawalAddress,
			RandaoCommitment:  randaoCommitment,
		}
	}
	return registry, nil
}

// WriteBlocks writes blocks to w as a stream of encoded blocks.
func WriteBlocks(w io.Writer, blocks []*primitives.Block) error {
	for _, b := range blocks {
		enc, err := b.Encode()
		if err != nil {
			return err
		}
		if _, err := w.Write(enc); err != nil {
			return err
		}
	}
	return nil
}

// ReadBlocks reads a stream of encoded blocks until the end of r.
func ReadBlocks(r io.Reader) ([]*primitives.Block, error) {
	s := rlp.NewStream(r, 0)

	var blocks []*primitives.Block
	for {
		raw, err := s.Raw()
		if err == io.EOF {
			return blocks, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "could not read block %d", len(blocks))
		}

		block, err := primitives.DecodeBlock(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "could not decode block %d", len(blocks))
		}
		blocks = append(blocks, block)
	}
}
