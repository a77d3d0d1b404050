package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Options are the options passed to the beacon module.
type Options struct {
	DataDir       string `yaml:"data_dir" cli:"datadir"`
	ChainCFG      string `yaml:"chain_config" cli:"chaincfg"`
	ConsensusCFG  string `yaml:"consensus_config" cli:"consensuscfg"`
	NetworkID     string `yaml:"network_id" cli:"networkid"`
	Resync        bool   `yaml:"resync" cli:"resync"`
	Import        string `yaml:"import" cli:"import"`
	Export        string `yaml:"export" cli:"export"`
	MetricsListen string `yaml:"metrics_listen_addr" cli:"metrics"`
	RPCListen     string `yaml:"rpc_listen_addr" cli:"rpclisten"`
}

// LoadConfig gets the config of a network with the overrides from a YAML
// file applied. The preset is used as is if path is empty.
func LoadConfig(networkID string, path string) (*Config, error) {
	preset, found := NetworkIDs[networkID]
	if !found {
		return nil, fmt.Errorf("unknown network %s", networkID)
	}

	if path == "" {
		return &preset, nil
	}

	configBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.UnmarshalStrict(configBytes, &preset); err != nil {
		return nil, err
	}
	return &preset, nil
}
