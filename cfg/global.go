package cfg

import (
	"github.com/sirupsen/logrus"
)

// GlobalOptions are options to be applied globally and set at the root of the config.
type GlobalOptions struct {
	LogLevel    string `yaml:"log_level" cli:"level"`
	ForceColors bool   `yaml:"force_colors" cli:"colors"`
	ConfigFile  string `cli:"config"`
}

// NewGlobalOptions returns the default global options.
func NewGlobalOptions() GlobalOptions {
	return GlobalOptions{LogLevel: "info"}
}

// ApplyLogging configures the standard logger.
func (g *GlobalOptions) ApplyLogging() error {
	lvl, err := logrus.ParseLevel(g.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)

	logrus.StandardLogger().SetFormatter(&logrus.TextFormatter{
		ForceColors: g.ForceColors,
	})
	return nil
}
