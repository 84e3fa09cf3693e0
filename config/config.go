// Package config loads settings from defaults, an optional YAML file, WUP_*
// environment variables and command line flags, in increasing precedence.
package config

import (
	"errors"
	"io"
	"strings"

	"github.com/RedPaladin7/wupattack/encode"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	KeyBits      int          `mapstructure:"key_bits"`
	EncodeMethod string       `mapstructure:"encode_method"`
	OAEP         OAEPConfig   `mapstructure:"oaep"`
	Prime        PrimeConfig  `mapstructure:"prime"`
	Server       ServerConfig `mapstructure:"server"`
	LogLevel     string       `mapstructure:"log_level"`
}

type OAEPConfig struct {
	K0          int `mapstructure:"k0"`
	K1          int `mapstructure:"k1"`
	MessageBits int `mapstructure:"message_bits"`
}

type PrimeConfig struct {
	Rounds int `mapstructure:"rounds"`
}

type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// flagKeys maps command line flag names onto config keys.
var flagKeys = map[string]string{
	"key-bits":  "key_bits",
	"method":    "encode_method",
	"rounds":    "prime.rounds",
	"listen":    "server.listen_addr",
	"log-level": "log_level",
}

// Load builds a Config. cfgFile may be empty; flags may be nil. Only flags
// the user actually set override lower layers.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, oops.Wrapf(err, "reading config file %s", cfgFile)
		}
		logrus.WithField("file", v.ConfigFileUsed()).Debug("using config file")
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, oops.Wrapf(err, "binding flag %s", name)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, oops.Wrapf(err, "decoding configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := encode.ParseMethod(c.EncodeMethod); err != nil {
		return oops.Wrapf(ErrInvalidConfig, "encode_method: %s", err)
	}
	if c.KeyBits <= 0 {
		return oops.Wrapf(ErrInvalidConfig, "key_bits must be positive, got %d", c.KeyBits)
	}
	if c.Prime.Rounds <= 0 {
		return oops.Wrapf(ErrInvalidConfig, "prime.rounds must be positive, got %d", c.Prime.Rounds)
	}
	if c.OAEP.K0 <= 0 || c.OAEP.K1 <= 0 || c.OAEP.MessageBits <= 0 {
		return oops.Wrapf(ErrInvalidConfig, "oaep parameters must be positive")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return oops.Wrapf(ErrInvalidConfig, "log_level: %s", err)
	}
	return nil
}

func (c *Config) Method() encode.Method {
	// Validate already rejected unknown names
	m, _ := encode.ParseMethod(c.EncodeMethod)
	return m
}

// Encoder builds the configured encoder. random feeds the OAEP randomizer.
func (c *Config) Encoder(random io.Reader) encode.Encoder {
	if c.Method() == encode.MethodOAEP {
		return &encode.OAEP{
			K0:          c.OAEP.K0,
			K1:          c.OAEP.K1,
			MessageBits: c.OAEP.MessageBits,
			Random:      random,
		}
	}
	return encode.NewNaive()
}
