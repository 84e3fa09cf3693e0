package config

import (
	"github.com/RedPaladin7/wupattack/encode"
	"github.com/RedPaladin7/wupattack/rsa"
	"github.com/spf13/viper"
)

const (
	DefaultKeyBits    = 1024
	DefaultMethod     = "naive"
	DefaultListenAddr = "localhost:8080"
	DefaultLogLevel   = "info"

	// EnvPrefix namespaces environment overrides, e.g. WUP_KEY_BITS.
	EnvPrefix = "WUP"
)

// Defaults returns the configuration used when neither a file, the
// environment nor a flag sets a value.
func Defaults() Config {
	return Config{
		KeyBits:      DefaultKeyBits,
		EncodeMethod: DefaultMethod,
		OAEP: OAEPConfig{
			K0:          encode.DefaultK0,
			K1:          encode.DefaultK1,
			MessageBits: encode.DefaultMessageBits,
		},
		Prime: PrimeConfig{
			Rounds: rsa.DefaultRounds,
		},
		Server: ServerConfig{
			ListenAddr: DefaultListenAddr,
		},
		LogLevel: DefaultLogLevel,
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("key_bits", d.KeyBits)
	v.SetDefault("encode_method", d.EncodeMethod)

	v.SetDefault("oaep.k0", d.OAEP.K0)
	v.SetDefault("oaep.k1", d.OAEP.K1)
	v.SetDefault("oaep.message_bits", d.OAEP.MessageBits)

	v.SetDefault("prime.rounds", d.Prime.Rounds)

	v.SetDefault("server.listen_addr", d.Server.ListenAddr)

	v.SetDefault("log_level", d.LogLevel)
}
