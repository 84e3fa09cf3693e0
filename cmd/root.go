// Package cmd is the wupattack command line.
package cmd

import (
	crand "crypto/rand"
	"io"
	mrand "math/rand"
	"os"

	"github.com/RedPaladin7/wupattack/config"
	"github.com/RedPaladin7/wupattack/rsa"
	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const defaultVersion = "1.0.0"

var (
	cfgFile string
	seed    int64
	dump    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "wupattack",
	Short:   "Textbook RSA key transport and the truncation oracle attack against it",
	Version: defaultVersion,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(cfgFile, cmd.Flags()); err != nil {
			return err
		}
		setupLogging(cfg.LogLevel)
		if dump {
			spew.Fdump(os.Stderr, cfg)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "YAML config file")
	flags.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.Int64Var(&seed, "seed", 0, "Seed a deterministic random source (0 uses crypto/rand)")
	flags.BoolVar(&dump, "dump", false, "Dump the effective configuration and results")

	rootCmd.AddCommand(keygenCmd, serveCmd, sendCmd, attackCmd, demoCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func setupLogging(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", level)
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// randomSource is crypto/rand unless --seed asks for reproducible output.
func randomSource() io.Reader {
	if seed != 0 {
		logrus.WithField("seed", seed).Warn("using a deterministic random source")
		return mrand.New(mrand.NewSource(seed))
	}
	return crand.Reader
}

func keyFlags(cmd *cobra.Command) {
	cmd.Flags().Int("key-bits", config.DefaultKeyBits, "RSA modulus size in bits")
	cmd.Flags().String("method", config.DefaultMethod, "Session key encoding (naive, oaep)")
	cmd.Flags().Int("rounds", rsa.DefaultRounds, "Miller-Rabin rounds per prime")
}
