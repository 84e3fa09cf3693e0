package cmd

import (
	"context"
	"math/big"
	"os"

	"github.com/RedPaladin7/wupattack/attack"
	"github.com/RedPaladin7/wupattack/p2p"
	"github.com/davecgh/go-spew/spew"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	demoContent string
	demoKey     string
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a party, the server and the attack in one process",
	RunE: func(cmd *cobra.Command, args []string) error {
		random := randomSource()
		party, err := p2p.NewParty(p2p.PartyConfig{
			KeyBits: cfg.KeyBits,
			Rounds:  cfg.Prime.Rounds,
			Encoder: cfg.Encoder(random),
			Random:  random,
		})
		if err != nil {
			return err
		}
		server := p2p.NewServer(p2p.ServerConfig{Version: defaultVersion})
		server.Register(party)

		key, ok := new(big.Int).SetString(demoKey, 16)
		if !ok {
			return oops.Errorf("session key %q is not hex", demoKey)
		}
		captured, err := party.SendRequestWithKey(demoContent, key)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"party":   party.ID,
			"method":  party.Method(),
			"records": len(captured),
		}).Info("victim request captured")

		res, err := attack.Run(context.Background(), party.PublicKey(), captured, server)
		if res != nil && dump {
			spew.Fdump(os.Stderr, res)
		}
		if err != nil {
			return err
		}
		report(res)
		return nil
	},
}

func init() {
	keyFlags(demoCmd)
	demoCmd.Flags().StringVar(&demoContent, "content", "the quick brown fox", "Victim request content")
	demoCmd.Flags().StringVar(&demoKey, "key", "2a", "Victim session key in hex")
}
