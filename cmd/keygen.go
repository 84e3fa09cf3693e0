package cmd

import (
	"github.com/RedPaladin7/wupattack/p2p"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	identityOut string
	publicOut   string
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Create a party identity and publish its public key",
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
		if err := party.SaveIdentity(identityOut); err != nil {
			return err
		}
		if err := party.SavePublicKey(publicOut); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"party":    party.ID,
			"method":   party.Method(),
			"identity": identityOut,
			"public":   publicOut,
		}).Info("identity created")
		return nil
	},
}

func init() {
	keyFlags(keygenCmd)
	keygenCmd.Flags().StringVar(&identityOut, "out", "identity.yaml", "Identity file (private)")
	keygenCmd.Flags().StringVar(&publicOut, "pub", "public.yaml", "Public key file")
}
