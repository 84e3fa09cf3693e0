package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/RedPaladin7/wupattack/attack"
	"github.com/RedPaladin7/wupattack/config"
	"github.com/RedPaladin7/wupattack/encode"
	"github.com/RedPaladin7/wupattack/p2p"
	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	attackServer  string
	attackPublic  string
	attackCapture string
)

var attackCmd = &cobra.Command{
	Use:   "attack",
	Short: "Recover the session key of a captured request through a live server",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, pub, method, err := p2p.LoadPublicKey(attackPublic)
		if err != nil {
			return err
		}
		if method != encode.MethodNaive {
			logrus.WithField("method", method).Warn("victim does not use naive encoding, the attack is not expected to converge")
		}
		captured, err := p2p.LoadCapture(attackCapture)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		res, err := attack.Run(ctx, pub, captured, p2p.NewAPIClient(attackServer))
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

func report(res *attack.Result) {
	logrus.WithFields(logrus.Fields{
		"key":     res.Key.Text(16),
		"queries": res.Queries,
		"records": len(res.Records),
	}).Info("attack succeeded")
	logrus.Infof("Plaintext: %s", res.Plaintext)
}

func init() {
	attackCmd.Flags().StringVar(&attackServer, "server", config.DefaultListenAddr, "Server to use as the oracle")
	attackCmd.Flags().StringVar(&attackPublic, "pub", "public.yaml", "Victim public key file")
	attackCmd.Flags().StringVar(&attackCapture, "capture", "capture.json", "Captured request")
}
