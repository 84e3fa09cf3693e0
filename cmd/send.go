package cmd

import (
	"context"
	"math/big"

	"github.com/RedPaladin7/wupattack/p2p"
	"github.com/RedPaladin7/wupattack/record"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	sendIdentity string
	sendServer   string
	sendContent  string
	sendCapture  string
	sendKey      string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a request as a party, optionally keeping a copy of it",
	RunE: func(cmd *cobra.Command, args []string) error {
		random := randomSource()
		party, err := p2p.LoadIdentity(sendIdentity, p2p.PartyConfig{
			Encoder: cfg.Encoder(random),
			Random:  random,
		})
		if err != nil {
			return err
		}

		req, err := buildRequest(party)
		if err != nil {
			return err
		}
		if sendCapture != "" {
			if err := p2p.SaveCapture(sendCapture, req); err != nil {
				return err
			}
			logrus.WithField("file", sendCapture).Info("request captured")
		}
		if sendServer == "" {
			return nil
		}

		accepted, err := p2p.NewAPIClient(sendServer).Query(context.Background(), req)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"party":    party.ID,
			"records":  len(req),
			"accepted": accepted,
		}).Info("request sent")
		return nil
	},
}

func buildRequest(party *p2p.Party) (record.Request, error) {
	if sendKey == "" {
		return party.SendRequest(sendContent)
	}
	key, ok := new(big.Int).SetString(sendKey, 16)
	if !ok {
		return nil, oops.Errorf("session key %q is not hex", sendKey)
	}
	return party.SendRequestWithKey(sendContent, key)
}

func init() {
	sendCmd.Flags().StringVar(&sendIdentity, "identity", "identity.yaml", "Identity file of the sending party")
	sendCmd.Flags().StringVar(&sendServer, "server", "", "Server address; empty only writes the capture")
	sendCmd.Flags().StringVar(&sendContent, "content", "", "Request content")
	sendCmd.Flags().StringVar(&sendCapture, "capture", "", "Also write the request to this file")
	sendCmd.Flags().StringVar(&sendKey, "key", "", "Session key in hex instead of a random one")
}
