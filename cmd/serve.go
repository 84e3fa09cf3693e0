package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/RedPaladin7/wupattack/config"
	"github.com/RedPaladin7/wupattack/p2p"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var identityFiles []string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the server that accepts or rejects requests from registered parties",
	RunE: func(cmd *cobra.Command, args []string) error {
		server := p2p.NewServer(p2p.ServerConfig{
			Version:       defaultVersion,
			APIListenAddr: cfg.Server.ListenAddr,
		})
		random := randomSource()
		for _, file := range identityFiles {
			party, err := p2p.LoadIdentity(file, p2p.PartyConfig{
				Encoder: cfg.Encoder(random),
				Random:  random,
			})
			if err != nil {
				return err
			}
			server.Register(party)
		}

		addr := cfg.Server.ListenAddr
		logrus.Info("===========================================")
		logrus.Info("  wupattack oracle server")
		logrus.Info("===========================================")
		logrus.Infof("Version:        %s", defaultVersion)
		logrus.Infof("API Address:    http://%s", addr)
		logrus.Infof("Parties:        %d", len(server.Parties()))
		logrus.Info("===========================================")
		logrus.Info("API Endpoints:")
		logrus.Infof("  Request:      POST http://%s/api/request", addr)
		logrus.Infof("  Health:       GET  http://%s/api/health", addr)
		logrus.Infof("  Parties:      GET  http://%s/api/parties", addr)
		logrus.Info("===========================================")

		errc := make(chan error, 1)
		go func() { errc <- server.Start() }()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		select {
		case err := <-errc:
			return err
		case <-sigChan:
		}
		logrus.WithFields(logrus.Fields{
			"queries":  server.Stats().Queries,
			"accepted": server.Stats().Accepted,
		}).Info("shutdown signal received, server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("listen", config.DefaultListenAddr, "HTTP API listen address")
	serveCmd.Flags().StringSliceVar(&identityFiles, "identity", nil, "Identity file of a party to register (repeatable)")
}
