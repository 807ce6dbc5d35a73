package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/merkleproof/fileserver/pkg/client"
	"github.com/merkleproof/fileserver/pkg/config"
	"github.com/merkleproof/fileserver/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "merkle-client",
		Usage: "a local verifier: hash a set of files into a root, or verify a file against a root and an authentication path",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Usage:   "HTTP port to listen on",
				Value:   8081,
				EnvVars: []string{config.EnvClientPort},
			},
			&cli.StringFlag{
				Name:    "temp-dir",
				Usage:   "directory used to stage files during verification",
				Value:   "./client_tmp",
				EnvVars: []string{config.EnvClientTempDir},
			},
			&cli.Int64Flag{
				Name:    "max-upload-bytes",
				Value:   config.DefaultMaxUploadBytes,
				EnvVars: []string{config.EnvClientMaxUploadSize},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				EnvVars: []string{config.EnvClientVerbose},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseConfig(c *cli.Context) *config.ClientConfig {
	return &config.ClientConfig{
		Port:           c.Int("port"),
		TempDir:        c.String("temp-dir"),
		MaxUploadBytes: c.Int64("max-upload-bytes"),
		Verbose:        c.Bool("verbose"),
	}
}

func run(c *cli.Context) error {
	cfg := parseConfig(c)
	if err := cfg.Validate(); err != nil {
		return err
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Verbose})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	srv, err := client.NewServer(fmt.Sprintf(":%d", cfg.Port), cfg.TempDir, cfg.MaxUploadBytes, l)
	if err != nil {
		l.Sugar().Fatalw("failed to create client server", "error", err)
	}
	if err := srv.Start(); err != nil {
		l.Sugar().Fatalw("failed to start client server", "error", err)
	}

	select {}
}
