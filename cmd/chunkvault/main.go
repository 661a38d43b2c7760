package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"chunkvault/internal/config"
	"chunkvault/internal/encryption/codec"
	"chunkvault/internal/encryption/service"
)

const usage = `usage: chunkvault [-config file] <command> [args]

commands:
  ingest <file> [manifest]    encrypt file into chunks and write its manifest
  retrieve <manifest> <out>   decrypt the chunks of manifest into out
  purge <manifest>            delete every chunk of manifest
  upgrade <manifest>          rewrite legacy chunks in the current format
`

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logger := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, flag.Args()); err != nil {
		stop()
		logger.Fatal(err)
	}
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := service.NewService(codec.New(), store, service.Config{
		ChunkSize:     cfg.ChunkSize,
		DefaultSecret: []byte(cfg.Secret),
		Logger:        logger,
	})
	app := &app{svc: svc, chunkSize: cfg.ChunkSize, log: logger}

	command, args := args[0], args[1:]
	switch {
	case command == "ingest" && (len(args) == 1 || len(args) == 2):
		manifest := args[0] + ".manifest.json"
		if len(args) == 2 {
			manifest = args[1]
		}
		return app.ingest(ctx, args[0], manifest)
	case command == "retrieve" && len(args) == 2:
		return app.retrieve(ctx, args[0], args[1])
	case command == "purge" && len(args) == 1:
		return app.purge(ctx, args[0])
	case command == "upgrade" && len(args) == 1:
		return app.upgrade(ctx, args[0])
	default:
		return fmt.Errorf("invalid command %q\n%s", command, usage)
	}
}
