package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "0.1.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	log *zap.SugaredLogger
}

func newApp() *cli.App {
	a := &app{log: zap.NewNop().Sugar()}
	return &cli.App{
		Name:    "utxobatch",
		Usage:   "validates batches of transactions against a pool of unspent outputs",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   "info",
				EnvVars: []string{"UTXOBATCH_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "log-json",
				Usage:   "log in JSON format",
				EnvVars: []string{"UTXOBATCH_LOG_JSON"},
			},
		},
		Before: func(c *cli.Context) error {
			log, err := newLogger(c.String("log-level"), c.Bool("log-json"))
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
		After: func(_ *cli.Context) error {
			_ = a.log.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "apply the batch from the file to its pool and print the result",
				Action: a.check,
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "batch file (YAML)",
						Required: true,
						EnvVars:  []string{"UTXOBATCH_FILE"},
					},
					&cli.IntFlag{
						Name:    "workers",
						Usage:   "number of signature verification workers, 0 for sequential processing",
						Value:   4,
						EnvVars: []string{"UTXOBATCH_WORKERS"},
					},
					&cli.BoolFlag{
						Name:    "metrics",
						Usage:   "print collected metrics",
						EnvVars: []string{"UTXOBATCH_METRICS"},
					},
				},
			},
			{
				Name:   "generate",
				Usage:  "write a sample batch file with signed transactions",
				Action: a.generate,
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     "out",
						Aliases:  []string{"o"},
						Usage:    "output file",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "accounts",
						Usage: "number of funded accounts",
						Value: 3,
					},
				},
			},
			{
				Name:  "version",
				Usage: "print the version",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprintln(c.App.Writer, version)
					return err
				},
			},
		},
	}
}

func newLogger(level string, json bool) (*zap.SugaredLogger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("wrong log level '%s': %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	if json {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return log.Sugar().Named("utxobatch"), nil
}
