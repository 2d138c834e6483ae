package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/bracketeer/internal/config"
	"github.com/standardbeagle/bracketeer/internal/debug"
	"github.com/standardbeagle/bracketeer/internal/mcp"
	"github.com/standardbeagle/bracketeer/internal/tui"
	"github.com/standardbeagle/bracketeer/internal/version"
)

// loadConfig layers the configuration files and applies the --define and
// --undefine flags.
// A bare NAME is defined as 1.
func loadConfig(c *cli.Context, root string) (*config.Config, error) {
	configPath := c.String("config")
	cfg, err := config.LoadWithRoot(configPath, root)
	if err != nil {
		if configPath == "" {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	if cfg.Preprocessor.Defines == nil {
		cfg.Preprocessor.Defines = map[string]string{}
	}
	for _, def := range c.StringSlice("define") {
		name, value, ok := strings.Cut(def, "=")
		if !ok {
			value = "1"
		}
		cfg.Preprocessor.Defines[name] = value
	}
	cfg.Preprocessor.Undefines = append(cfg.Preprocessor.Undefines, c.StringSlice("undefine")...)
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func newApp() *cli.App {
	return &cli.App{
		Name:                   "bracketeer",
		Usage:                  "Bracket pairs, lonely brackets and scope hints for source files",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (.kdl or .toml), layered over ~/" + config.KDLFileName + " and the project file",
			},
			&cli.StringSliceFlag{
				Name:    "define",
				Aliases: []string{"D"},
				Usage:   "Treat a preprocessor macro as defined (e.g., -D DEBUG -D LEVEL=2)",
			},
			&cli.StringSliceFlag{
				Name:    "undefine",
				Aliases: []string{"U"},
				Usage:   "Treat a preprocessor macro as undefined, making its #ifdef branches inactive",
			},
			&cli.BoolFlag{
				Name:  "debug-log",
				Usage: "Write debug output to a log file in the temp directory",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug-log") {
				path, err := debug.InitDebugLogFile()
				if err != nil {
					return fmt.Errorf("failed to open debug log: %w", err)
				}
				fmt.Fprintf(os.Stderr, "debug log: %s\n", path)
			}
			debug.Printf("%s: %v\n", version.FullInfo(), c.Args().Slice())
			return nil
		},
		After: func(c *cli.Context) error {
			return debug.CloseDebugLog()
		},
		Commands: []*cli.Command{
			{
				Name:      "analyze",
				Aliases:   []string{"a"},
				Usage:     "Report pairs, lonely brackets and hints for files or directories",
				ArgsUsage: "PATH...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, json or yaml",
						Value:   "text",
					},
					&cli.StringSliceFlag{
						Name:    "include",
						Aliases: []string{"i"},
						Usage:   "Report sections: pairs, singles, hints, inactive (default all but pairs in text mode)",
					},
					&cli.StringFlag{
						Name:  "color",
						Usage: "Colorize text output: auto, always or never",
						Value: "auto",
					},
					&cli.IntFlag{
						Name:  "jobs",
						Usage: "Files analysed in parallel (0 = number of CPUs)",
					},
					&cli.BoolFlag{
						Name:  "fail-on-lonely",
						Usage: "Exit with status 1 when any lonely bracket is found",
					},
				},
				Action: analyzeCommand,
			},
			{
				Name:      "watch",
				Aliases:   []string{"w"},
				Usage:     "Watch a directory and report every analysis cycle",
				ArgsUsage: "[DIR]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text or json",
						Value:   "text",
					},
				},
				Action: watchCommand,
			},
			{
				Name:      "view",
				Aliases:   []string{"v"},
				Usage:     "Open a file in the interactive viewer",
				ArgsUsage: "FILE",
				Action:    viewCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the analysis tools over MCP on stdio",
				Action: mcpCommand,
			},
		},
	}
}

func viewCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("view takes exactly one FILE", 2)
	}
	path := c.Args().First()

	cfg, err := loadConfig(c, filepath.Dir(path))
	if err != nil {
		return err
	}

	ctx, stop := signalContext(c.Context)
	defer stop()
	return tui.Run(ctx, path, cfg)
}

func mcpCommand(c *cli.Context) error {
	// stdout carries the protocol
	debug.SetMCPMode(true)

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}
	cfg, err := loadConfig(c, root)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(cfg, root)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, stop := signalContext(c.Context)
	defer stop()

	debug.LogMCP("Starting MCP server with stdio transport...\n")
	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
