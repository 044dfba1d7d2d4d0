package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/kmordal/namelens/internal/cache"
	"github.com/kmordal/namelens/internal/config"
	"github.com/kmordal/namelens/internal/errors"
	"github.com/kmordal/namelens/internal/ops"
	"github.com/kmordal/namelens/internal/planner"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "namelens",
		Usage:   "Content-derived image filenames with reference sync",
		Version: Version,
		Commands: []*cli.Command{
			fileCmd(db, cfg),
			folderCmd(db, cfg),
			refsCmd(cfg),
			cacheCmd(cfg),
			runsCmd(db),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// providerFlags are shared by every command that talks to the oracle.
func providerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "provider", Aliases: []string{"p"}, Usage: "Vision provider: ollama|openai (default from config)"},
		&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "Vision model (default from config)"},
		&cli.StringFlag{Name: "cache-dir", Usage: "Cache location (default: .namelens inside the target directory)"},
	}
}

// applyFlags are shared by the rename commands.
func applyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "apply", Usage: "Perform renames; default is a dry run"},
		&cli.BoolFlag{Name: "update-refs", Usage: "Rewrite markdown references after applying"},
		&cli.StringFlag{Name: "refs-root", Usage: "Directory scanned for markdown documents (default: the target directory)"},
		&cli.BoolFlag{Name: "recursive", Aliases: []string{"r"}, Usage: "Reference scan walks subdirectories"},
	}
}

// fileCmd creates the file command.
func fileCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "file",
		Usage:     "Plan or apply a content-derived name for a single image",
		ArgsUsage: "<path>",
		Flags:     append(applyFlags(), providerFlags()...),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("image path argument is required"))
			}
			path := c.Args().First()

			p, err := newPlanner(c, cfg, filepath.Dir(path))
			if err != nil {
				return outputError(err)
			}

			output, err := ops.RenameFile(c.Context, p, db, ops.RenameFileInput{
				Path:       path,
				Apply:      c.Bool("apply"),
				UpdateRefs: c.Bool("update-refs"),
				RefsRoot:   refsRoot(c, cfg),
				Recursive:  c.Bool("recursive") || cfg.Recursive,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// folderCmd creates the folder command.
func folderCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "folder",
		Usage:     "Plan or apply content-derived names for every image in a directory",
		ArgsUsage: "<dir>",
		Flags:     append(applyFlags(), providerFlags()...),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("directory argument is required"))
			}
			dir := c.Args().First()

			p, err := newPlanner(c, cfg, dir)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.RenameFolder(c.Context, p, db, ops.RenameFolderInput{
				Dir:        dir,
				Apply:      c.Bool("apply"),
				UpdateRefs: c.Bool("update-refs"),
				RefsRoot:   refsRoot(c, cfg),
				Recursive:  c.Bool("recursive") || cfg.Recursive,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// refsCmd creates the refs command.
func refsCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "refs",
		Usage:     "Locate markdown references to image files",
		ArgsUsage: "<root>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "names", Usage: "Comma-separated image basenames (default: every supported image under --asset-dir)"},
			&cli.StringFlag{Name: "asset-dir", Usage: "Directory listed for image names when --names is empty (default: root)"},
			&cli.BoolFlag{Name: "recursive", Aliases: []string{"r"}, Usage: "Scan walks subdirectories"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("root directory argument is required"))
			}

			output, err := ops.FindRefs(ops.FindRefsInput{
				Root:      c.Args().First(),
				Names:     parseNames(c.String("names")),
				AssetDir:  c.String("asset-dir"),
				Recursive: c.Bool("recursive") || cfg.Recursive,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// cacheCmd creates the cache command with stats and clear subcommands.
func cacheCmd(cfg *config.Config) *cli.Command {
	dirFlag := &cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Value: ".", Usage: "Directory whose cache to inspect"}
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the assessment and proposal cache",
		Subcommands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Report record counts per tier",
				Flags: []cli.Flag{dirFlag},
				Action: func(c *cli.Context) error {
					store, err := openStore(c, cfg)
					if err != nil {
						return outputError(err)
					}
					output, err := ops.CacheStats(store)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "clear",
				Usage: "Delete every cached record in both tiers",
				Flags: []cli.Flag{dirFlag},
				Action: func(c *cli.Context) error {
					store, err := openStore(c, cfg)
					if err != nil {
						return outputError(err)
					}
					output, err := ops.CacheClear(store)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// runsCmd creates the runs command.
func runsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List recorded rename runs, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum runs to return"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListRuns(db, ops.ListRunsInput{Limit: c.Int("limit")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Helper functions

// newPlanner wires a planner from flags and config for the given directory.
func newPlanner(c *cli.Context, cfg *config.Config, dir string) (*planner.Planner, error) {
	effective := *cfg
	if cacheDir := c.String("cache-dir"); cacheDir != "" {
		effective.CacheDir = cacheDir
	}
	return ops.NewPlanner(&effective, dir, c.String("provider"), c.String("model"))
}

// openStore opens the cache store for the cache subcommands.
func openStore(c *cli.Context, cfg *config.Config) (*cache.Store, error) {
	root := cfg.CacheDir
	if root == "" {
		root = filepath.Join(c.String("dir"), ".namelens")
	}
	return cache.Open(root)
}

func refsRoot(c *cli.Context, cfg *config.Config) string {
	if root := c.String("refs-root"); root != "" {
		return root
	}
	return cfg.RefsRoot
}

// parseNames splits a comma-separated string into basenames.
func parseNames(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		n := strings.TrimSpace(p)
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if nErr, ok := err.(*errors.NamerError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", nErr.Code, nErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
