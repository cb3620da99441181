// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// rootCommand builds the flag-driven root command. Operations run in a fixed order regardless of flag order.
func rootCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spoticamper",
		Usage:   "Find the albums of a Spotify playlist on Bandcamp and track which ones you own",
		Version: "0.2.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "Spotify playlist URL, URI or id to import, then search and refresh purchases",
			},
			&cli.BoolFlag{
				Name:    "unpurchased",
				Aliases: []string{"u"},
				Usage:   "Print the Bandcamp URL of every found album not yet purchased",
			},
			&cli.BoolFlag{
				Name:    "stats",
				Aliases: []string{"s"},
				Usage:   "Print stats",
			},
			&cli.BoolFlag{
				Name:    "refresh_purchased",
				Aliases: []string{"r"},
				Usage:   "Refresh purchases from your Bandcamp collection",
			},
			&cli.BoolFlag{
				Name:  "retry-not-found",
				Usage: "Search Bandcamp again for albums previously not found",
			},
			&cli.StringFlag{
				Name:  "state",
				Usage: "Path to the state file (overrides state.path)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file with credentials, loaded when present",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Format of the unpurchased listing (text, csv, markdown)",
				Value: "text",
			},
			&cli.BoolFlag{
				Name:  "history",
				Usage: "Print recent runs",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Action: r.Run,
	}
}
