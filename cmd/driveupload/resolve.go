package main

import (
	"driveupload/internal/tree"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

var resolveCommand = &cli.Command{
	Name:  "resolve",
	Usage: "Print the destination folders for a request without calling Drive",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "societa", Aliases: []string{"s"}, Required: true},
		&cli.StringFlag{Name: "modulo", Aliases: []string{"m"}, Required: true},
		&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "Service date, e.g. 2025-03-14", Required: true},
	},
	Action: func(c *cli.Context) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		date, err := tree.ParseServiceDate(c.String("data"))
		if err != nil {
			return err
		}

		path, err := tree.NewResolver(config.RootFolders).Resolve(c.String("societa"), c.String("modulo"), date)
		if err != nil {
			return err
		}

		printer := pp.New()
		printer.SetOutput(c.App.Writer)
		printer.SetColoringEnabled(false)
		printer.Println(path)
		printer.Println(path.String())

		return nil
	},
}
