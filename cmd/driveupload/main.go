package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "driveupload",
		Usage: "Stores form documents in Drive and sends checklist notifications",
		Commands: []*cli.Command{
			serveCommand,
			invokeCommand,
			resolveCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}
