package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"driveupload/internal/upload"
	"driveupload/internal/utils"
	"driveupload/pkg/types"

	"github.com/urfave/cli/v2"
)

var invokeCommand = &cli.Command{
	Name:  "invoke",
	Usage: "Run a single upload request through the pipeline and print the response",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "Request JSON file, - for stdin",
			Value:   "-",
		},
	},
	Action: invoke,
}

func invoke(c *cli.Context) error {
	config, logger, err := setup()
	if err != nil {
		return err
	}

	body, err := readRequest(c.String("file"))
	if err != nil {
		return err
	}

	uploads, _ := newUploadService(config, logger)

	status := runRequest(c.Context, uploads, body, c.App.Writer)
	if status != http.StatusOK {
		return cli.Exit("", status/100)
	}
	return nil
}

// runRequest decodes and runs one request, writing the JSON response to w.
// Decode failures get the same error body as pipeline failures.
func runRequest(ctx context.Context, uploads *upload.Service, body []byte, w io.Writer) int {
	var (
		status  int
		payload any
	)

	var req = new(types.UploadRequest)
	if err := json.Unmarshal(body, req); err != nil {
		status = http.StatusInternalServerError
		payload = types.ErrorResponse{Success: false, Error: utils.WrapError(err, "decode request").Error()}
	} else {
		status, payload = upload.Response(uploads.Handle(ctx, req))
	}

	fmt.Fprintln(w, string(utils.MustMarshalJSON(payload)))
	return status
}

func readRequest(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.WrapErrorf(err, "read request file %s", path)
	}
	return data, nil
}
