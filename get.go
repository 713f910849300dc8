package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/dankgo/dank/internal/media"
	"github.com/dankgo/dank/internal/reddit"
)

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <media-url>...",
		Short: "Download linked media",
		Long: `Download one or more media links (i.redd.it, v.redd.it and similar) into
the download directory. Existing files are never overwritten; a numbered
name is chosen instead. Downloads run in parallel up to download.parallel.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runGet,
	}

	cmd.Flags().String("dir", "", "download directory (overrides download.dir)")

	return cmd
}

// jobOutput is the JSON schema for one entry of `get --json`.
type jobOutput struct {
	URL      string    `json:"url"`
	State    string    `json:"state"`
	Progress int       `json:"progress"`
	File     string    `json:"file,omitempty"`
	Time     time.Time `json:"time"`
}

func runGet(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	ctx := shutdownContext(cmd.Context(), logger)

	// Media hosts take no bearer token, so downloads need no session.
	transfer := reddit.NewClient(apiBaseURL, &http.Client{}, logger, resolvedCfg.App.UserAgent, 0)

	dir := resolvedCfg.DownloadDir()
	d := media.NewDownloader(transfer, dir, resolvedCfg.Download.Parallel, logger)
	d.SetMaxBytes(resolvedCfg.MaxDownloadBytes())

	links := make([]media.Link, len(args))
	for i, arg := range args {
		links[i] = media.Link{URL: arg}
	}

	logger.Debug("get", "links", len(links), "dir", dir)

	var printMu sync.Mutex

	jobs, err := d.DownloadAll(ctx, links, func(j media.Job) {
		printMu.Lock()
		defer printMu.Unlock()

		reportJob(j)
	})

	if flagJSON {
		if encErr := printJobsJSON(cmd.OutOrStdout(), jobs); encErr != nil {
			return encErr
		}
	}

	return err
}

// reportJob prints a terminal job state to stderr and logs the rest.
func reportJob(j media.Job) {
	link := j.Link()

	switch j.State() {
	case media.Downloaded:
		file, _ := j.File()

		size := ""
		if fi, err := os.Stat(file); err == nil {
			size = " (" + formatSize(fi.Size()) + ")"
		}

		statusf(flagQuiet, "Downloaded %s%s\n", file, size)
	case media.Failed:
		statusf(flagQuiet, "Failed %s\n", link.URL)
	case media.Connecting:
		statusf(flagQuiet || !flagVerbose, "Connecting %s\n", link.URL)
	case media.InFlight:
		if flagVerbose && j.Progress()%25 == 0 {
			statusf(flagQuiet, "%3d%% %s\n", j.Progress(), link.URL)
		}
	}
}

func printJobsJSON(w io.Writer, jobs []media.Job) error {
	out := make([]jobOutput, 0, len(jobs))

	for _, j := range jobs {
		file, _ := j.File()

		out = append(out, jobOutput{
			URL:      j.Link().URL,
			State:    j.State().String(),
			Progress: j.Progress(),
			File:     file,
			Time:     j.Timestamp(),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}
