package scenario

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dwmkerr/shellrec/internal/console"
)

// Downloader materializes remote artifacts under the output directory.
// Results without a download reference are a no-op; once a reference is
// present, any fetch or write failure is fatal — an incomplete artifact
// set is a failed run.
type Downloader struct {
	outputDir  string
	httpClient *http.Client
	con        *console.Console
}

func NewDownloader(outputDir string, con *console.Console) *Downloader {
	return &Downloader{
		outputDir:  outputDir,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		con:        con,
	}
}

// Fetch downloads the artifact referenced by res, if any. The file is
// written under the suggested name; re-running the scenario overwrites
// the previous artifact in place.
func (d *Downloader) Fetch(ctx context.Context, res Result) error {
	url, filename, ok := res.DownloadRef()
	if !ok {
		return nil
	}
	path := filepath.Join(d.outputDir, filepath.Base(filename))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download %s: %w", filename, err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", filename, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: http %d", filename, resp.StatusCode)
	}

	// Write to a temp name first so a failed transfer never leaves a
	// truncated artifact under the final name.
	tmp := path + "." + uuid.NewString() + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("download %s: %w", filename, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("download %s: %w", filename, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("download %s: %w", filename, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("download %s: %w", filename, err)
	}

	d.con.Saved(path)
	return nil
}
