package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/edvin/filevault/internal/model"
)

// chunkSize bounds individual write calls when materializing a restore.
const chunkSize = 2 * 1024 * 1024

// Installer materializes restore plans into a destination directory,
// fetching direct-link content over HTTP when the plan has no inline
// bytes.
type Installer struct {
	client *http.Client
}

func NewInstaller() *Installer {
	return &Installer{client: &http.Client{Timeout: 10 * time.Minute}}
}

// Apply writes the planned backup file into destDir and returns the
// final path.
func (i *Installer) Apply(ctx context.Context, plan *model.RestorePlan, destDir string) (string, error) {
	content := plan.Content
	if plan.Direct() {
		fetched, err := i.fetch(ctx, plan.DirectURL)
		if err != nil {
			return "", err
		}
		content = fetched
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create restore directory: %w", err)
	}

	dest := filepath.Join(destDir, plan.FileName)
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create restore file: %w", err)
	}

	for off := 0; off < len(content); off += chunkSize {
		end := off + chunkSize
		if end > len(content) {
			end = len(content)
		}
		if _, err := f.Write(content[off:end]); err != nil {
			f.Close()
			return "", fmt.Errorf("write restore file: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close restore file: %w", err)
	}
	return dest, nil
}

func (i *Installer) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download backup content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download backup content: unexpected status %d", resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read backup content: %w", err)
	}
	return content, nil
}
