// file: internal/metadata/cover.go
// version: 2.0.0
// guid: 4efaa7b8-e29a-47f3-84f7-39b46bfc9a01

package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const maxCoverSize = 10 * 1024 * 1024

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DownloadCover downloads a cover image from coverURL and saves it to
// {destDir}/covers/{name}.{ext}. Returns the local file path on success.
// Skips the download if the file already exists. Only accepts image/*
// content types.
func DownloadCover(ctx context.Context, client *http.Client, coverURL, destDir, name string) (string, error) {
	if coverURL == "" {
		return "", fmt.Errorf("empty cover URL")
	}
	name = unsafeName.ReplaceAllString(name, "_")
	if name == "" {
		return "", fmt.Errorf("empty cover name")
	}
	coversDir := filepath.Join(destDir, "covers")
	if existing := CoverPath(destDir, name); existing != "" {
		return existing, nil
	}
	if err := os.MkdirAll(coversDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create covers directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create cover request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download cover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cover download returned status %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("unexpected content type: %s", contentType)
	}

	destPath := filepath.Join(coversDir, name+extensionFromContentType(contentType))
	f, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create cover file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, io.LimitReader(resp.Body, maxCoverSize)); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to write cover file: %w", err)
	}
	return destPath, nil
}

// CoverPath returns the local cover file path if it exists, empty string otherwise.
func CoverPath(destDir, name string) string {
	matches, _ := filepath.Glob(filepath.Join(destDir, "covers", name+".*"))
	for _, m := range matches {
		switch strings.ToLower(filepath.Ext(m)) {
		case ".jpg", ".jpeg", ".png", ".webp", ".gif":
			return m
		}
	}
	return ""
}

func extensionFromContentType(ct string) string {
	ct = strings.ToLower(ct)
	switch {
	case strings.Contains(ct, "png"):
		return ".png"
	case strings.Contains(ct, "gif"):
		return ".gif"
	case strings.Contains(ct, "webp"):
		return ".webp"
	default:
		return ".jpg"
	}
}
