// file: internal/search/covers.go
// version: 1.0.0
// guid: 9d3c7a52-1f84-4e06-a2b9-6c5e0f8d17b3

package search

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
)

// selectBestCovers keeps the largest downloaded image of each cover list
// under KeyCover0/1 and deletes the other files.
func selectBestCovers(data BookData) {
	for i, listKey := range []string{KeyCoverFiles0, KeyCoverFiles1} {
		files := data.List(listKey)
		delete(data, listKey)
		if len(files) == 0 {
			continue
		}
		best := bestImage(files)
		for _, f := range files {
			if f == best {
				continue
			}
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				log.Printf("[WARN] search: failed to delete cover %s: %v", f, err)
			}
		}
		if best != "" {
			data.Set([]string{KeyCover0, KeyCover1}[i], best)
		}
	}
}

// bestImage returns the file with the largest pixel area. Files that are
// missing or not decodable are never chosen.
func bestImage(files []string) string {
	best := ""
	bestArea := -1
	for _, f := range files {
		area, ok := imageArea(f)
		if !ok {
			continue
		}
		if area > bestArea {
			best = f
			bestArea = area
		}
	}
	return best
}

func imageArea(path string) (int, bool) {
	fh, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer fh.Close()
	cfg, _, err := image.DecodeConfig(fh)
	if err != nil {
		return 0, false
	}
	return cfg.Width * cfg.Height, true
}
