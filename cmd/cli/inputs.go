package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dvloznov/receipt-ledger/internal/gcsuploader"
	"github.com/dvloznov/receipt-ledger/internal/pipeline"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// expandInputs turns the scan arguments into an ordered list of sources.
// Directories contribute their image files in name order; files and gs://
// URIs are kept as given.
func expandInputs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if strings.HasPrefix(arg, "gs://") {
			out = append(out, arg)
			continue
		}
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("expandInputs: %w", err)
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("expandInputs: reading %s: %w", arg, err)
		}
		var files []string
		for _, e := range entries {
			if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			files = append(files, filepath.Join(arg, e.Name()))
		}
		sort.Strings(files)
		out = append(out, files...)
	}
	return out, nil
}

// loadImages reads every source into memory. gs:// sources are fetched through store.
func loadImages(ctx context.Context, store gcsuploader.StorageService, sources []string) ([]pipeline.Image, error) {
	images := make([]pipeline.Image, 0, len(sources))
	for _, src := range sources {
		var (
			data []byte
			name string
			err  error
		)
		if strings.HasPrefix(src, "gs://") {
			name = store.ExtractFilenameFromGCSURI(src)
			data, err = store.FetchFromGCS(ctx, src)
		} else {
			name = filepath.Base(src)
			data, err = os.ReadFile(src)
		}
		if err != nil {
			return nil, fmt.Errorf("loadImages: %s: %w", src, err)
		}
		images = append(images, pipeline.Image{Filename: name, Data: data})
	}
	return images, nil
}
