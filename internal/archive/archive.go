// Package archive exports every saved mind-map page below a directory into
// one zip file.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/boyter/gocodewalker"
	"github.com/kernel/mindmap/internal/dom/htmldom"
	"github.com/kernel/mindmap/internal/locate"
	"github.com/kernel/mindmap/internal/outline"
	"github.com/kernel/mindmap/internal/profile"
)

// DefaultExclusions are directory names never walked.
var DefaultExclusions = []string{"node_modules", ".git"}

// Extensions are the snapshot file extensions picked up by the walk.
var Extensions = []string{"html", "htm"}

// Options configure an export.
type Options struct {
	Format  outline.Format
	Profile profile.Profile
	// ExcludeDirectories are added to DefaultExclusions.
	ExcludeDirectories []string
	// Progress receives the share of snapshots processed, 0..100.
	Progress func(pct int)
	Verbose  bool
}

// Stats summarizes an export.
type Stats struct {
	mu           sync.Mutex
	Files        int      `json:"files"`
	Exported     int      `json:"exported"`
	Entries      int      `json:"entries"`
	Bytes        int64    `json:"bytes"`
	Skipped      int      `json:"skipped"`
	SkippedPaths []string `json:"skippedPaths,omitempty"`
	Archive      string   `json:"archive"`
}

func (s *Stats) addExported(entries int, bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Exported++
	s.Entries += entries
	s.Bytes += bytes
}

func (s *Stats) addSkipped(path string, verbose bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Skipped++
	if verbose {
		s.SkippedPaths = append(s.SkippedPaths, path)
	}
}

// Snapshots lists the saved pages below dir, sorted by path.
func Snapshots(dir string, exclude []string) ([]string, error) {
	fileQueue := make(chan *gocodewalker.File, 256)
	walker := gocodewalker.NewFileWalker(dir, fileQueue)
	walker.AllowListExtensions = Extensions
	walker.ExcludeDirectory = append(append(walker.ExcludeDirectory, DefaultExclusions...), exclude...)

	errChan := make(chan error, 1)
	go func() {
		errChan <- walker.Start()
	}()

	var files []string
	for f := range fileQueue {
		files = append(files, f.Location)
	}
	if err := <-errChan; err != nil {
		return nil, fmt.Errorf("directory walk failed: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// Export serializes the mind map of every snapshot below srcDir and writes
// one entry per snapshot to destZip. Snapshots without a mind map are
// skipped.
func Export(ctx context.Context, srcDir, destZip string, opts Options) (*Stats, error) {
	if opts.Format == "" {
		opts.Format = outline.FormatMarkdown
	}
	if opts.Profile.Node == "" {
		opts.Profile = opts.Profile.Merge(profile.Default())
	}

	files, err := Snapshots(srcDir, opts.ExcludeDirectories)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Files: len(files), Archive: destZip}
	if len(files) == 0 {
		return stats, fmt.Errorf("no .html snapshots found in %s", srcDir)
	}

	zipFile, err := os.Create(destZip)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	defer zipFile.Close()
	zipWriter := zip.NewWriter(zipFile)

	resolver := locate.NewResolver()
	resolver.Logger = nil
	containers := opts.Profile.Containers.Compact()

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			zipWriter.Close()
			return stats, err
		}
		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			zipWriter.Close()
			return stats, err
		}
		relPath = filepath.ToSlash(relPath)

		doc, err := htmldom.Load(path)
		if err != nil {
			zipWriter.Close()
			return stats, fmt.Errorf("failed to read %s: %w", relPath, err)
		}
		container := resolver.Find(doc, containers)
		entries := outline.Serialize(container, opts.Profile)
		if container == nil || len(entries) == 0 {
			stats.addSkipped(relPath, opts.Verbose)
		} else {
			content, err := outline.Render(entries, opts.Format)
			if err != nil {
				zipWriter.Close()
				return stats, err
			}
			w, err := zipWriter.Create(EntryName(relPath, opts.Format))
			if err != nil {
				zipWriter.Close()
				return stats, err
			}
			n, err := w.Write([]byte(content))
			if err != nil {
				zipWriter.Close()
				return stats, err
			}
			stats.addExported(len(entries), int64(n))
		}

		if opts.Progress != nil {
			opts.Progress((i + 1) * 100 / len(files))
		}
	}

	if err := zipWriter.Close(); err != nil {
		return stats, fmt.Errorf("failed to finish archive: %w", err)
	}
	return stats, nil
}

// EntryName maps a snapshot path to its export name inside the archive.
func EntryName(relPath string, f outline.Format) string {
	return strings.TrimSuffix(relPath, filepath.Ext(relPath)) + "." + f.Extension()
}
