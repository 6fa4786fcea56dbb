package parser

import (
	"slices"
	"strings"
	"sync"

	"github.com/jenian/envguard/internal/analyzer"
	"github.com/jenian/envguard/internal/scanner"
)

// DefaultWorkers is the number of files parsed concurrently
const DefaultWorkers = 10

// SkippedFile is a file that produced no occurrences because it could not be parsed
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Batch is the merged output of parsing a set of files
type Batch struct {
	Occurrences []analyzer.Occurrence
	Skipped     []SkippedFile
}

// ParseAll parses files in parallel and merges their occurrences.
// The merged occurrences are sorted so the result does not depend on
// which worker finished first. A failing file is recorded in Skipped.
func (p *Parser) ParseAll(files []scanner.FileInfo, scanRoot string, workers int) Batch {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var batch Batch
	var wg sync.WaitGroup
	var mu sync.Mutex
	slots := make(chan struct{}, workers)

	for _, file := range files {
		wg.Add(1)
		slots <- struct{}{} // Acquire worker

		go func(f scanner.FileInfo) {
			defer wg.Done()
			defer func() { <-slots }() // Release worker

			occurrences, err := p.ParseFile(f.Path, f.Language, scanRoot)
			if err != nil {
				p.logger.Warn("skipped file", "path", f.Path, "error", err)
				mu.Lock()
				batch.Skipped = append(batch.Skipped, SkippedFile{
					Path:   relativePath(f.Path, scanRoot),
					Reason: err.Error(),
				})
				mu.Unlock()
				return
			}

			if f.InIgnoredPath {
				for i := range occurrences {
					occurrences[i].InIgnoredPath = true
				}
			}

			mu.Lock()
			batch.Occurrences = append(batch.Occurrences, occurrences...)
			mu.Unlock()
		}(file)
	}

	wg.Wait()

	analyzer.SortOccurrences(batch.Occurrences)
	slices.SortFunc(batch.Skipped, func(a, b SkippedFile) int {
		return strings.Compare(a.Path, b.Path)
	})
	return batch
}
