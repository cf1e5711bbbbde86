// Package cleanup implements pruning of old CSV exports.
package cleanup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/drivesound/drivesound/internal/export"
)

// exportTime parses the timestamp out of an export file name such as
// responses_20260301_101500.csv. ok is false for any other file.
func exportTime(name string) (time.Time, bool) {
	base, found := strings.CutSuffix(name, ".csv")
	if !found || len(base) < len(export.TimestampLayout)+1 {
		return time.Time{}, false
	}
	stamp := base[len(base)-len(export.TimestampLayout):]
	if base[len(base)-len(stamp)-1] != '_' {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(export.TimestampLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type exportFile struct {
	name string
	at   time.Time
}

func listExports(exportsDir string) ([]exportFile, error) {
	entries, err := os.ReadDir(exportsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading exports directory: %w", err)
	}

	var files []exportFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if t, ok := exportTime(entry.Name()); ok {
			files = append(files, exportFile{name: entry.Name(), at: t})
		}
	}
	return files, nil
}

// PruneByAge removes export files older than maxAgeDays, judged by the
// timestamp in the file name. Files without one are left alone.
// If dryRun is true, nothing is deleted; the function only returns the
// names that would be removed.
func PruneByAge(exportsDir string, maxAgeDays int, dryRun bool) ([]string, error) {
	files, err := listExports(exportsDir)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	var pruned []string

	for _, f := range files {
		if !f.at.Before(cutoff) {
			continue
		}
		if !dryRun {
			if rmErr := os.Remove(filepath.Join(exportsDir, f.name)); rmErr != nil {
				return pruned, fmt.Errorf("removing %s: %w", f.name, rmErr)
			}
		}
		pruned = append(pruned, f.name)
	}

	return pruned, nil
}

// PruneKeepRecent removes all export files except the most recent keep.
func PruneKeepRecent(exportsDir string, keep int, dryRun bool) ([]string, error) {
	files, err := listExports(exportsDir)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].at.Before(files[j].at) })

	if len(files) <= keep {
		return nil, nil
	}

	var pruned []string
	for _, f := range files[:len(files)-keep] {
		if !dryRun {
			if rmErr := os.Remove(filepath.Join(exportsDir, f.name)); rmErr != nil {
				return pruned, fmt.Errorf("removing %s: %w", f.name, rmErr)
			}
		}
		pruned = append(pruned, f.name)
	}

	return pruned, nil
}
