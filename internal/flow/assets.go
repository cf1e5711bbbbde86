package flow

import (
	"fmt"
	"os"
	"path/filepath"
)

// AssetChecker reports whether a stimulus can be played.
type AssetChecker interface {
	Check(stimulus string) error
}

// FileAssets checks stimulus media on the local filesystem.
type FileAssets struct {
	Root  string
	Media map[string]string // stimulus id -> path, relative to Root unless absolute
}

// Check returns an error wrapping ErrMissingAsset if the stimulus has no
// configured media or the file does not exist.
func (f FileAssets) Check(stimulus string) error {
	path, ok := f.Media[stimulus]
	if !ok || path == "" {
		return fmt.Errorf("%w: %s: no media configured", ErrMissingAsset, stimulus)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.Root, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMissingAsset, stimulus, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s: %s is a directory", ErrMissingAsset, stimulus, path)
	}
	return nil
}
