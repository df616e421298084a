package ngramindex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const manifestName = ".manifest.json"

// manifest captures the subset of PipelineConfig that affects shard layout.
type manifest struct {
	ChunkSize int64 `json:"chunk_size"`
	Orders    []int `json:"orders"`
}

func newManifest(cfg PipelineConfig) manifest {
	return manifest{
		ChunkSize: cfg.ChunkSize,
		Orders:    cfg.Orders,
	}
}

func manifestPath(outputDir string) string { return filepath.Join(outputDir, manifestName) }

// verifyOrWriteManifest loads an existing manifest if present and syncs the
// chunk size of cfg with it, since shard names only make sense under the
// chunk size that produced them. If the file does not exist, it is created.
// It reports whether cfg was changed.
func verifyOrWriteManifest(path string, cfg *PipelineConfig) (bool, error) {
	want := newManifest(*cfg)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// first time: write file
		f, err := os.Create(path)
		if err != nil {
			return false, fmt.Errorf("create manifest: %w", err)
		}
		defer f.Close()
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(want); err != nil {
			return false, fmt.Errorf("encode manifest: %w", err)
		}
		return false, nil
	}

	// file exists, load & sync config
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	var have manifest
	if err := json.NewDecoder(f).Decode(&have); err != nil {
		return false, fmt.Errorf("decode manifest: %w", err)
	}
	if have.ChunkSize <= 0 {
		return false, fmt.Errorf("decode manifest: %w", ErrInvalidChunkSize)
	}

	changed := have.ChunkSize != cfg.ChunkSize
	cfg.ChunkSize = have.ChunkSize
	return changed, nil
}
