package ngramindex

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	dirPerm   = 0o755
	shardPerm = 0o644
	tmpPrefix = ".tmp-"
)

// prepareOutput wipes the output tree unless resuming, then makes sure it
// exists.
func prepareOutput(dir string, resume bool) error {
	if !resume {
		if err := os.RemoveAll(dir); err != nil {
			return errors.Wrap(err, "remove output tree")
		}
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return errors.Wrap(err, "create output tree")
	}
	return nil
}

// prepareOrderDir creates the directory of an order and drops temp files left
// by an interrupted shard write.
func prepareOrderDir(outputDir string, order int) error {
	dir := orderDir(outputDir, order)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return errors.Wrapf(err, "create order directory %s", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "list order directory %s", dir)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return errors.Wrap(err, "remove stale temp file")
		}
	}
	return nil
}

func shardExists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, errors.Wrapf(err, "stat shard %s", path)
	}
}

// writeShard writes data to a temp file next to path and renames it into
// place, so path only ever holds a complete shard.
func writeShard(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, tmpPrefix+"*")
	if err != nil {
		return errors.Wrap(err, "create temp shard")
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(shardPerm); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "chmod shard")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "write shard")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "sync shard")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "close shard")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "rename shard")
	}
	return nil
}
