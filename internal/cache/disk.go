package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DiskTileBackend is the durable fallback tier: one file per tile under a
// flat directory, expiry derived from the file's mtime.
type DiskTileBackend struct {
	dir string
	ttl time.Duration
}

func NewDiskTileBackend(dir string, ttl time.Duration) (*DiskTileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating tile cache dir: %w", err)
	}
	return &DiskTileBackend{dir: dir, ttl: ttl}, nil
}

func (d *DiskTileBackend) Store(_ context.Context, tileID string, data []byte) error {
	path := d.path(tileID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing tile file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming tile file: %w", err)
	}
	return nil
}

func (d *DiskTileBackend) Fetch(_ context.Context, tileID string) ([]byte, bool, error) {
	path := d.path(tileID)
	if !d.fresh(path) {
		return nil, false, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading tile file: %w", err)
	}
	return data, true, nil
}

func (d *DiskTileBackend) Existing(_ context.Context, tileIDs []string) ([]string, error) {
	existing := make([]string, 0, len(tileIDs))
	for _, id := range tileIDs {
		if d.fresh(d.path(id)) {
			existing = append(existing, id)
		}
	}
	return existing, nil
}

func (d *DiskTileBackend) Ping(_ context.Context) error {
	_, err := os.Stat(d.dir)
	return err
}

// fresh reports whether the file exists and is within TTL; expired files are
// removed opportunistically.
func (d *DiskTileBackend) fresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if time.Since(info.ModTime()) > d.ttl {
		_ = os.Remove(path)
		return false
	}
	return true
}

func (d *DiskTileBackend) path(tileID string) string {
	return filepath.Join(d.dir, tileID+".png")
}
