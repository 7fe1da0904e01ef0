package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bft-labs/stationd/internal/domain"
)

const statsFileName = "station.json"

// StatsFileRepository implements ports.StateRepository using a JSON file.
type StatsFileRepository struct {
	dir string
}

// NewStatsFileRepository creates a repository storing station.json in dir.
func NewStatsFileRepository(dir string) *StatsFileRepository {
	return &StatsFileRepository{dir: dir}
}

// Load retrieves the last saved stats from disk.
// Returns zero stats and nil error if no file exists.
func (r *StatsFileRepository) Load(ctx context.Context) (domain.Stats, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Stats{}, nil
		}
		return domain.Stats{}, err
	}

	var stats domain.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return domain.Stats{}, fmt.Errorf("decode %s: %w", r.Path(), err)
	}
	return stats, nil
}

// Save persists stats atomically (temp file, then rename).
func (r *StatsFileRepository) Save(ctx context.Context, stats domain.Stats) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the stats file.
func (r *StatsFileRepository) Path() string {
	return filepath.Join(r.dir, statsFileName)
}
