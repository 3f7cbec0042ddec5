package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/smallbiznis/memberhud/internal/config"
	"github.com/smallbiznis/memberhud/internal/membership/domain"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("snapshot_not_found")

// Source loads the most recent membership snapshot of a community.
type Source interface {
	Load(ctx context.Context, community string) (domain.Snapshot, error)
}

// FileSource reads <dir>/<community>.json as written by the fetcher.
type FileSource struct {
	dir string
	log *zap.Logger
}

func NewFileSource(cfg config.Config, log *zap.Logger) *FileSource {
	return &FileSource{
		dir: cfg.Sync.SnapshotDir,
		log: log.Named("snapshot"),
	}
}

func (s *FileSource) Path(community string) string {
	return filepath.Join(s.dir, community+".json")
}

func (s *FileSource) Load(ctx context.Context, community string) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}
	community = strings.TrimSpace(community)
	if community == "" || strings.ContainsAny(community, `/\`) {
		return domain.Snapshot{}, fmt.Errorf("%w: %q", ErrNotFound, community)
	}

	path := s.Path(community)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return domain.Snapshot{}, err
	}
	defer f.Close()

	var snap domain.Snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if snap.Community == "" {
		snap.Community = community
	}

	s.log.Debug("snapshot loaded",
		zap.String("community", community),
		zap.Int("active", len(snap.Active)),
		zap.Int("churned", len(snap.Churned)),
		zap.Int("cancelling", len(snap.Cancelling)),
	)
	return snap, nil
}
