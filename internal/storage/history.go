package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"

	"github.com/lecternapp/lectern/cms"
	"github.com/lecternapp/lectern/internal/atomicfile"
)

// snapshotOf records the document's state for the history store.
func snapshotOf(doc *cms.Document) *cms.VersionSnapshot {
	return &cms.VersionSnapshot{
		Version:   doc.Metadata.Version,
		CreatedAt: doc.Metadata.LastModified,
		Title:     doc.Title,
		Body:      doc.Body,
	}
}

// appendSnapshot writes an immutable snapshot file, creating the slug's
// history directory on first use. Snapshots are never rewritten: each
// version number maps to exactly one file, written once.
func (s *ArticleStore) appendSnapshot(slug string, snap *cms.VersionSnapshot) error {
	if err := os.MkdirAll(s.historyDir(slug), dirPerm); err != nil {
		return fmt.Errorf("create history dir for %s: %w", slug, err)
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot v%d of %s: %w", snap.Version, slug, err)
	}
	return atomicfile.WriteFile(s.snapshotPath(slug, snap.Version), raw, filePerm)
}

// GetHistory lists all snapshots for slug ordered newest-first. A slug
// with no history yields an empty list, never an error.
func (s *ArticleStore) GetHistory(slug string) ([]*cms.VersionSnapshot, error) {
	entries, err := os.ReadDir(s.historyDir(slug))
	if errors.Is(err, fs.ErrNotExist) {
		return []*cms.VersionSnapshot{}, nil
	}
	if err != nil {
		return nil, cms.NewOpError(cms.CodeNotFound, "failed to list version history", err)
	}

	snaps := make([]*cms.VersionSnapshot, 0, len(entries))
	for _, entry := range entries {
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "v%d.json", &version); err != nil {
			continue
		}
		snap, err := s.readSnapshot(slug, version)
		if err != nil {
			slog.Warn("skipping unreadable snapshot", "slug", slug, "version", version, "error", err)
			continue
		}
		snaps = append(snaps, snap)
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].Version > snaps[j].Version
	})
	return snaps, nil
}

// GetVersion retrieves one snapshot by number.
func (s *ArticleStore) GetVersion(slug string, version int) (*cms.VersionSnapshot, error) {
	snap, err := s.readSnapshot(slug, version)
	if errors.Is(err, fs.ErrNotExist) {
		msg := fmt.Sprintf("version %d of %q not found", version, slug)
		return nil, cms.NewOpError(cms.CodeNotFound, msg, cms.ErrVersionNotFound)
	}
	if err != nil {
		return nil, cms.NewOpError(cms.CodeNotFound, "failed to read version snapshot", err)
	}
	return snap, nil
}

func (s *ArticleStore) readSnapshot(slug string, version int) (*cms.VersionSnapshot, error) {
	raw, err := os.ReadFile(s.snapshotPath(slug, version))
	if err != nil {
		return nil, err
	}
	snap := &cms.VersionSnapshot{}
	if err := json.Unmarshal(raw, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot v%d of %s: %w", version, slug, err)
	}
	return snap, nil
}
