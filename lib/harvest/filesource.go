package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/crmvault/crmvault/lib/records"
)

// --------------------------------------------------------------------------
// File Source
// --------------------------------------------------------------------------

// FileSource yields one page per export file. Each file holds a JSON array
// of flat record objects. Files are visited in lexicographic order so
// date-stamped export names replay deterministically.
type FileSource struct {
	entity records.EntityType
	paths  []string
	next   int
}

// NewFileSource creates a FileSource over the given export files.
func NewFileSource(entity records.EntityType, paths []string) (*FileSource, error) {
	if !entity.Valid() {
		return nil, fmt.Errorf("unknown entity type %q", entity)
	}
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	return &FileSource{entity: entity, paths: sorted}, nil
}

// Entity implements Source.
func (s *FileSource) Entity() records.EntityType { return s.entity }

// NextPage implements Source.
func (s *FileSource) NextPage(_ context.Context) ([]records.Record, bool, error) {
	if s.next >= len(s.paths) {
		return nil, false, nil
	}
	path := s.paths[s.next]
	s.next++

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read export %q: %w", path, err)
	}
	var page []records.Record
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, false, fmt.Errorf("parse export %q: %w", path, err)
	}
	return page, s.next < len(s.paths), nil
}
