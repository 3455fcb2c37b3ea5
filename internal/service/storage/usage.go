package storage

import (
	"io/fs"
	"sort"
	"strings"
)

// FolderUsage summarizes one top-level folder's disk footprint.
type FolderUsage struct {
	Folder string `json:"folder"`
	Files  int    `json:"files"`
	Bytes  int64  `json:"bytes"`
}

// DiskUsage walks the storage tree and reports per-department file counts
// and sizes, plus the grand total. Measured from disk, not the index, so it
// reflects what is actually stored.
func (s *Service) DiskUsage() ([]FolderUsage, int64, error) {
	byFolder := make(map[string]*FolderUsage)
	var total int64

	err := s.walkFiles(func(folder, name, absPath string, info fs.FileInfo) {
		top := folder
		if idx := strings.Index(folder, "/"); idx >= 0 && folder != RootFolder {
			top = folder[:idx]
		}
		u, ok := byFolder[top]
		if !ok {
			u = &FolderUsage{Folder: top}
			byFolder[top] = u
		}
		u.Files++
		u.Bytes += info.Size()
		total += info.Size()
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]FolderUsage, 0, len(byFolder))
	for _, u := range byFolder {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Folder < out[j].Folder })
	return out, total, nil
}
