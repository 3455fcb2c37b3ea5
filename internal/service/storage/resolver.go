package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/HaronZ/cdrrmo-file-manager/internal/config"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
)

// RootFolder is the canonical key for the storage root.
const RootFolder = "/"

// Resolver maps folder keys and filenames to absolute paths confined to the
// storage root. Every client-supplied path component passes through here
// before it touches the filesystem.
type Resolver struct {
	root     string // absolute storage root
	versions string // absolute snapshot directory, outside the root
}

// NewResolver builds a resolver over the storage root and versions directory.
// Both are made absolute; the versions directory must not live inside the
// root or snapshots would show up in listings.
func NewResolver(root, versionsDir string) (*Resolver, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	absVersions, err := filepath.Abs(versionsDir)
	if err != nil {
		return nil, fmt.Errorf("resolve versions dir: %w", err)
	}
	if absVersions == absRoot || strings.HasPrefix(absVersions, absRoot+string(filepath.Separator)) {
		return nil, fmt.Errorf("versions dir %q must not be inside storage root %q", absVersions, absRoot)
	}
	return &Resolver{root: absRoot, versions: absVersions}, nil
}

// Root returns the absolute storage root.
func (rs *Resolver) Root() string { return rs.root }

// VersionsDir returns the absolute snapshot directory.
func (rs *Resolver) VersionsDir() string { return rs.versions }

// NormalizeFolder canonicalizes a client-supplied folder key. The root is
// always "/"; every other folder is a slash-joined relative path with no
// empty, "." or ".." segments.
func (rs *Resolver) NormalizeFolder(raw string) (string, error) {
	key := strings.ReplaceAll(strings.TrimSpace(raw), "\\", "/")
	key = strings.Trim(key, "/")
	if key == "" {
		return RootFolder, nil
	}

	segments := strings.Split(key, "/")
	if len(segments) > config.MaxFolderDepth {
		return "", &domain.InvalidPathError{Message: fmt.Sprintf("Folder nesting exceeds %d levels", config.MaxFolderDepth)}
	}
	for _, seg := range segments {
		if err := validateSegment(seg); err != nil {
			return "", err
		}
	}
	return strings.Join(segments, "/"), nil
}

// FolderPath resolves a normalized folder key to an absolute directory path.
func (rs *Resolver) FolderPath(folder string) (string, error) {
	if folder == RootFolder {
		return rs.root, nil
	}
	return rs.confine(filepath.Join(rs.root, filepath.FromSlash(folder)))
}

// FilePath resolves a folder key and filename to an absolute file path.
func (rs *Resolver) FilePath(folder, filename string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	dir, err := rs.FolderPath(folder)
	if err != nil {
		return "", err
	}
	return rs.confine(filepath.Join(dir, filename))
}

// FolderKey converts an absolute directory path under the root back to its
// folder key. The root itself maps to "/".
func (rs *Resolver) FolderKey(absDir string) (string, error) {
	rel, err := filepath.Rel(rs.root, absDir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &domain.InvalidPathError{Message: "Path escapes the storage root"}
	}
	if rel == "." {
		return RootFolder, nil
	}
	return filepath.ToSlash(rel), nil
}

// SubfolderKey joins a child directory name onto a folder key.
func SubfolderKey(parent, name string) string {
	if parent == RootFolder {
		return name
	}
	return parent + "/" + name
}

// confine verifies the cleaned path stays under the storage root.
func (rs *Resolver) confine(p string) (string, error) {
	clean := filepath.Clean(p)
	if clean != rs.root && !strings.HasPrefix(clean, rs.root+string(filepath.Separator)) {
		return "", &domain.InvalidPathError{Message: "Path escapes the storage root"}
	}
	return clean, nil
}

// ValidateFilename rejects names that could traverse directories or break
// the snapshot naming scheme.
func ValidateFilename(name string) error {
	if name == "" {
		return &domain.ValidationError{Message: "Filename must not be empty"}
	}
	if len(name) > config.MaxFilenameLength {
		return &domain.ValidationError{Message: fmt.Sprintf("Filename exceeds %d characters", config.MaxFilenameLength)}
	}
	if name == "." || name == ".." {
		return &domain.InvalidPathError{Message: "Invalid filename"}
	}
	if strings.ContainsAny(name, "/\\") || strings.ContainsRune(name, 0) {
		return &domain.InvalidPathError{Message: "Filename must not contain path separators"}
	}
	return nil
}

func validateSegment(seg string) error {
	if seg == "" || seg == "." || seg == ".." {
		return &domain.InvalidPathError{Message: "Folder path contains invalid segment"}
	}
	if strings.ContainsRune(seg, 0) {
		return &domain.InvalidPathError{Message: "Folder path contains invalid segment"}
	}
	return nil
}
