package models

import (
	"encoding/json"
	"hash/adler32"
	"time"
)

// Well-known file statuses. Status is free-form; these are the values the
// system itself writes.
const (
	StatusPending   = "Pending"
	StatusDone      = "Done"
	StatusSynced    = "Synced"
	StatusUnindexed = "Unindexed"
)

// FileMetadata is the persisted record of one logical file. The (folder,
// filename) pair is unique among persisted records. Size is refreshed from
// disk on read; the database owns everything else.
type FileMetadata struct {
	ID           int64      `json:"id" db:"id"`
	Filename     string     `json:"filename" db:"filename"`
	Folder       string     `json:"folder" db:"folder"` // "/" = root, else normalized relative path
	OwnerID      int64      `json:"owner_id" db:"owner_id"`
	AssignedToID *int64     `json:"assigned_to_id" db:"assigned_to_id"`
	Instruction  *string    `json:"instruction" db:"instruction"`
	Status       string     `json:"status" db:"status"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	DueDate      *time.Time `json:"due_date" db:"due_date"`
	Size         int64      `json:"size" db:"size"`
	IsDir        bool       `json:"is_dir" db:"is_dir"`
}

// FileVersion is an immutable snapshot of a file's bytes, captured before a
// mutating write. Version numbers are unique and strictly increasing per file.
type FileVersion struct {
	ID            int64     `json:"id" db:"id"`
	FileID        int64     `json:"file_id" db:"file_id"`
	VersionNumber int       `json:"version_number" db:"version_number"`
	Filename      string    `json:"filename" db:"filename"`
	StoredPath    string    `json:"stored_path" db:"stored_path"`
	Size          int64     `json:"size" db:"size"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	CreatedByID   int64     `json:"created_by_id" db:"created_by_id"`
}

// TransientEntry is a synthesized, never-persisted record for a disk entity
// with no database row: directories, and files found by search that listing
// has not yet indexed.
type TransientEntry struct {
	Filename  string
	Folder    string
	AbsPath   string
	Size      int64
	CreatedAt time.Time
	IsDir     bool
	Status    string
}

// SyntheticID derives a stable negative id from the entry's absolute path.
// Negative ids can never collide with persisted (positive) ids, and the same
// path always yields the same id so frontend keys stay stable across reads.
func (t *TransientEntry) SyntheticID() int64 {
	sum := int64(adler32.Checksum([]byte(t.AbsPath)))
	if sum < 0 {
		sum = -sum
	}
	return -sum
}

// Entry is the tagged union returned by listings and search: exactly one of
// Record (persisted) or Transient (synthesized) is set.
type Entry struct {
	Record    *FileMetadata
	Transient *TransientEntry
}

// IndexedEntry wraps a persisted record.
func IndexedEntry(rec *FileMetadata) Entry { return Entry{Record: rec} }

// UnindexedEntry wraps a transient entry.
func UnindexedEntry(t *TransientEntry) Entry { return Entry{Transient: t} }

// MarshalJSON renders both variants in the FileMetadata wire shape so the
// client sees one homogeneous listing. Transient entries get their synthetic
// negative id and owner_id 0.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Record != nil {
		return json.Marshal(e.Record)
	}
	t := e.Transient
	return json.Marshal(&FileMetadata{
		ID:        t.SyntheticID(),
		Filename:  t.Filename,
		Folder:    t.Folder,
		OwnerID:   0,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		Size:      t.Size,
		IsDir:     t.IsDir,
	})
}

// FileMetadataUpdate carries a partial update applied field-by-field.
// Filename and Folder use nil-means-unchanged pointers; the task fields use
// tri-state Optional values so a client can clear an assignment or due date
// explicitly.
type FileMetadataUpdate struct {
	Filename     *string
	Folder       *string
	AssignedToID OptionalInt64
	Instruction  OptionalString
	Status       *string
	DueDate      OptionalTime
	Size         *int64
}

// FileFilter is the advanced-search filter set. Zero values mean "no filter".
type FileFilter struct {
	Query        string
	Folder       string
	Extension    string // normalized with leading dot, lowercase
	DateFrom     *time.Time
	DateTo       *time.Time
	UploaderID   int64
	Status       string
	AssignedToID int64
	HasDueDate   *bool
	OverdueOnly  bool
	// Non-admin callers are restricted to files they own or are assigned.
	RestrictToUserID int64
	Skip             int
	Limit            int
}
