package config

// Request and storage limits.
const (
	MaxFilenameLength = 255
	MaxFolderDepth    = 16
	MaxInstructionLen = 2000

	// DefaultPageSize / MaxPageSize bound paginated listings.
	DefaultPageSize = 100
	MaxPageSize     = 500

	// SnapshotTagLength is the length of the random disambiguator embedded in
	// version snapshot filenames.
	SnapshotTagLength = 8
)
