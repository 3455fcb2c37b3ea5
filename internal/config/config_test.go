package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid",
			cfg:  Config{DatabaseURL: "postgres://x", SecretKey: "0123456789abcdef0123456789abcdef"},
		},
		{
			name:    "missing database url",
			cfg:     Config{SecretKey: "0123456789abcdef0123456789abcdef"},
			wantErr: true,
		},
		{
			name:    "missing secret",
			cfg:     Config{DatabaseURL: "postgres://x"},
			wantErr: true,
		},
		{
			name:    "short secret",
			cfg:     Config{DatabaseURL: "postgres://x", SecretKey: "short"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitExtensions(t *testing.T) {
	got := splitExtensions("pdf, .DOCX ,xlsx,,")
	want := []string{".pdf", ".docx", ".xlsx"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCORSOriginList(t *testing.T) {
	cfg := Config{CORSOrigins: "http://a.test, http://b.test ,"}
	got := cfg.CORSOriginList()
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Errorf("CORSOriginList() = %v", got)
	}
}

func TestLoadDepartmentsMissingFileUsesDefaults(t *testing.T) {
	deps, err := LoadDepartments(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadDepartments: %v", err)
	}
	if len(deps.Folders) != 3 {
		t.Errorf("Folders = %v, want 3 defaults", deps.Folders)
	}
}

func TestLoadDepartmentsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "departments.yaml")
	if err := os.WriteFile(path, []byte("folders:\n  - Admin\n  - Field\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	deps, err := LoadDepartments(path)
	if err != nil {
		t.Fatalf("LoadDepartments: %v", err)
	}
	if len(deps.Folders) != 2 || deps.Folders[0] != "Admin" || deps.Folders[1] != "Field" {
		t.Errorf("Folders = %v", deps.Folders)
	}
}
