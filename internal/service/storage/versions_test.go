package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
)

func TestRestoreCapturesCurrentBytesFirst(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec := mustUpload(t, svc, testUser, "Research", "notes.docx", "draft one")
	mustUpload(t, svc, testUser, "Research", "notes.docx", "draft two")

	versions, err := svc.ListVersions(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("len(versions) = %d, want 1", len(versions))
	}

	// Restoring version 1 must first snapshot "draft two" as version 2,
	// then put "draft one" back on disk.
	updated, err := svc.RestoreVersion(ctx, testUser, rec.ID, versions[0].ID)
	if err != nil {
		t.Fatalf("RestoreVersion: %v", err)
	}
	if updated.Size != int64(len("draft one")) {
		t.Errorf("Size = %d, want %d", updated.Size, len("draft one"))
	}

	path, _, err := svc.Download(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	live, _ := os.ReadFile(path)
	if string(live) != "draft one" {
		t.Errorf("live = %q, want %q", live, "draft one")
	}

	after, err := svc.ListVersions(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(after) != 2 {
		t.Fatalf("len(versions) after restore = %d, want 2 (restore must never shrink the chain)", len(after))
	}
	compensating, _ := os.ReadFile(after[0].StoredPath)
	if string(compensating) != "draft two" {
		t.Errorf("compensating snapshot = %q, want %q", compensating, "draft two")
	}
}

func TestRestoreRejectsForeignVersion(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	recA := mustUpload(t, svc, testUser, "Research", "a.pdf", "a1")
	mustUpload(t, svc, testUser, "Research", "a.pdf", "a2")
	recB := mustUpload(t, svc, testUser, "Research", "b.pdf", "b1")

	versionsA, err := svc.ListVersions(ctx, recA.ID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}

	_, err = svc.RestoreVersion(ctx, testUser, recB.ID, versionsA[0].ID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound for cross-file version id", err)
	}
}

func TestRestoreForbiddenForUnrelatedUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec := mustUpload(t, svc, testUser, "Research", "a.pdf", "a1")
	mustUpload(t, svc, testUser, "Research", "a.pdf", "a2")
	versions, _ := svc.ListVersions(ctx, rec.ID)

	stranger := testAdmin
	stranger.IsAdmin = false
	stranger.UserID = 99
	if _, err := svc.RestoreVersion(ctx, stranger, rec.ID, versions[0].ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}

	// Admins can restore anyone's file.
	if _, err := svc.RestoreVersion(ctx, testAdmin, rec.ID, versions[0].ID); err != nil {
		t.Fatalf("admin restore: %v", err)
	}
}

func TestSnapshotNamingAndPlacement(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec := mustUpload(t, svc, testUser, "Training", "deck.pptx", "old")
	mustUpload(t, svc, testUser, "Training", "deck.pptx", "new")

	versions, err := svc.ListVersions(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	v := versions[0]

	if filepath.Dir(v.StoredPath) != svc.resolver.VersionsDir() {
		t.Errorf("snapshot dir = %q, want %q", filepath.Dir(v.StoredPath), svc.resolver.VersionsDir())
	}
	base := filepath.Base(v.StoredPath)
	if !strings.HasSuffix(base, "_deck.pptx") {
		t.Errorf("snapshot name %q does not end with original filename", base)
	}
	parts := strings.SplitN(base, "_", 4)
	if len(parts) != 4 || parts[0] == "" || parts[1] != "1" || len(parts[2]) != 8 {
		t.Errorf("snapshot name %q does not match id_version_tag_filename", base)
	}

	// Snapshots must never appear in folder listings.
	entries, err := svc.List(ctx, testUser, "Training")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(entryName(e), parts[2]) {
			t.Errorf("snapshot %q leaked into listing", entryName(e))
		}
	}
}

func TestDeleteRemovesSnapshots(t *testing.T) {
	svc, _, versions := newTestService(t)
	ctx := context.Background()

	rec := mustUpload(t, svc, testUser, "Training", "deck.pptx", "old")
	mustUpload(t, svc, testUser, "Training", "deck.pptx", "new")

	chain, _ := svc.ListVersions(ctx, rec.ID)
	snapshotPath := chain[0].StoredPath

	if err := svc.Delete(ctx, testUser, rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(snapshotPath); !os.IsNotExist(err) {
		t.Errorf("snapshot %q still on disk after delete", snapshotPath)
	}
	if n, _ := versions.CountByFileID(ctx, rec.ID); n != 0 {
		t.Errorf("version rows remain after delete: %d", n)
	}
}
