package storage

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
)

func TestBulkDeleteContinuesPastFailures(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	mine := mustUpload(t, svc, testUser, "Operation", "mine.pdf", "m")
	theirs := mustUpload(t, svc, testAdmin, "Operation", "theirs.pdf", "t")
	alsoMine := mustUpload(t, svc, testUser, "Operation", "also.pdf", "a")

	// A forbidden id and a nonexistent id in the middle must not stop the
	// remaining deletes.
	result := svc.BulkDelete(ctx, testUser, []int64{mine.ID, theirs.ID, 9999, alsoMine.ID})

	if result.Count != 2 || len(result.Succeeded) != 2 {
		t.Fatalf("Count = %d, Succeeded = %v, want 2", result.Count, result.Succeeded)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("Errors = %v, want 2 entries", result.Errors)
	}
	for _, id := range result.Succeeded {
		if id != mine.ID && id != alsoMine.ID {
			t.Errorf("unexpected success for id %d", id)
		}
	}

	// The file the user couldn't delete is untouched.
	if _, err := svc.files.GetByID(ctx, theirs.ID); err != nil {
		t.Errorf("admin's file was deleted: %v", err)
	}
}

func TestBulkMovePartialSuccess(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a := mustUpload(t, svc, testUser, "Operation", "a.pdf", "a")
	b := mustUpload(t, svc, testUser, "Operation", "b.pdf", "b")
	// Occupy the target name so b's move conflicts.
	mustUpload(t, svc, testUser, "Research", "b.pdf", "existing")

	result := svc.BulkMove(ctx, testUser, []int64{a.ID, b.ID}, "Research")

	if result.Count != 1 || len(result.Succeeded) != 1 || result.Succeeded[0] != a.ID {
		t.Errorf("Count = %d, Succeeded = %v, want [%d]", result.Count, result.Succeeded, a.ID)
	}
	if len(result.Errors) != 1 || result.Errors[0].FileID != b.ID {
		t.Fatalf("Errors = %v, want one error for %d", result.Errors, b.ID)
	}

	moved, err := svc.files.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if moved.Folder != "Research" {
		t.Errorf("Folder = %q, want Research", moved.Folder)
	}
	stayed, _ := svc.files.GetByID(ctx, b.ID)
	if stayed.Folder != "Operation" {
		t.Errorf("conflicting file moved anyway: folder = %q", stayed.Folder)
	}
}

func TestBulkAssign(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a := mustUpload(t, svc, testAdmin, "Operation", "a.pdf", "a")
	b := mustUpload(t, svc, testAdmin, "Operation", "b.pdf", "b")

	result := svc.BulkAssign(ctx, testAdmin, []int64{a.ID, b.ID, 404},
		models.SetInt64(7), models.SetString("review these"), models.OptionalTime{})

	if result.Count != 2 || len(result.Succeeded) != 2 || len(result.Errors) != 1 {
		t.Fatalf("result = %+v, want 2 successes and 1 error", result)
	}
	rec, _ := svc.files.GetByID(ctx, a.ID)
	if rec.AssignedToID == nil || *rec.AssignedToID != 7 {
		t.Errorf("AssignedToID = %v, want 7", rec.AssignedToID)
	}
	if rec.Status != models.StatusPending {
		t.Errorf("Status = %q, want %q", rec.Status, models.StatusPending)
	}

	// Non-admins cannot bulk assign.
	denied := svc.BulkAssign(ctx, testUser, []int64{a.ID}, models.SetInt64(7), models.OptionalString{}, models.OptionalTime{})
	if len(denied.Succeeded) != 0 || len(denied.Errors) != 1 {
		t.Fatalf("non-admin result = %+v, want all errors", denied)
	}
}

func TestBulkDownloadZip(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a := mustUpload(t, svc, testUser, "Operation", "a.pdf", "content a")
	b := mustUpload(t, svc, testUser, "Research", "b.docx", "content b")

	var buf bytes.Buffer
	if err := svc.BulkDownload(ctx, &buf, []int64{a.ID, b.ID, 9999}); err != nil {
		t.Fatalf("BulkDownload: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	want := map[string]string{
		"Operation/a.pdf": "content a",
		"Research/b.docx": "content b",
	}
	if len(zr.File) != len(want) {
		t.Fatalf("zip has %d entries, want %d", len(zr.File), len(want))
	}
	for _, f := range zr.File {
		expected, ok := want[f.Name]
		if !ok {
			t.Errorf("unexpected zip entry %q", f.Name)
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %q: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if string(data) != expected {
			t.Errorf("%q = %q, want %q", f.Name, data, expected)
		}
	}
}

func TestBulkDownloadAllMissing(t *testing.T) {
	svc, _, _ := newTestService(t)

	var buf bytes.Buffer
	err := svc.BulkDownload(context.Background(), &buf, []int64{1, 2, 3})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestDownloadDirectoryZip(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	mustUpload(t, svc, testUser, "Operation", "top.pdf", "top")
	if _, err := svc.CreateDirectory(ctx, testUser, "Operation", "Reports"); err != nil {
		t.Fatalf("CreateDirectory: %v", err)
	}
	mustUpload(t, svc, testUser, "Operation/Reports", "deep.pdf", "deep")

	var buf bytes.Buffer
	if err := svc.DownloadDirectory(ctx, &buf, "Operation"); err != nil {
		t.Fatalf("DownloadDirectory: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["top.pdf"] || !names["Reports/deep.pdf"] {
		t.Errorf("zip entries = %v, want top.pdf and Reports/deep.pdf", names)
	}
}
