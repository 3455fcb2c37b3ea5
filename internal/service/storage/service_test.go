package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
)

func TestAssignAndClear(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec := mustUpload(t, svc, testAdmin, "Operation", "task.pdf", "x")
	due := time.Now().Add(48 * time.Hour)

	updated, err := svc.Assign(ctx, testAdmin, rec.ID,
		models.SetInt64(testUser.UserID), models.SetString("fill this in"), models.SetTime(due))
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if updated.AssignedToID == nil || *updated.AssignedToID != testUser.UserID {
		t.Errorf("AssignedToID = %v, want %d", updated.AssignedToID, testUser.UserID)
	}
	if updated.Instruction == nil || *updated.Instruction != "fill this in" {
		t.Errorf("Instruction = %v", updated.Instruction)
	}
	if updated.DueDate == nil {
		t.Error("DueDate not set")
	}
	if updated.Status != models.StatusPending {
		t.Errorf("Status = %q, want %q", updated.Status, models.StatusPending)
	}

	// Explicit nulls clear; absent fields stay.
	cleared, err := svc.Assign(ctx, testAdmin, rec.ID,
		models.OptionalInt64{Present: true}, models.OptionalString{}, models.OptionalTime{Present: true})
	if err != nil {
		t.Fatalf("Assign clear: %v", err)
	}
	if cleared.AssignedToID != nil {
		t.Errorf("AssignedToID = %v, want nil", cleared.AssignedToID)
	}
	if cleared.DueDate != nil {
		t.Errorf("DueDate = %v, want nil", cleared.DueDate)
	}
	if cleared.Instruction == nil || *cleared.Instruction != "fill this in" {
		t.Errorf("absent instruction field was changed: %v", cleared.Instruction)
	}

	if _, err := svc.Assign(ctx, testUser, rec.ID, models.SetInt64(5), models.OptionalString{}, models.OptionalTime{}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-admin assign error = %v, want ErrForbidden", err)
	}
}

func TestAssignNotifiesAssignee(t *testing.T) {
	svc, _, _ := newTestService(t)
	sink := &recordingSink{}
	svc.events = sink
	ctx := context.Background()

	rec := mustUpload(t, svc, testAdmin, "Operation", "task.pdf", "x")
	if _, err := svc.Assign(ctx, testAdmin, rec.ID, models.SetInt64(testUser.UserID), models.OptionalString{}, models.OptionalTime{}); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	n, ok := sink.find(models.NotificationTaskAssigned)
	if !ok {
		t.Fatalf("notifications = %v, want %q", sink.notifications, models.NotificationTaskAssigned)
	}
	if n.userID != testUser.UserID {
		t.Errorf("notified user %d, want %d", n.userID, testUser.UserID)
	}
	if n.urgent {
		t.Error("assignment without due date marked urgent")
	}
}

func TestAssignWithDueDateIsUrgent(t *testing.T) {
	svc, _, _ := newTestService(t)
	sink := &recordingSink{}
	svc.events = sink
	ctx := context.Background()

	rec := mustUpload(t, svc, testAdmin, "Operation", "urgent.pdf", "x")
	due := time.Now().Add(12 * time.Hour)
	if _, err := svc.Assign(ctx, testAdmin, rec.ID, models.SetInt64(testUser.UserID), models.OptionalString{}, models.SetTime(due)); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	n, ok := sink.find(models.NotificationTaskAssigned)
	if !ok {
		t.Fatal("no assignment notification")
	}
	if !n.urgent {
		t.Error("assignment with due date not marked urgent")
	}
}

func TestUpdateStatusPermissions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec := mustUpload(t, svc, testUser, "Operation", "task.pdf", "x")
	assignee := models.Identity{UserID: 7}
	stranger := models.Identity{UserID: 8}

	if _, err := svc.Assign(ctx, testAdmin, rec.ID, models.SetInt64(assignee.UserID), models.OptionalString{}, models.OptionalTime{}); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	tests := []struct {
		name    string
		actor   models.Identity
		wantErr bool
	}{
		{name: "owner", actor: testUser},
		{name: "assignee", actor: assignee},
		{name: "admin", actor: testAdmin},
		{name: "stranger", actor: stranger, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateStatus(ctx, tt.actor, rec.ID, models.StatusDone)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrForbidden) {
					t.Fatalf("error = %v, want ErrForbidden", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateStatus: %v", err)
			}
		})
	}
}

func TestRenameMovesBytesAndKeepsVersions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec := mustUpload(t, svc, testUser, "Operation", "old.pdf", "v1")
	mustUpload(t, svc, testUser, "Operation", "old.pdf", "v2")

	renamed, err := svc.Rename(ctx, testUser, rec.ID, "new.pdf")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if renamed.Filename != "new.pdf" {
		t.Errorf("Filename = %q, want new.pdf", renamed.Filename)
	}

	path, _, err := svc.Download(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Download after rename: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "v2" {
		t.Errorf("content = %q, want v2", data)
	}

	versions, err := svc.ListVersions(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 1 {
		t.Errorf("rename lost the version chain: %d versions", len(versions))
	}

	if _, err := svc.Rename(ctx, testUser, rec.ID, "bad.exe"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("rename to disallowed extension: error = %v, want ErrValidation", err)
	}
}

func TestRenameConflict(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a := mustUpload(t, svc, testUser, "Operation", "a.pdf", "a")
	mustUpload(t, svc, testUser, "Operation", "b.pdf", "b")

	if _, err := svc.Rename(ctx, testUser, a.ID, "b.pdf"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
}

func TestDeletePermissions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec := mustUpload(t, svc, testUser, "Operation", "x.pdf", "x")
	stranger := models.Identity{UserID: 42}

	if err := svc.Delete(ctx, stranger, rec.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("stranger delete error = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(ctx, testUser, rec.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := svc.files.GetByID(ctx, rec.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("record still present: %v", err)
	}
}

func TestCreateAndDeleteDirectory(t *testing.T) {
	svc, files, _ := newTestService(t)
	ctx := context.Background()

	dir, err := svc.CreateDirectory(ctx, testUser, "Operation", "Reports")
	if err != nil {
		t.Fatalf("CreateDirectory: %v", err)
	}
	if !dir.IsDir {
		t.Error("record not marked as directory")
	}
	mustUpload(t, svc, testUser, "Operation/Reports", "a.pdf", "a")

	if _, err := svc.CreateDirectory(ctx, testUser, "Operation", "Reports"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate dir error = %v, want ErrConflict", err)
	}

	if _, err := svc.DeleteDirectory(ctx, testUser, "Operation/Reports"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-admin delete dir error = %v, want ErrForbidden", err)
	}
	removed, err := svc.DeleteDirectory(ctx, testAdmin, "Operation/Reports")
	if err != nil {
		t.Fatalf("DeleteDirectory: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2 (file and directory records)", removed)
	}

	all, _ := files.ListAll(ctx)
	for _, rec := range all {
		if rec.Folder == "Operation/Reports" || rec.Filename == "Reports" {
			t.Errorf("record survived directory delete: %+v", rec)
		}
	}
	if _, err := svc.DeleteDirectory(ctx, testAdmin, "/"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("root delete error = %v, want ErrValidation", err)
	}
}

func TestPreviewAllowlist(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	pdf := mustUpload(t, svc, testUser, "Operation", "ok.pdf", "pdf bytes")
	doc := mustUpload(t, svc, testUser, "Operation", "no.docx", "doc bytes")

	if _, _, err := svc.Preview(ctx, pdf.ID); err != nil {
		t.Fatalf("Preview pdf: %v", err)
	}
	if _, _, err := svc.Preview(ctx, doc.ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Preview docx error = %v, want ErrValidation", err)
	}
}

func TestDetailsIncludesVersionCount(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec := mustUpload(t, svc, testUser, "Operation", "d.pdf", "1")
	mustUpload(t, svc, testUser, "Operation", "d.pdf", "22")
	mustUpload(t, svc, testUser, "Operation", "d.pdf", "333")

	got, count, err := svc.Details(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if count != 2 {
		t.Errorf("version count = %d, want 2", count)
	}
	if got.Size != 3 {
		t.Errorf("Size = %d, want 3 (refreshed from disk)", got.Size)
	}
}

func TestMine(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	mine := mustUpload(t, svc, testUser, "Operation", "mine.pdf", "m")
	other := mustUpload(t, svc, testAdmin, "Operation", "other.pdf", "o")
	assigned := mustUpload(t, svc, testAdmin, "Operation", "assigned.pdf", "a")
	if _, err := svc.Assign(ctx, testAdmin, assigned.ID, models.SetInt64(testUser.UserID), models.OptionalString{}, models.OptionalTime{}); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	recs, err := svc.Mine(ctx, testUser)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	ids := make(map[int64]bool)
	for _, r := range recs {
		ids[r.ID] = true
	}
	if !ids[mine.ID] || !ids[assigned.ID] || ids[other.ID] {
		t.Errorf("Mine ids = %v, want owned and assigned only", ids)
	}
}
