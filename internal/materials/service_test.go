package materials

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/RK2301/classify-backend/internal/apierr"
	"github.com/RK2301/classify-backend/internal/broker"
	"github.com/RK2301/classify-backend/internal/repos"
	"github.com/RK2301/classify-backend/internal/testutil"
	"github.com/RK2301/classify-backend/internal/types"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	models, _ := Migration()
	db := testutil.DB(t, models...)
	log := testutil.Logger(t)
	pub := broker.NewMemoryPublisher()
	svc := NewService(db, log, pub,
		repos.NewMaterialRepo(db, log),
		repos.NewMaterialFileRepo(db, log),
		repos.NewCourseRefRepo(db, log),
	)
	return svc, db
}

func seedCourseRef(t *testing.T, db *gorm.DB, id uint) {
	t.Helper()
	ref := &types.CourseRef{
		ID:        id,
		Title:     "Algebra I",
		StartDate: time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC),
		Version:   1,
	}
	if err := db.Create(ref).Error; err != nil {
		t.Fatalf("seed course ref: %v", err)
	}
}

func TestCreateMaterialWithFiles(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedCourseRef(t, db, 1)

	material, err := svc.CreateMaterial(ctx, 1, "Week 1 slides", "intro", []FileInput{
		{FileName: "slides.pdf", MimeType: "application/pdf", SizeBytes: 1024, StorageKey: "materials/1/slides.pdf"},
		{FileName: "notes.md", MimeType: "text/markdown", SizeBytes: 64, StorageKey: "materials/1/notes.md"},
	})
	if err != nil {
		t.Fatalf("CreateMaterial: %v", err)
	}
	if material.Version != 1 {
		t.Fatalf("material version = %d", material.Version)
	}

	var files int64
	if err := db.Model(&types.MaterialFile{}).Where("material_id = ?", material.ID).Count(&files).Error; err != nil {
		t.Fatalf("count files: %v", err)
	}
	if files != 2 {
		t.Fatalf("files = %d, want 2", files)
	}

	// Unknown course: nothing gets written.
	if _, err := svc.CreateMaterial(ctx, 99, "orphan", "", nil); !apierr.IsNotFound(err) {
		t.Fatalf("unknown course: %v", err)
	}
	var materials int64
	if err := db.Model(&types.Material{}).Count(&materials).Error; err != nil {
		t.Fatalf("count materials: %v", err)
	}
	if materials != 1 {
		t.Fatalf("materials = %d, want 1", materials)
	}
}

func TestUpdateMaterialVersioning(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedCourseRef(t, db, 1)

	material, err := svc.CreateMaterial(ctx, 1, "Week 1 slides", "", nil)
	if err != nil {
		t.Fatalf("CreateMaterial: %v", err)
	}

	title := "Week 1 slides (revised)"
	material, err = svc.UpdateMaterial(ctx, material.ID, types.MaterialPatch{Title: &title})
	if err != nil {
		t.Fatalf("UpdateMaterial: %v", err)
	}
	if material.Version != 2 {
		t.Fatalf("version = %d, want 2", material.Version)
	}

	// Same title again: version stays put.
	material, err = svc.UpdateMaterial(ctx, material.ID, types.MaterialPatch{Title: &title})
	if err != nil {
		t.Fatalf("no-op UpdateMaterial: %v", err)
	}
	if material.Version != 2 {
		t.Fatalf("no-op bumped version to %d", material.Version)
	}
}

func TestDeleteMaterialRemovesFiles(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedCourseRef(t, db, 1)

	material, err := svc.CreateMaterial(ctx, 1, "Week 1 slides", "", []FileInput{
		{FileName: "slides.pdf", MimeType: "application/pdf", SizeBytes: 1024, StorageKey: "materials/1/slides.pdf"},
	})
	if err != nil {
		t.Fatalf("CreateMaterial: %v", err)
	}

	if err := svc.DeleteMaterial(ctx, material.ID); err != nil {
		t.Fatalf("DeleteMaterial: %v", err)
	}
	var files int64
	if err := db.Model(&types.MaterialFile{}).Count(&files).Error; err != nil {
		t.Fatalf("count files: %v", err)
	}
	if files != 0 {
		t.Fatalf("files left behind: %d", files)
	}
}

func TestAddAndRemoveFiles(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedCourseRef(t, db, 1)

	material, err := svc.CreateMaterial(ctx, 1, "Week 1 slides", "", nil)
	if err != nil {
		t.Fatalf("CreateMaterial: %v", err)
	}

	if _, err := svc.AddFiles(ctx, material.ID, nil); !apierr.IsValidation(err) {
		t.Fatalf("empty AddFiles: %v", err)
	}

	rows, err := svc.AddFiles(ctx, material.ID, []FileInput{
		{FileName: "ex.pdf", MimeType: "application/pdf", SizeBytes: 10, StorageKey: "materials/1/ex.pdf"},
	})
	if err != nil {
		t.Fatalf("AddFiles: %v", err)
	}
	if len(rows) != 1 || rows[0].ID == 0 {
		t.Fatalf("rows = %+v", rows)
	}

	if err := svc.RemoveFile(ctx, material.ID, rows[0].ID); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	if err := svc.RemoveFile(ctx, material.ID, rows[0].ID); !apierr.IsNotFound(err) {
		t.Fatalf("removing a removed file: %v", err)
	}
	var count int64
	if err := db.Model(&types.MaterialFile{}).Count(&count).Error; err != nil {
		t.Fatalf("count files: %v", err)
	}
	if count != 0 {
		t.Fatalf("files = %d, want 0", count)
	}
}
