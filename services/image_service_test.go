package services

import (
	"context"
	"testing"
	"time"

	"pixvault/models"
)

func TestListImagesPagination(t *testing.T) {
	setupTestConfig()
	repo := newFakeImageRepo()
	base := time.Now()
	for i := uint(1); i <= 25; i++ {
		seedSearchImage(repo, i, 1, "", nil, nil, base.Add(time.Duration(i)*time.Second))
	}

	svc := NewImageService(fakeTxManager{}, repo, newFakeMetadataRepo(), newFakeStorage())
	out, err := svc.ListImages(context.Background(), 1, 2, 10)
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	if len(out.Images) != 10 {
		t.Fatalf("expected 10 images on page 2, got %d", len(out.Images))
	}
	if out.Images[0].ID != 15 {
		t.Fatalf("expected newest-first ordering across pages, got id=%d", out.Images[0].ID)
	}
	if out.Pagination.Total != 25 || out.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected pagination: %+v", out.Pagination)
	}
	if !out.Pagination.HasNext || !out.Pagination.HasPrev {
		t.Fatalf("page 2 of 3 should have both neighbors")
	}
	if out.Images[0].ThumbnailURL == "" {
		t.Fatalf("list entries must carry a resolved thumbnail URL")
	}
}

func TestListImagesClampsBadParams(t *testing.T) {
	setupTestConfig()
	repo := newFakeImageRepo()
	seedSearchImage(repo, 1, 1, "", nil, nil, time.Now())

	svc := NewImageService(fakeTxManager{}, repo, newFakeMetadataRepo(), newFakeStorage())
	out, err := svc.ListImages(context.Background(), 1, -3, 100000)
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	if out.Pagination.Page != 1 || out.Pagination.PageSize != 20 {
		t.Fatalf("expected clamped defaults, got %+v", out.Pagination)
	}
}

func TestGetImageSignsBothURLs(t *testing.T) {
	setupTestConfig()
	repo := newFakeImageRepo()
	seedSearchImage(repo, 1, 1, "a beach", []string{"beach"}, nil, time.Now())

	svc := NewImageService(fakeTxManager{}, repo, newFakeMetadataRepo(), newFakeStorage())
	view, err := svc.GetImage(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("GetImage failed: %v", err)
	}
	if view.OriginalURL == "" || view.ThumbnailURL == "" {
		t.Fatalf("detail view must sign both original and thumbnail: %+v", view)
	}
	if view.Metadata == nil || view.Metadata.Description != "a beach" {
		t.Fatalf("detail view must include metadata")
	}
}

func TestGetImageNotOwnedIs404(t *testing.T) {
	setupTestConfig()
	repo := newFakeImageRepo()
	seedSearchImage(repo, 1, 2, "", nil, nil, time.Now())

	svc := NewImageService(fakeTxManager{}, repo, newFakeMetadataRepo(), newFakeStorage())
	_, err := svc.GetImage(context.Background(), 1, 1)
	appErr, ok := err.(*AppError)
	if !ok || appErr.HTTPCode != 404 {
		t.Fatalf("another user's image must look like it does not exist, got %v", err)
	}
}

func TestUpdateTagsNormalizes(t *testing.T) {
	setupTestConfig()
	metadata := newFakeMetadataRepo()
	metadata.rows[1] = models.ImageMetadata{ImageID: 1, UserID: 1, AIProcessingStatus: models.AIStatusCompleted}

	svc := NewImageService(fakeTxManager{}, newFakeImageRepo(), metadata, newFakeStorage())
	got, err := svc.UpdateTags(context.Background(), 1, 1, []string{" Sunset ", "BEACH", "beach", "", "sunset"})
	if err != nil {
		t.Fatalf("UpdateTags failed: %v", err)
	}
	want := []string{"sunset", "beach"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	stored := metadata.rows[1].Tags
	if len(stored) != 2 {
		t.Fatalf("normalized tags must replace the stored set, got %v", stored)
	}
}

func TestUpdateTagsUnknownImage(t *testing.T) {
	setupTestConfig()
	svc := NewImageService(fakeTxManager{}, newFakeImageRepo(), newFakeMetadataRepo(), newFakeStorage())

	_, err := svc.UpdateTags(context.Background(), 1, 42, []string{"tag"})
	appErr, ok := err.(*AppError)
	if !ok || appErr.HTTPCode != 404 {
		t.Fatalf("expected 404 for unknown image, got %v", err)
	}
}

func TestDeleteImageRemovesRowsAndObjects(t *testing.T) {
	setupTestConfig()
	repo := newFakeImageRepo()
	seedSearchImage(repo, 1, 1, "", nil, nil, time.Now())
	metadata := newFakeMetadataRepo()
	metadata.rows[1] = models.ImageMetadata{ImageID: 1, UserID: 1}
	store := newFakeStorage()

	svc := NewImageService(fakeTxManager{}, repo, metadata, store)
	if err := svc.DeleteImage(context.Background(), 1, 1); err != nil {
		t.Fatalf("DeleteImage failed: %v", err)
	}

	if _, ok := repo.images[1]; ok {
		t.Fatalf("image row must be gone")
	}
	if _, ok := metadata.rows[1]; ok {
		t.Fatalf("metadata row must be gone")
	}

	// 对象删除在后台进行, 等它落地
	deadline := time.After(2 * time.Second)
	for {
		if len(store.deletedPaths()) == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected both objects deleted, got %v", store.deletedPaths())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestDeleteImageUnknownIs404(t *testing.T) {
	setupTestConfig()
	svc := NewImageService(fakeTxManager{}, newFakeImageRepo(), newFakeMetadataRepo(), newFakeStorage())

	err := svc.DeleteImage(context.Background(), 1, 9)
	appErr, ok := err.(*AppError)
	if !ok || appErr.HTTPCode != 404 {
		t.Fatalf("expected 404, got %v", err)
	}
}
