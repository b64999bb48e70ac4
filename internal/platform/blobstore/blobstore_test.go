package blobstore

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func upload(t *testing.T, s *InMemoryBlobStore, owner, name, contentType, content string) *BlobMetadata {
	t.Helper()
	meta, err := s.Upload(context.Background(), BlobMetadata{
		FileName:    name,
		ContentType: contentType,
		OwnerID:     owner,
	}, strings.NewReader(content))
	if err != nil {
		t.Fatalf("upload %s: %v", name, err)
	}
	return meta
}

func TestUploadComputesHashAndSize(t *testing.T) {
	s := NewInMemoryBlobStore(1 << 20)
	content := "cholesterol panel results"
	meta := upload(t, s, "user-1", "results.pdf", "application/pdf", content)

	if meta.ID == "" {
		t.Error("ID not assigned")
	}
	if meta.Size != int64(len(content)) {
		t.Errorf("size = %d, want %d", meta.Size, len(content))
	}
	want := fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
	if meta.Hash != want {
		t.Errorf("hash = %s, want %s", meta.Hash, want)
	}
	if meta.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestUploadValidation(t *testing.T) {
	s := NewInMemoryBlobStore(16)

	_, err := s.Upload(context.Background(), BlobMetadata{ContentType: "application/pdf"}, strings.NewReader("x"))
	if !errors.Is(err, ErrMissingFileName) {
		t.Errorf("missing file name: got %v", err)
	}

	_, err = s.Upload(context.Background(), BlobMetadata{FileName: "a.exe", ContentType: "application/octet-stream"}, strings.NewReader("x"))
	if !errors.Is(err, ErrInvalidContentType) {
		t.Errorf("bad content type: got %v", err)
	}

	_, err = s.Upload(context.Background(), BlobMetadata{FileName: "big.pdf", ContentType: "application/pdf"},
		strings.NewReader(strings.Repeat("x", 17)))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("oversized: got %v", err)
	}
}

func TestDownloadRoundTrip(t *testing.T) {
	s := NewInMemoryBlobStore(1 << 20)
	meta := upload(t, s, "user-1", "results.csv", "text/csv", "marker,value\nldl,120\n")

	rc, got, err := s.Download(context.Background(), meta.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "marker,value\nldl,120\n" {
		t.Errorf("content = %q", data)
	}
	if got.FileName != "results.csv" {
		t.Errorf("file name = %q", got.FileName)
	}
}

func TestDownloadNotFound(t *testing.T) {
	s := NewInMemoryBlobStore(1 << 20)
	_, _, err := s.Download(context.Background(), "missing")
	if !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := NewInMemoryBlobStore(1 << 20)
	meta := upload(t, s, "user-1", "a.pdf", "application/pdf", "x")

	if err := s.Delete(context.Background(), meta.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetMetadata(context.Background(), meta.ID); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("after delete: got %v", err)
	}
	if err := s.Delete(context.Background(), meta.ID); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("double delete: got %v", err)
	}
}

func TestListByOwner(t *testing.T) {
	s := NewInMemoryBlobStore(1 << 20)
	upload(t, s, "user-1", "a.pdf", "application/pdf", "a")
	upload(t, s, "user-1", "b.pdf", "application/pdf", "b")
	upload(t, s, "user-2", "c.pdf", "application/pdf", "c")

	blobs, total, err := s.ListByOwner(context.Background(), "user-1", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(blobs) != 2 {
		t.Fatalf("total = %d, page = %d", total, len(blobs))
	}
	for _, b := range blobs {
		if b.OwnerID != "user-1" {
			t.Errorf("unexpected owner %q", b.OwnerID)
		}
	}

	page, total, err := s.ListByOwner(context.Background(), "user-1", 1, 1)
	if err != nil {
		t.Fatalf("paged list: %v", err)
	}
	if total != 2 || len(page) != 1 {
		t.Errorf("paged: total = %d, page = %d", total, len(page))
	}
}
