package core

import (
	"context"
	"io"
	"strings"
	"testing"

	"fleetcore/internal/blob"
)

func TestTruckDocumentKey(t *testing.T) {
	if got := TruckDocumentKey("t-1", "crlv.pdf"); got != "trucks/t-1/crlv.pdf" {
		t.Fatalf("unexpected key: %q", got)
	}
	// Path components in the filename are stripped.
	if got := TruckDocumentKey("t-1", "../../escape.pdf"); got != "trucks/t-1/escape.pdf" {
		t.Fatalf("unexpected key: %q", got)
	}
}

func TestUploadAndDeleteTruckDocument(t *testing.T) {
	docs := blob.NewMemory()
	s := newTestService(WithDocumentStore(docs))
	ctx := context.Background()
	truck := seedTruck(t, s)

	updated, _, err := s.UploadTruckDocument(ctx, truck.ID, "crlv.pdf", "application/pdf", strings.NewReader("%PDF-1.7 fixture"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if updated.DocumentURL == nil || *updated.DocumentURL == "" {
		t.Fatalf("document url not recorded: %+v", updated)
	}

	key := TruckDocumentKey(truck.ID, "crlv.pdf")
	info, rc, err := docs.Get(ctx, key)
	if err != nil {
		t.Fatalf("blob not stored: %v", err)
	}
	body, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil || string(body) != "%PDF-1.7 fixture" {
		t.Fatalf("blob content mismatch: %q %v", body, err)
	}
	if info.ContentType != "application/pdf" {
		t.Fatalf("content type lost: %+v", info)
	}

	cleared, _, err := s.DeleteTruckDocument(ctx, truck.ID, "crlv.pdf")
	if err != nil {
		t.Fatalf("delete document: %v", err)
	}
	if cleared.DocumentURL != nil {
		t.Fatalf("document url not cleared: %+v", cleared)
	}
	if _, _, err := docs.Get(ctx, key); err == nil {
		t.Fatal("blob survived delete")
	}
}

func TestUploadTruckDocumentGuards(t *testing.T) {
	ctx := context.Background()

	bare := newTestService()
	if _, _, err := bare.UploadTruckDocument(ctx, "t-1", "a.pdf", "", strings.NewReader("x")); err == nil {
		t.Fatal("upload without a document store should fail")
	}

	s := newTestService(WithDocumentStore(blob.NewMemory()))
	if _, _, err := s.UploadTruckDocument(ctx, "missing", "a.pdf", "", strings.NewReader("x")); err == nil {
		t.Fatal("upload for missing truck should fail")
	}
	truck := seedTruck(t, s)
	if _, _, err := s.UploadTruckDocument(ctx, truck.ID, "  ", "", strings.NewReader("x")); err == nil {
		t.Fatal("upload with blank filename should fail")
	}
}
