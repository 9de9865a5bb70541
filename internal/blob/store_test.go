package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// runStoreContract exercises the behavior every Store implementation shares.
func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	info, err := store.Put(ctx, "trucks/t-1/crlv.pdf", strings.NewReader("first"), PutOptions{
		ContentType: "application/pdf",
		Metadata:    map[string]string{"source": "upload"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "trucks/t-1/crlv.pdf" || info.Size != 5 {
		t.Fatalf("unexpected put info: %+v", info)
	}
	if info.URL == "" {
		t.Fatalf("put info missing URL: %+v", info)
	}

	got, rc, err := store.Get(ctx, "trucks/t-1/crlv.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil || string(body) != "first" {
		t.Fatalf("get body: %q %v", body, err)
	}
	if got.ContentType != "application/pdf" || got.Metadata["source"] != "upload" {
		t.Fatalf("get info lost attributes: %+v", got)
	}

	// Put overwrites: a re-uploaded document replaces the previous content.
	if _, err := store.Put(ctx, "trucks/t-1/crlv.pdf", strings.NewReader("second version"), PutOptions{ContentType: "application/pdf"}); err != nil {
		t.Fatalf("overwrite put: %v", err)
	}
	head, err := store.Head(ctx, "trucks/t-1/crlv.pdf")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Size != int64(len("second version")) {
		t.Fatalf("overwrite did not replace content: %+v", head)
	}

	if _, err := store.Put(ctx, "trucks/t-2/seguro.pdf", strings.NewReader("other"), PutOptions{}); err != nil {
		t.Fatalf("second put: %v", err)
	}
	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 blobs, got %+v", all)
	}
	scoped, err := store.List(ctx, "trucks/t-1/")
	if err != nil {
		t.Fatalf("list prefix: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Key != "trucks/t-1/crlv.pdf" {
		t.Fatalf("prefix filter broken: %+v", scoped)
	}

	existed, err := store.Delete(ctx, "trucks/t-1/crlv.pdf")
	if err != nil || !existed {
		t.Fatalf("delete: %v existed=%v", err, existed)
	}
	if _, _, err := store.Get(ctx, "trucks/t-1/crlv.pdf"); err == nil {
		t.Fatal("blob survived delete")
	}
	existed, err = store.Delete(ctx, "trucks/t-1/crlv.pdf")
	if err != nil || existed {
		t.Fatalf("double delete: %v existed=%v", err, existed)
	}
}

func TestMemoryStoreContract(t *testing.T) {
	store := NewMemory()
	if store.Driver() != DriverMemory {
		t.Fatalf("unexpected driver: %s", store.Driver())
	}
	runStoreContract(t, store)

	if _, err := store.PresignURL(context.Background(), "k", SignedURLOptions{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("memory presign should be unsupported: %v", err)
	}
}

func TestFilesystemStoreContract(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem store: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("unexpected driver: %s", store.Driver())
	}
	runStoreContract(t, store)
}

func TestFilesystemStoreRejectsTraversalKeys(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem store: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"", "  ", "../outside", "a/../../outside", "/etc/passwd"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err == nil {
			t.Errorf("key %q accepted", key)
		}
	}
}

func TestFilesystemStoreOverwriteRefreshesETag(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem store: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Put(ctx, "doc.txt", strings.NewReader("v1"), PutOptions{}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	first, err := store.Head(ctx, "doc.txt")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if _, err := store.Put(ctx, "doc.txt", strings.NewReader("v2"), PutOptions{}); err != nil {
		t.Fatalf("second put: %v", err)
	}
	second, err := store.Head(ctx, "doc.txt")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if second.LastModified.Before(first.LastModified) {
		t.Fatalf("last modified regressed: %v -> %v", first.LastModified, second.LastModified)
	}
	if second.ETag == first.ETag {
		t.Fatalf("etag did not change with content: %s", second.ETag)
	}
}

func TestFilesystemPresignIsGetOnly(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem store: %v", err)
	}
	ctx := context.Background()

	u, err := store.PresignURL(ctx, "trucks/t-1/crlv.pdf", SignedURLOptions{})
	if err != nil || !strings.Contains(u, "trucks/t-1/crlv.pdf") {
		t.Fatalf("presign get: %q %v", u, err)
	}
	if _, err := store.PresignURL(ctx, "k", SignedURLOptions{Method: "PUT"}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("presign put should be unsupported: %v", err)
	}
}
