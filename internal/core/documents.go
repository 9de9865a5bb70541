package core

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"fleetcore/internal/blob"
	"fleetcore/pkg/domain"
)

// DocumentStore is the blob backend used for truck paperwork (registration
// scans, inspection certificates). Uploads happen outside the transaction
// boundary; only the resulting URL is written transactionally, so a failed
// commit leaves at worst an orphaned blob, never a dangling URL.
type DocumentStore = blob.Store

// TruckDocumentKey builds the blob key for a truck document.
func TruckDocumentKey(truckID, filename string) string {
	return path.Join("trucks", truckID, path.Base(filename))
}

// UploadTruckDocument streams a document into the blob store and records its
// URL on the truck in one transaction. The returned truck carries the stored
// URL.
func (s *Service) UploadTruckDocument(ctx context.Context, truckID, filename, contentType string, r io.Reader) (Truck, Result, error) {
	if s.documents == nil {
		return Truck{}, Result{}, fmt.Errorf("no document store configured")
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return Truck{}, Result{}, domain.ValidationError{Entity: domain.EntityTruck, EntityID: truckID, Message: "document filename is required"}
	}
	if _, ok := s.store.GetTruck(truckID); !ok {
		return Truck{}, Result{}, domain.NotFoundError{Entity: domain.EntityTruck, ID: truckID}
	}

	key := TruckDocumentKey(truckID, filename)
	info, err := s.documents.Put(ctx, key, r, blob.PutOptions{ContentType: contentType})
	if err != nil {
		return Truck{}, Result{}, fmt.Errorf("upload truck document: %w", err)
	}
	url := info.URL
	if url == "" {
		url = key
	}

	var updated Truck
	res, err := s.runTx(ctx, "upload_truck_document", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateTruck(truckID, func(t *Truck) error {
			t.DocumentURL = strPtr(url)
			return nil
		})
		return err
	})
	return updated, res, err
}

// DeleteTruckDocument removes the stored document blob and clears the URL on
// the truck. A missing blob is not an error; the URL is cleared regardless.
func (s *Service) DeleteTruckDocument(ctx context.Context, truckID, filename string) (Truck, Result, error) {
	if s.documents == nil {
		return Truck{}, Result{}, fmt.Errorf("no document store configured")
	}
	key := TruckDocumentKey(truckID, filename)
	if _, err := s.documents.Delete(ctx, key); err != nil {
		return Truck{}, Result{}, fmt.Errorf("delete truck document: %w", err)
	}
	var updated Truck
	res, err := s.runTx(ctx, "delete_truck_document", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateTruck(truckID, func(t *Truck) error {
			t.DocumentURL = nil
			return nil
		})
		return err
	})
	return updated, res, err
}
