package contract

import (
	"context"
	"io"
	"path"
	"strings"

	"contract-lifecycle/pkg/errutil"
	applog "contract-lifecycle/pkg/logger"
	"contract-lifecycle/pkg/tenant"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxDocumentSize bounds a single uploaded contract document.
const MaxDocumentSize = 50 << 20

// DocumentStorage persists contract documents in object storage. Put
// returns the object path that Remove accepts.
type DocumentStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, objectPath string) error
}

type AttachDocumentRequest struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func documentFileName(name string) string {
	return path.Base(strings.ReplaceAll(name, "\\", "/"))
}

// documentKey is unique per upload so a failed or replacing upload never
// overwrites the object the contract currently points at.
func documentKey(tenantID, contractID, uploadID, fileName string) string {
	return path.Join(tenantID, contractID, uploadID+"-"+fileName)
}

// AttachDocument uploads the signed or draft document of a contract and
// records its metadata. Finalized contracts are read only. The uploaded
// object is removed again when the metadata cannot be recorded, and the
// replaced document is removed once the new one is recorded.
func (s *Service) AttachDocument(ctx context.Context, id string, req AttachDocumentRequest) (*Contract, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	if s.documents == nil {
		return nil, errutil.NotImplemented("document storage is not configured", nil)
	}

	name := strings.TrimSpace(req.FileName)
	switch {
	case name == "" || req.Body == nil:
		return nil, errutil.InvalidArgument("document file is required", nil,
			errutil.WithDetails(detail("file", "document file is required")))
	case req.Size <= 0 || req.Size > MaxDocumentSize:
		return nil, errutil.InvalidArgument("document size must be between 1 byte and 50MB", nil,
			errutil.WithDetails(detail("file", "document size must be between 1 byte and 50MB")))
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status.IsFinalized() {
		return nil, errutil.InvalidState("contract is finalized", nil)
	}

	fileName := documentFileName(name)
	key := documentKey(tc.TenantID, c.ID, s.node.Generate().String(), fileName)
	objectPath, err := s.documents.Put(ctx, key, req.Body, req.Size, req.ContentType)
	if err != nil {
		return nil, errutil.Infrastructure("upload contract document", err)
	}

	now := s.now().UTC()
	size := req.Size
	var previous string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.store.WithTrx(tx)
		locked, err := store.GetContractForUpdate(ctx, tc.TenantID, id)
		if err != nil {
			return err
		}
		if locked.Status.IsFinalized() {
			return errutil.InvalidState("contract is finalized", nil)
		}
		previous = locked.DocumentPath
		return store.UpdateContract(ctx, tc.TenantID, id, locked.Version, map[string]interface{}{
			"document_path":         objectPath,
			"document_file_name":    fileName,
			"document_content_type": req.ContentType,
			"document_size":         &size,
			"updated_at":            now,
			"updated_by":            tc.UserID,
		})
	})
	if err != nil {
		s.removeDocument(ctx, objectPath)
		return nil, storeError("record contract document", err)
	}
	if previous != "" && previous != objectPath {
		s.removeDocument(ctx, previous)
	}
	return s.Get(ctx, id)
}

// removeDocument deletes an object that no contract points at. Failures
// only leave garbage behind, so they are logged.
func (s *Service) removeDocument(ctx context.Context, objectPath string) {
	if err := s.documents.Remove(context.WithoutCancel(ctx), objectPath); err != nil {
		applog.FromContext(ctx).Warn("failed to remove contract document",
			zap.String("object_path", objectPath), zap.Error(err))
	}
}
