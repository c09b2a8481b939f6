package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wardenhq/warden/internal/admin/blob"
	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/internal/admin/store"
	"github.com/wardenhq/warden/pkg/httpx"
	"github.com/wardenhq/warden/pkg/idx"
)

var (
	// ErrStorageDisabled is returned when object storage is not configured.
	ErrStorageDisabled = errors.New("object storage not configured")

	// ErrDomainDenied is returned when the caller's domain scope does not
	// cover the document's domain.
	ErrDomainDenied = errors.New("domain not in scope")
)

const maxDocumentSize = 32 << 20 // 32 MiB

// DocumentService stores document bytes in object storage and metadata in
// the database. Reads and deletes are domain-scoped: the caller's resolved
// domains must cover the document's domain unless they hold "all".
type DocumentService struct {
	store store.Store
	blob  *blob.Client
	audit *AuditService
}

func NewDocumentService(st store.Store, bl *blob.Client, audit *AuditService) *DocumentService {
	return &DocumentService{store: st, blob: bl, audit: audit}
}

type UploadParams struct {
	Name        string
	ContentType string
	Domain      string
	Body        io.Reader
}

func (s *DocumentService) Upload(ctx context.Context, actor httpx.Identity, p UploadParams) (*domain.Document, error) {
	if s.blob == nil {
		return nil, ErrStorageDisabled
	}
	if !actorCoversDomain(actor, p.Domain) {
		return nil, ErrDomainDenied
	}

	body, err := io.ReadAll(io.LimitReader(p.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxDocumentSize {
		return nil, fmt.Errorf("document exceeds %d bytes", maxDocumentSize)
	}

	uploadedBy, err := idx.Parse(actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse actor id: %w", err)
	}

	id := idx.New()
	key := "documents/" + id.String()
	if err := s.blob.Put(ctx, key, body, p.ContentType); err != nil {
		return nil, fmt.Errorf("store bytes: %w", err)
	}

	doc := &domain.Document{
		ID:          id,
		Key:         key,
		Name:        p.Name,
		ContentType: p.ContentType,
		Size:        int64(len(body)),
		Domain:      p.Domain,
		UploadedBy:  uploadedBy,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Documents().Create(ctx, doc); err != nil {
		// Orphaned object; best-effort cleanup.
		_ = s.blob.Delete(ctx, key)
		return nil, fmt.Errorf("store metadata: %w", err)
	}

	s.audit.LogActivity(ctx, actor.UserID, "document_uploaded", "document", doc.Name, "")
	return doc, nil
}

// Download streams the document bytes after a domain-scope check.
func (s *DocumentService) Download(ctx context.Context, actor httpx.Identity, id idx.ID) (*domain.Document, io.ReadCloser, error) {
	if s.blob == nil {
		return nil, nil, ErrStorageDisabled
	}

	doc, err := s.store.Documents().GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !actorCoversDomain(actor, doc.Domain) {
		return nil, nil, ErrDomainDenied
	}

	body, err := s.blob.Get(ctx, doc.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch bytes: %w", err)
	}
	return doc, body, nil
}

// List returns document metadata visible to the actor. Holders of the
// "all" sentinel see everything; otherwise results are filtered to the
// actor's domain scope.
func (s *DocumentService) List(ctx context.Context, actor httpx.Identity, domainKey string) ([]*domain.Document, error) {
	if domainKey != "" && !actorCoversDomain(actor, domainKey) {
		return nil, ErrDomainDenied
	}

	docs, err := s.store.Documents().List(ctx, domainKey)
	if err != nil {
		return nil, err
	}
	if actor.HasAllDomains() {
		return docs, nil
	}

	visible := docs[:0]
	for _, d := range docs {
		if actorCoversDomain(actor, d.Domain) {
			visible = append(visible, d)
		}
	}
	return visible, nil
}

func (s *DocumentService) Delete(ctx context.Context, actor httpx.Identity, id idx.ID) error {
	doc, err := s.store.Documents().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actorCoversDomain(actor, doc.Domain) {
		return ErrDomainDenied
	}

	if err := s.store.Documents().Delete(ctx, id); err != nil {
		return err
	}
	if s.blob != nil {
		_ = s.blob.Delete(ctx, doc.Key)
	}

	s.audit.LogActivity(ctx, actor.UserID, "document_deleted", "document", doc.Name, "")
	return nil
}

func actorCoversDomain(actor httpx.Identity, domainKey string) bool {
	if actor.HasAllDomains() {
		return true
	}
	if domainKey == "" {
		return true
	}
	for _, d := range actor.Domains {
		if d == domainKey {
			return true
		}
	}
	return false
}
