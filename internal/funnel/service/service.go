// Package service implements the stored-funnel operations used by the HTTP
// layer on top of a repository.Repository.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boron/funnel-service/internal/funnel"
	"github.com/boron/funnel-service/internal/funnel/render"
	"github.com/boron/funnel-service/internal/funnel/repository"
	"github.com/boron/funnel-service/internal/funnel/schema"
	"github.com/boron/funnel-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotFound      = repository.ErrNotFound
	ErrAlreadyExists = repository.ErrAlreadyExists
	// ErrCorrupt is returned when stored funnel data no longer passes the
	// schema validator.
	ErrCorrupt     = errors.New("stored funnel is corrupt")
	ErrIDMismatch  = errors.New("funnel id does not match")
	ErrInvalidName = errors.New("funnel name must not be empty")
)

// Funnel is a stored funnel with its parsed document.
type Funnel struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Status      repository.Status `json:"status"`
	Document    *funnel.Document  `json:"funnel"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	PublishedAt *time.Time        `json:"publishedAt,omitempty"`
	// PageURL is only set by Publish when a PagePublisher is configured.
	PageURL string `json:"pageUrl,omitempty"`
}

// Summary is the listing form of a stored funnel.
type Summary struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Status      repository.Status `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	PublishedAt *time.Time        `json:"publishedAt,omitempty"`
}

// PagePublisher uploads a rendered page and returns a URL it can be fetched from.
type PagePublisher interface {
	PublishPage(ctx context.Context, funnelID string, page []byte) (string, error)
}

// Service defines the funnel business operations used by the handler layer.
// Create and Save re-validate the serialized document and refuse to store
// anything the schema validator rejects.
type Service interface {
	Create(ctx context.Context, doc *funnel.Document) (*Funnel, error)
	Get(ctx context.Context, id string) (*Funnel, error)
	List(ctx context.Context, status repository.Status) ([]Summary, error)
	Save(ctx context.Context, id string, doc *funnel.Document) (*Funnel, error)
	Rename(ctx context.Context, id, name string) (*Funnel, error)
	Delete(ctx context.Context, id string) error
	Publish(ctx context.Context, id string) (*Funnel, error)
	Archive(ctx context.Context, id string) (*Funnel, error)
	Duplicate(ctx context.Context, id string) (*Funnel, error)
}

type Option func(*service)

// WithPublisher uploads the rendered page on Publish.
func WithPublisher(p PagePublisher) Option {
	return func(s *service) { s.publisher = p }
}

// WithPipeline overrides the render pipeline used for published pages.
func WithPipeline(p *render.Pipeline) Option {
	return func(s *service) { s.pipeline = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.clock = now }
}

type service struct {
	repo      repository.Repository
	publisher PagePublisher
	pipeline  *render.Pipeline
	clock     func() time.Time
}

func New(repo repository.Repository, opts ...Option) Service {
	s := &service{repo: repo, pipeline: render.Default(), clock: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService(opts ...Option) Service {
	return New(repository.NewMemoryRepo(), opts...)
}

// encode serializes doc and runs the bytes back through the schema
// validator, so nothing is stored that load would reject. Validation failures
// are returned as *schema.ValidationError.
func encode(doc *funnel.Document) ([]byte, error) {
	if doc == nil {
		return nil, &schema.ValidationError{Issues: []schema.Issue{{Message: "funnel is required"}}}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode funnel: %w", err)
	}
	if err := schema.ValidateJSON(data).Err(); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *service) Create(ctx context.Context, doc *funnel.Document) (*Funnel, error) {
	data, err := encode(doc)
	if err != nil {
		return nil, err
	}
	rec := &repository.Record{ID: doc.ID, Name: doc.Name, FunnelData: data, Status: repository.StatusDraft}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	return toFunnel(rec, doc.Clone()), nil
}

func (s *service) load(ctx context.Context, id string) (*repository.Record, *funnel.Document, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	doc, err := schema.ParseJSON(rec.FunnelData)
	if err != nil {
		logger.L().Error("stored funnel failed validation", zap.String("funnel_id", id), zap.Error(err))
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, id, err)
	}
	return rec, doc, nil
}

func (s *service) Get(ctx context.Context, id string) (*Funnel, error) {
	rec, doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toFunnel(rec, doc), nil
}

func (s *service) List(ctx context.Context, status repository.Status) ([]Summary, error) {
	recs, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, len(recs))
	for i, r := range recs {
		out[i] = Summary{ID: r.ID, Name: r.Name, Status: r.Status, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, PublishedAt: r.PublishedAt}
	}
	return out, nil
}

// Save replaces the stored document. The record name follows the document name.
func (s *service) Save(ctx context.Context, id string, doc *funnel.Document) (*Funnel, error) {
	if doc != nil && doc.ID != id {
		return nil, fmt.Errorf("%w: %s != %s", ErrIDMismatch, doc.ID, id)
	}
	data, err := encode(doc)
	if err != nil {
		return nil, err
	}
	name := doc.Name
	rec, err := s.repo.Update(ctx, id, repository.Update{Name: &name, FunnelData: data})
	if err != nil {
		return nil, err
	}
	return toFunnel(rec, doc.Clone()), nil
}

// Rename changes both the record name and the name inside the document.
func (s *service) Rename(ctx context.Context, id, name string) (*Funnel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	_, doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Name = name
	return s.Save(ctx, id, doc)
}

func (s *service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Publish marks the funnel published. With a PagePublisher configured the
// rendered page is uploaded first; an upload failure leaves the status alone.
func (s *service) Publish(ctx context.Context, id string) (*Funnel, error) {
	_, doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	var url string
	if s.publisher != nil {
		page, err := s.pipeline.RenderPage(doc)
		if err != nil {
			return nil, err
		}
		if url, err = s.publisher.PublishPage(ctx, id, page); err != nil {
			return nil, fmt.Errorf("publish page: %w", err)
		}
	}
	st, at := repository.StatusPublished, s.clock().UTC()
	rec, err := s.repo.Update(ctx, id, repository.Update{Status: &st, PublishedAt: &at})
	if err != nil {
		return nil, err
	}
	logger.L().Info("funnel published", zap.String("funnel_id", id), zap.String("url", url))
	f := toFunnel(rec, doc)
	f.PageURL = url
	return f, nil
}

func (s *service) Archive(ctx context.Context, id string) (*Funnel, error) {
	_, doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	st := repository.StatusArchived
	rec, err := s.repo.Update(ctx, id, repository.Update{Status: &st})
	if err != nil {
		return nil, err
	}
	return toFunnel(rec, doc), nil
}

// Duplicate stores a draft copy under a fresh id named "Copy of <name>".
func (s *service) Duplicate(ctx context.Context, id string) (*Funnel, error) {
	rec, doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.ID = uuid.NewString()
	doc.Name = "Copy of " + rec.Name
	return s.Create(ctx, doc)
}

func toFunnel(rec *repository.Record, doc *funnel.Document) *Funnel {
	return &Funnel{
		ID:          rec.ID,
		Name:        rec.Name,
		Status:      rec.Status,
		Document:    doc,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
		PublishedAt: rec.PublishedAt,
	}
}
