// Package catalog is the application layer over the store: it opens a
// store per call, shapes results for the tool and HTTP surfaces and keeps
// the generated documents current.
package catalog

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/starford/feattree/internal/checksum"
	"github.com/starford/feattree/internal/models"
	"github.com/starford/feattree/internal/render"
	"github.com/starford/feattree/internal/storage"
	"github.com/starford/feattree/internal/store"
)

// Generated document names inside the project directory.
const (
	FeaturesDoc  = "FEATURES.md"
	WorkflowsDoc = "WORKFLOWS.md"
)

// Opener returns a freshly opened store. The service closes it after each
// call.
type Opener func() (store.Catalog, error)

// FileOpener opens the SQLite database at path with driver.
func FileOpener(driver, path string) Opener {
	return func() (store.Catalog, error) {
		return store.Open(driver, path)
	}
}

// Service coordinates store access, document regeneration and change
// notification.
type Service struct {
	open    Opener
	docs    storage.Provider
	log     *slog.Logger
	observe func(ChangeEvent)
	info    Info
}

// Option configures a Service.
type Option func(*Service)

// WithObserver registers fn to receive a ChangeEvent after every
// successful mutation and regeneration.
func WithObserver(fn func(ChangeEvent)) Option {
	return func(s *Service) { s.observe = fn }
}

// WithInfo sets the paths reported by Info.
func WithInfo(info Info) Option {
	return func(s *Service) { s.info = info }
}

// NewService creates a catalog service. docs may be nil, in which case
// documents are rendered on demand but never written.
func NewService(open Opener, docs storage.Provider, log *slog.Logger, opts ...Option) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{open: open, docs: docs, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

// withStore runs fn against a store opened for this call only.
func (s *Service) withStore(fn func(store.Catalog) error) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func (s *Service) emit(ev ChangeEvent) {
	if s.observe != nil {
		s.observe(ev)
	}
}

// changed regenerates the documents and announces a mutation. The
// mutation is already committed, so a failed regeneration is logged only.
func (s *Service) changed(ctx context.Context, kind Kind, id string, op Op) {
	if _, err := s.Regenerate(ctx); err != nil {
		s.log.Error("catalog: regenerate documents", slog.String("id", id), slog.String("error", err.Error()))
	}
	s.emit(ChangeEvent{Kind: kind, ID: id, Op: op})
}

// Regenerate renders both documents and writes those whose content
// changed. It returns the names written.
func (s *Service) Regenerate(_ context.Context) ([]string, error) {
	if s.docs == nil {
		return nil, nil
	}
	var feats []models.Feature
	var flows []models.Workflow
	err := s.withStore(func(db store.Catalog) error {
		var err error
		if feats, err = db.ListFeatures(); err != nil {
			return err
		}
		flows, err = db.ListWorkflows()
		return err
	})
	if err != nil {
		return nil, err
	}

	var written []string
	for _, doc := range []struct {
		name    string
		content []byte
	}{
		{FeaturesDoc, []byte(render.FeaturesMarkdown(feats))},
		{WorkflowsDoc, []byte(render.WorkflowsMarkdown(flows))},
	} {
		info, err := s.docs.Stat(doc.name)
		switch {
		case err == nil && checksum.Matches(info.Checksum, doc.content):
			continue
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return written, err
		}
		if err := s.docs.Write(doc.name, doc.content); err != nil {
			return written, err
		}
		written = append(written, doc.name)
	}
	if len(written) > 0 {
		s.log.Debug("catalog: documents regenerated", slog.Any("docs", written))
	}
	return written, nil
}

// Document renders one generated document from the current data.
func (s *Service) Document(_ context.Context, name string) (string, error) {
	var out string
	err := s.withStore(func(db store.Catalog) error {
		switch name {
		case FeaturesDoc:
			feats, err := db.ListFeatures()
			if err != nil {
				return err
			}
			out = render.FeaturesMarkdown(feats)
		case WorkflowsDoc:
			flows, err := db.ListWorkflows()
			if err != nil {
				return err
			}
			out = render.WorkflowsMarkdown(flows)
		default:
			return errUnknownDocument(name)
		}
		return nil
	})
	return out, err
}

// Documents lists the generated documents currently on disk.
func (s *Service) Documents(_ context.Context) ([]storage.DocInfo, error) {
	if s.docs == nil {
		return nil, nil
	}
	return s.docs.List("")
}

// Reindex rebuilds both search indexes and regenerates the documents.
func (s *Service) Reindex(ctx context.Context) error {
	if err := s.withStore(func(db store.Catalog) error { return db.Rebuild() }); err != nil {
		return err
	}
	if _, err := s.Regenerate(ctx); err != nil {
		return err
	}
	s.emit(ChangeEvent{Kind: KindDocuments, Op: OpRegenerated})
	return nil
}

// Info describes where the catalog lives, with the FTS state probed from
// a fresh store.
func (s *Service) Info(_ context.Context) (Info, error) {
	info := s.info
	err := s.withStore(func(db store.Catalog) error {
		info.FTSEnabled = db.FTSEnabled()
		return nil
	})
	return info, err
}
