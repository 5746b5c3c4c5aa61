package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/shelfkeep/shelfkeep/internal/domain"
	"github.com/shelfkeep/shelfkeep/internal/repository"
	"github.com/shelfkeep/shelfkeep/internal/store"
)

// PageService owns page lifecycle: notes, collections with their templates
// and categories, pinning, and archiving. Composite writes run in one
// exclusive transaction so a half-created collection can never be observed.
type PageService struct {
	store *store.Store
	log   zerolog.Logger
	now   func() int64
}

func NewPageService(s *store.Store, log zerolog.Logger) *PageService {
	return &PageService{
		store: s,
		log:   log,
		now:   func() int64 { return time.Now().UnixMilli() },
	}
}

// CreateNote creates the page row and its note sidecar together.
func (s *PageService) CreateNote(ctx context.Context, input domain.NewNote) (*domain.Note, error) {
	const op = "page.CreateNote"
	if err := input.Validate(); err != nil {
		return nil, wrap(op, KindValidation, err)
	}

	var note *domain.Note
	err := s.store.WithExclusiveTx(ctx, func(q store.Querier) error {
		pages := repository.NewPageRepository(q)
		pageID, err := pages.InsertPage(ctx, domain.NewPage{
			Kind:     domain.KindNote,
			Title:    input.Title,
			Icon:     input.Icon,
			Color:    input.Color,
			TagID:    input.TagID,
			FolderID: input.FolderID,
		}, s.now())
		if err != nil {
			return err
		}
		if err := pages.InsertNote(ctx, pageID, input.Content); err != nil {
			return err
		}
		note, err = pages.GetNote(ctx, pageID)
		return err
	})
	if err != nil {
		return nil, wrap(op, KindCreationFailed, err)
	}
	s.log.Info().Int64("page", int64(note.Page.ID)).Msg("note created")
	return note, nil
}

// UpdateNoteContent replaces the note body.
func (s *PageService) UpdateNoteContent(ctx context.Context, pageID domain.PageID, content *string) error {
	const op = "page.UpdateNoteContent"
	if content != nil {
		if l := utf8.RuneCountInString(*content); l > domain.NoteContentMaxLen {
			return wrap(op, KindValidation, &domain.ValidationError{
				Entity: "note",
				Fields: []domain.FieldError{{
					Field:   "content",
					Message: fmt.Sprintf("length must be at most %d, got %d", domain.NoteContentMaxLen, l),
				}},
			})
		}
	}
	err := s.store.WithExclusiveTx(ctx, func(q store.Querier) error {
		pages := repository.NewPageRepository(q)
		if _, err := pages.GetNote(ctx, pageID); err != nil {
			return err
		}
		return pages.UpdateNoteContent(ctx, pageID, content, s.now())
	})
	return wrap(op, KindUpdateFailed, err)
}

// GetNote fetches a note page with its content.
func (s *PageService) GetNote(ctx context.Context, pageID domain.PageID) (*domain.Note, error) {
	const op = "page.GetNote"
	var note *domain.Note
	err := s.store.WithRead(ctx, func(q store.Querier) error {
		var err error
		note, err = repository.NewPageRepository(q).GetNote(ctx, pageID)
		return err
	})
	if err != nil {
		return nil, wrap(op, KindRetrievalFailed, err)
	}
	return note, nil
}

// CreateCollection creates the page, a private template with its attributes,
// the collection link, and the named categories in one transaction.
func (s *PageService) CreateCollection(ctx context.Context, input domain.NewCollection) (*domain.Collection, error) {
	const op = "page.CreateCollection"
	if err := input.Validate(); err != nil {
		return nil, wrap(op, KindValidation, err)
	}

	var col *domain.Collection
	err := s.store.WithExclusiveTx(ctx, func(q store.Querier) error {
		pages := repository.NewPageRepository(q)
		items := repository.NewItemRepository(q)

		pageID, err := pages.InsertPage(ctx, domain.NewPage{
			Kind:     domain.KindCollection,
			Title:    input.Title,
			Icon:     input.Icon,
			Color:    input.Color,
			TagID:    input.TagID,
			FolderID: input.FolderID,
		}, s.now())
		if err != nil {
			return err
		}
		templateID, err := pages.InsertTemplate(ctx, input.Title)
		if err != nil {
			return err
		}
		for _, attr := range input.Attributes {
			if _, err := items.InsertAttribute(ctx, templateID, attr); err != nil {
				return err
			}
		}
		if err := pages.InsertCollection(ctx, pageID, templateID); err != nil {
			return err
		}
		for _, name := range input.Categories {
			if _, err := pages.InsertCategory(ctx, pageID, name); err != nil {
				return err
			}
		}
		col, err = pages.GetCollection(ctx, pageID)
		return err
	})
	if err != nil {
		return nil, wrap(op, KindCreationFailed, err)
	}
	s.log.Info().Int64("page", int64(col.Page.ID)).Int("categories", len(col.Categories)).Msg("collection created")
	return col, nil
}

// GetCollection fetches a collection page with its categories.
func (s *PageService) GetCollection(ctx context.Context, pageID domain.PageID) (*domain.Collection, error) {
	const op = "page.GetCollection"
	var col *domain.Collection
	err := s.store.WithRead(ctx, func(q store.Querier) error {
		var err error
		col, err = repository.NewPageRepository(q).GetCollection(ctx, pageID)
		return err
	})
	if err != nil {
		return nil, wrap(op, KindRetrievalFailed, err)
	}
	return col, nil
}

// SetPinned pins or unpins a page. At most four pages may be pinned at once,
// and an archived page cannot be pinned.
func (s *PageService) SetPinned(ctx context.Context, pageID domain.PageID, pinned bool) error {
	const op = "page.SetPinned"
	err := s.store.WithExclusiveTx(ctx, func(q store.Querier) error {
		pages := repository.NewPageRepository(q)
		page, err := pages.GetPage(ctx, pageID)
		if err != nil {
			return err
		}
		if pinned {
			if page.Archived {
				return &domain.ValidationError{
					Entity: "page",
					Fields: []domain.FieldError{{Field: "pinned", Message: "archived pages cannot be pinned"}},
				}
			}
			if !page.Pinned {
				count, err := pages.CountPinnedPages(ctx)
				if err != nil {
					return err
				}
				if count >= domain.MaxPinnedPages {
					return &domain.ValidationError{
						Entity: "page",
						Fields: []domain.FieldError{{
							Field:   "pinned",
							Message: fmt.Sprintf("at most %d pages may be pinned", domain.MaxPinnedPages),
						}},
					}
				}
			}
		}
		return pages.SetPinned(ctx, pageID, pinned, s.now())
	})
	return wrap(op, KindUpdateFailed, err)
}

// SetArchived archives or restores a page. Archiving a pinned page unpins it.
func (s *PageService) SetArchived(ctx context.Context, pageID domain.PageID, archived bool) error {
	const op = "page.SetArchived"
	err := s.store.WithExclusiveTx(ctx, func(q store.Querier) error {
		pages := repository.NewPageRepository(q)
		page, err := pages.GetPage(ctx, pageID)
		if err != nil {
			return err
		}
		if archived && page.Pinned {
			if err := pages.SetPinned(ctx, pageID, false, s.now()); err != nil {
				return err
			}
		}
		return pages.SetArchived(ctx, pageID, archived, s.now())
	})
	return wrap(op, KindUpdateFailed, err)
}

// DeletePage deletes a page of either kind; notes, collections, categories,
// items, and value rows all follow via the schema's cascades.
func (s *PageService) DeletePage(ctx context.Context, pageID domain.PageID) error {
	const op = "page.DeletePage"
	err := s.store.WithExclusiveTx(ctx, func(q store.Querier) error {
		pages := repository.NewPageRepository(q)

		// Collections own a private template; drop it with the page so its
		// attributes and value rows do not orphan.
		templateID, err := pages.CollectionTemplateID(ctx, pageID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := pages.DeletePage(ctx, pageID); err != nil {
			return err
		}
		if templateID != 0 {
			return pages.DeleteTemplate(ctx, templateID)
		}
		return nil
	})
	if err != nil {
		return wrap(op, KindDeleteFailed, err)
	}
	s.log.Info().Int64("page", int64(pageID)).Msg("page deleted")
	return nil
}
