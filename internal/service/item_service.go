package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/shelfkeep/shelfkeep/internal/domain"
	"github.com/shelfkeep/shelfkeep/internal/repository"
	"github.com/shelfkeep/shelfkeep/internal/store"
)

// ItemService owns item lifecycle inside collections. Creation enforces
// template coverage: exactly one value per template attribute, each payload
// matching its attribute's type.
type ItemService struct {
	store *store.Store
	log   zerolog.Logger
	now   func() int64
}

func NewItemService(s *store.Store, log zerolog.Logger) *ItemService {
	return &ItemService{
		store: s,
		log:   log,
		now:   func() int64 { return time.Now().UnixMilli() },
	}
}

// CreateItem creates the item row plus one value row per template attribute,
// and touches the owning page, all in one transaction.
func (s *ItemService) CreateItem(ctx context.Context, input domain.NewItem) (*domain.Item, error) {
	const op = "item.CreateItem"
	if err := input.Validate(); err != nil {
		return nil, wrap(op, KindValidation, err)
	}

	var item *domain.Item
	err := s.store.WithExclusiveTx(ctx, func(q store.Querier) error {
		pages := repository.NewPageRepository(q)
		items := repository.NewItemRepository(q)

		col, err := pages.GetCollection(ctx, input.PageID)
		if err != nil {
			return err
		}
		if !categoryInCollection(col, input.CategoryID) {
			return &domain.ValidationError{
				Entity: "item",
				Fields: []domain.FieldError{{
					Field:   "categoryId",
					Message: fmt.Sprintf("category %d does not belong to page %d", input.CategoryID, input.PageID),
				}},
			}
		}
		attrs, err := items.ListTemplateAttributes(ctx, col.TemplateID)
		if err != nil {
			return err
		}
		if err := checkTemplateCoverage(attrs, input.Values); err != nil {
			return err
		}

		now := s.now()
		itemID, err := items.InsertItem(ctx, input.PageID, input.CategoryID, now)
		if err != nil {
			return err
		}
		for _, val := range input.Values {
			if err := items.InsertValue(ctx, itemID, val.AttributeID, val.Payload); err != nil {
				return err
			}
		}
		if err := pages.TouchPage(ctx, input.PageID, now); err != nil {
			return err
		}
		item, err = items.GetItemByID(ctx, itemID)
		return err
	})
	if err != nil {
		return nil, wrap(op, KindCreationFailed, err)
	}
	s.log.Info().Int64("item", int64(item.ID)).Int64("page", int64(item.PageID)).Msg("item created")
	return item, nil
}

// GetItem hydrates one item with its full value set.
func (s *ItemService) GetItem(ctx context.Context, id domain.ItemID) (*domain.Item, error) {
	const op = "item.GetItem"
	var item *domain.Item
	err := s.store.WithRead(ctx, func(q store.Querier) error {
		var err error
		item, err = repository.NewItemRepository(q).GetItemByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, wrap(op, KindRetrievalFailed, err)
	}
	return item, nil
}

// PreviewAttributes returns the preview columns of a collection, in stable
// attribute-id order.
func (s *ItemService) PreviewAttributes(ctx context.Context, pageID domain.PageID) ([]domain.Attribute, error) {
	const op = "item.PreviewAttributes"
	var attrs []domain.Attribute
	err := s.store.WithRead(ctx, func(q store.Querier) error {
		var err error
		attrs, err = repository.NewItemRepository(q).GetPreviewAttributes(ctx, pageID)
		return err
	})
	if err != nil {
		return nil, wrap(op, KindRetrievalFailed, err)
	}
	return attrs, nil
}

// CollectionAttributes returns every attribute on the collection's template,
// id ascending. This is the shape an item create form is built from.
func (s *ItemService) CollectionAttributes(ctx context.Context, pageID domain.PageID) ([]domain.Attribute, error) {
	const op = "item.CollectionAttributes"
	var attrs []domain.Attribute
	err := s.store.WithRead(ctx, func(q store.Querier) error {
		col, err := repository.NewPageRepository(q).GetCollection(ctx, pageID)
		if err != nil {
			return err
		}
		attrs, err = repository.NewItemRepository(q).ListTemplateAttributes(ctx, col.TemplateID)
		return err
	})
	if err != nil {
		return nil, wrap(op, KindRetrievalFailed, err)
	}
	return attrs, nil
}

// UpdateItem applies a partial update: an optional category move plus value
// changes for any subset of the item's attributes. Each payload must match
// the type already stored for its attribute.
func (s *ItemService) UpdateItem(ctx context.Context, id domain.ItemID, categoryID *domain.CategoryID, values []domain.NewItemValue) (*domain.Item, error) {
	const op = "item.UpdateItem"
	var item *domain.Item
	err := s.store.WithExclusiveTx(ctx, func(q store.Querier) error {
		pages := repository.NewPageRepository(q)
		items := repository.NewItemRepository(q)

		current, err := items.GetItemByID(ctx, id)
		if err != nil {
			return err
		}
		if categoryID != nil {
			col, err := pages.GetCollection(ctx, current.PageID)
			if err != nil {
				return err
			}
			if !categoryInCollection(col, *categoryID) {
				return &domain.ValidationError{
					Entity: "item",
					Fields: []domain.FieldError{{
						Field:   "categoryId",
						Message: fmt.Sprintf("category %d does not belong to page %d", *categoryID, current.PageID),
					}},
				}
			}
		}
		types := make(map[domain.AttributeID]domain.AttributeType, len(current.Values))
		for _, av := range current.Values {
			types[av.AttributeID] = av.Type
		}
		for _, val := range values {
			want, ok := types[val.AttributeID]
			if !ok {
				return &domain.ValidationError{
					Entity: "item",
					Fields: []domain.FieldError{{
						Field:   "values",
						Message: fmt.Sprintf("attribute %d is not on this item's template", val.AttributeID),
					}},
				}
			}
			av := domain.AttributeValue{AttributeID: val.AttributeID, Type: want, Payload: val.Payload}
			if err := av.Validate(); err != nil {
				return err
			}
		}

		now := s.now()
		for _, val := range values {
			if err := items.UpdateValue(ctx, id, val.AttributeID, val.Payload); err != nil {
				return err
			}
		}
		if err := items.UpdateItem(ctx, id, categoryID, now); err != nil {
			return err
		}
		if err := pages.TouchPage(ctx, current.PageID, now); err != nil {
			return err
		}
		item, err = items.GetItemByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, wrap(op, KindUpdateFailed, err)
	}
	return item, nil
}

// DeleteItem removes the item (value rows cascade) and touches the page.
func (s *ItemService) DeleteItem(ctx context.Context, id domain.ItemID) error {
	const op = "item.DeleteItem"
	err := s.store.WithExclusiveTx(ctx, func(q store.Querier) error {
		pageID, err := repository.NewItemRepository(q).DeleteItem(ctx, id)
		if err != nil {
			return err
		}
		return repository.NewPageRepository(q).TouchPage(ctx, pageID, s.now())
	})
	if err != nil {
		return wrap(op, KindDeleteFailed, err)
	}
	s.log.Info().Int64("item", int64(id)).Msg("item deleted")
	return nil
}

func categoryInCollection(col *domain.Collection, id domain.CategoryID) bool {
	for _, cat := range col.Categories {
		if cat.ID == id {
			return true
		}
	}
	return false
}

// checkTemplateCoverage requires exactly one value per template attribute,
// with a payload whose type matches the attribute's. The duplicate check in
// NewItem.Validate plus the count check here makes the pairing a bijection.
func checkTemplateCoverage(attrs []domain.Attribute, values []domain.NewItemValue) error {
	v := make(map[domain.AttributeID]domain.ValuePayload, len(values))
	for _, val := range values {
		v[val.AttributeID] = val.Payload
	}
	var fields []domain.FieldError
	for _, attr := range attrs {
		payload, ok := v[attr.ID]
		if !ok {
			fields = append(fields, domain.FieldError{
				Field:   "values",
				Message: fmt.Sprintf("missing value for attribute %d (%s)", attr.ID, attr.Label),
			})
			continue
		}
		av := domain.AttributeValue{AttributeID: attr.ID, Label: attr.Label, Type: attr.Type, Payload: payload}
		if err := av.Validate(); err != nil {
			fields = append(fields, domain.FieldError{
				Field:   "values",
				Message: fmt.Sprintf("attribute %d (%s): %v", attr.ID, attr.Label, err),
			})
		}
		delete(v, attr.ID)
	}
	for id := range v {
		fields = append(fields, domain.FieldError{
			Field:   "values",
			Message: fmt.Sprintf("attribute %d is not on the template", id),
		})
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Entity: "item", Fields: fields}
	}
	return nil
}
