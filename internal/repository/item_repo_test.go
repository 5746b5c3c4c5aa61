package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfkeep/shelfkeep/internal/domain"
	"github.com/shelfkeep/shelfkeep/internal/store"
)

func newMigratedStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, store.NewMigrator(s, zerolog.Nop()).Run(context.Background()))
	return s
}

type fixture struct {
	pageID     domain.PageID
	categoryID domain.CategoryID
	templateID domain.TemplateID
	imageAttr  domain.AttributeID
	multiAttr  domain.AttributeID
	itemID     domain.ItemID
}

// seedCollection builds a minimal collection with an image and a multiselect
// attribute and one item, all through the repositories.
func seedCollection(t *testing.T, s *store.Store) fixture {
	t.Helper()
	var f fixture
	err := s.WithExclusiveTx(context.Background(), func(q store.Querier) error {
		ctx := context.Background()
		pages := NewPageRepository(q)
		items := NewItemRepository(q)

		var err error
		f.pageID, err = pages.InsertPage(ctx, domain.NewPage{Kind: domain.KindCollection, Title: "Art"}, 1000)
		require.NoError(t, err)
		f.templateID, err = pages.InsertTemplate(ctx, "Art")
		require.NoError(t, err)
		require.NoError(t, pages.InsertCollection(ctx, f.pageID, f.templateID))
		f.categoryID, err = pages.InsertCategory(ctx, f.pageID, "Prints")
		require.NoError(t, err)

		f.imageAttr, err = items.InsertAttribute(ctx, f.templateID, domain.NewAttribute{
			Label: "Scan", Type: domain.AttributeImage,
		})
		require.NoError(t, err)
		f.multiAttr, err = items.InsertAttribute(ctx, f.templateID, domain.NewAttribute{
			Label: "Medium", Type: domain.AttributeMultiselect, Options: []string{"Ink", "Oil"},
		})
		require.NoError(t, err)

		f.itemID, err = items.InsertItem(ctx, f.pageID, f.categoryID, 1000)
		require.NoError(t, err)
		require.NoError(t, items.InsertValue(ctx, f.itemID, f.imageAttr, domain.ImagePayload{
			URI: strp("file:///scans/1.png"), Alt: strp("first print"),
		}))
		require.NoError(t, items.InsertValue(ctx, f.itemID, f.multiAttr, domain.MultiselectPayload{
			Selections: []string{"Ink"},
		}))
		return nil
	})
	require.NoError(t, err)
	return f
}

func strp(s string) *string { return &s }

func getItem(t *testing.T, s *store.Store, id domain.ItemID) *domain.Item {
	t.Helper()
	var item *domain.Item
	err := s.WithRead(context.Background(), func(q store.Querier) error {
		var err error
		item, err = NewItemRepository(q).GetItemByID(context.Background(), id)
		return err
	})
	require.NoError(t, err)
	return item
}

func TestUpdateValueIsPartialPerColumn(t *testing.T) {
	s := newMigratedStore(t)
	f := seedCollection(t, s)

	// Updating only the alt text must leave the uri column untouched.
	err := s.WithExclusiveTx(context.Background(), func(q store.Querier) error {
		return NewItemRepository(q).UpdateValue(context.Background(), f.itemID, f.imageAttr,
			domain.ImagePayload{Alt: strp("retouched")})
	})
	require.NoError(t, err)

	item := getItem(t, s, f.itemID)
	for _, av := range item.Values {
		if av.AttributeID != f.imageAttr {
			continue
		}
		p := av.Payload.(domain.ImagePayload)
		require.NotNil(t, p.URI)
		assert.Equal(t, "file:///scans/1.png", *p.URI)
		require.NotNil(t, p.Alt)
		assert.Equal(t, "retouched", *p.Alt)
	}
}

func TestUpdateValueWithNoFieldsIsNoOp(t *testing.T) {
	s := newMigratedStore(t)
	f := seedCollection(t, s)

	err := s.WithExclusiveTx(context.Background(), func(q store.Querier) error {
		return NewItemRepository(q).UpdateValue(context.Background(), f.itemID, f.imageAttr,
			domain.ImagePayload{})
	})
	require.NoError(t, err)

	item := getItem(t, s, f.itemID)
	for _, av := range item.Values {
		if av.AttributeID == f.imageAttr {
			assert.Equal(t, "file:///scans/1.png", *av.Payload.(domain.ImagePayload).URI)
		}
	}
}

func TestDeleteItemValuesKeepsItemRow(t *testing.T) {
	s := newMigratedStore(t)
	f := seedCollection(t, s)

	err := s.WithExclusiveTx(context.Background(), func(q store.Querier) error {
		return NewItemRepository(q).DeleteItemValues(context.Background(), f.itemID)
	})
	require.NoError(t, err)

	// The item survives; its values read back as unset payloads.
	item := getItem(t, s, f.itemID)
	require.Len(t, item.Values, 2)
	for _, av := range item.Values {
		switch p := av.Payload.(type) {
		case domain.ImagePayload:
			assert.Nil(t, p.URI)
			assert.Nil(t, p.Alt)
		case domain.MultiselectPayload:
			assert.Nil(t, p.Selections)
		default:
			t.Fatalf("unexpected payload %T", av.Payload)
		}
	}
}

func TestDeleteItemReturnsOwningPage(t *testing.T) {
	s := newMigratedStore(t)
	f := seedCollection(t, s)

	err := s.WithExclusiveTx(context.Background(), func(q store.Querier) error {
		pageID, err := NewItemRepository(q).DeleteItem(context.Background(), f.itemID)
		require.NoError(t, err)
		assert.Equal(t, f.pageID, pageID)
		return nil
	})
	require.NoError(t, err)

	err = s.WithRead(context.Background(), func(q store.Querier) error {
		_, err := NewItemRepository(q).GetItemByID(context.Background(), f.itemID)
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMissingItemIsNotFound(t *testing.T) {
	s := newMigratedStore(t)

	err := s.WithExclusiveTx(context.Background(), func(q store.Querier) error {
		_, err := NewItemRepository(q).DeleteItem(context.Background(), domain.ItemID(404))
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteItemLookupFailureIsNotNotFound(t *testing.T) {
	s := newMigratedStore(t)
	f := seedCollection(t, s)

	// A failing page_id lookup that is not a missing row must surface as a
	// fetch failure, never as ErrNotFound.
	var q store.Querier
	require.NoError(t, s.WithRead(context.Background(), func(inner store.Querier) error {
		q = inner
		return nil
	}))
	require.NoError(t, s.Close())

	_, err := NewItemRepository(q).DeleteItem(context.Background(), f.itemID)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestDeleteAttributeCascadesToValues(t *testing.T) {
	s := newMigratedStore(t)
	f := seedCollection(t, s)

	err := s.WithExclusiveTx(context.Background(), func(q store.Querier) error {
		return NewItemRepository(q).DeleteAttribute(context.Background(), f.multiAttr)
	})
	require.NoError(t, err)

	item := getItem(t, s, f.itemID)
	require.Len(t, item.Values, 1)
	assert.Equal(t, f.imageAttr, item.Values[0].AttributeID)
}
