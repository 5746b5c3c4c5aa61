package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfkeep/shelfkeep/internal/domain"
	"github.com/shelfkeep/shelfkeep/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, store.NewMigrator(s, zerolog.Nop()).Run(context.Background()))
	return s
}

func newServices(t *testing.T) (*PageService, *ItemService) {
	t.Helper()
	s := newTestStore(t)
	return NewPageService(s, zerolog.Nop()), NewItemService(s, zerolog.Nop())
}

func strptr(s string) *string { return &s }
func intptr(n int) *int       { return &n }

// bookCollection creates a collection with one attribute of every type.
func bookCollection(t *testing.T, pages *PageService) *domain.Collection {
	t.Helper()
	col, err := pages.CreateCollection(context.Background(), domain.NewCollection{
		Title:      "Books",
		Color:      []string{"#176BBA"},
		Categories: []string{"Sci-Fi", "Fantasy"},
		Attributes: []domain.NewAttribute{
			{Label: "Author", Type: domain.AttributeText, Preview: true},
			{Label: "Rating", Type: domain.AttributeRating, Preview: true, Symbol: strptr("star")},
			{Label: "Genre", Type: domain.AttributeMultiselect, Options: []string{"Epic", "Space Opera", "Dystopia"}},
			{Label: "Cover", Type: domain.AttributeImage},
			{Label: "Shop", Type: domain.AttributeLink},
			{Label: "Finished", Type: domain.AttributeDate, Preview: true},
		},
	})
	require.NoError(t, err)
	return col
}

func attrByLabel(t *testing.T, attrs []domain.Attribute, label string) domain.Attribute {
	t.Helper()
	for _, a := range attrs {
		if a.Label == label {
			return a
		}
	}
	t.Fatalf("no attribute labelled %q", label)
	return domain.Attribute{}
}

func TestCollectionRoundTrip(t *testing.T) {
	pages, items := newServices(t)
	ctx := context.Background()

	col := bookCollection(t, pages)
	require.Len(t, col.Categories, 2)
	assert.Equal(t, "Sci-Fi", col.Categories[0].Name)
	assert.Equal(t, []string{"#176BBA"}, col.Page.Color)

	attrs, err := items.CollectionAttributes(ctx, col.Page.ID)
	require.NoError(t, err)
	require.Len(t, attrs, 6)
	genre := attrByLabel(t, attrs, "Genre")
	assert.ElementsMatch(t, []string{"Epic", "Space Opera", "Dystopia"}, genre.Options)
	rating := attrByLabel(t, attrs, "Rating")
	require.NotNil(t, rating.Symbol)
	assert.Equal(t, "star", *rating.Symbol)
}

func TestItemLifecycle(t *testing.T) {
	pages, items := newServices(t)
	ctx := context.Background()

	col := bookCollection(t, pages)
	attrs, err := items.CollectionAttributes(ctx, col.Page.ID)
	require.NoError(t, err)

	item, err := items.CreateItem(ctx, domain.NewItem{
		PageID:     col.Page.ID,
		CategoryID: col.Categories[0].ID,
		Values: []domain.NewItemValue{
			{AttributeID: attrByLabel(t, attrs, "Author").ID, Payload: domain.TextPayload{Text: strptr("Frank Herbert")}},
			{AttributeID: attrByLabel(t, attrs, "Rating").ID, Payload: domain.RatingPayload{Rating: intptr(5)}},
			{AttributeID: attrByLabel(t, attrs, "Genre").ID, Payload: domain.MultiselectPayload{Selections: []string{"Epic", "Space Opera"}}},
			{AttributeID: attrByLabel(t, attrs, "Cover").ID, Payload: domain.ImagePayload{URI: strptr("file:///covers/dune.png"), Alt: strptr("Dune cover")}},
			{AttributeID: attrByLabel(t, attrs, "Shop").ID, Payload: domain.LinkPayload{URL: strptr("https://example.com/dune")}},
			{AttributeID: attrByLabel(t, attrs, "Finished").ID, Payload: domain.DatePayload{}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Books", item.PageTitle)
	assert.Equal(t, "Sci-Fi", item.CategoryName)
	require.Len(t, item.Values, 6)

	// Every value came back from the table matching its attribute's type.
	for _, av := range item.Values {
		assert.Equal(t, av.Type, av.Payload.AttributeType(), "attribute %d", av.AttributeID)
	}

	got, err := items.GetItem(ctx, item.ID)
	require.NoError(t, err)
	for _, av := range got.Values {
		switch av.Label {
		case "Author":
			require.IsType(t, domain.TextPayload{}, av.Payload)
			assert.Equal(t, "Frank Herbert", *av.Payload.(domain.TextPayload).Text)
		case "Rating":
			assert.Equal(t, 5, *av.Payload.(domain.RatingPayload).Rating)
		case "Genre":
			assert.Equal(t, []string{"Epic", "Space Opera"}, av.Payload.(domain.MultiselectPayload).Selections)
		case "Finished":
			assert.Nil(t, av.Payload.(domain.DatePayload).Date)
		}
	}

	// Partial update: move category, bump rating, leave the rest alone.
	updated, err := items.UpdateItem(ctx, item.ID, &col.Categories[1].ID, []domain.NewItemValue{
		{AttributeID: attrByLabel(t, attrs, "Rating").ID, Payload: domain.RatingPayload{Rating: intptr(4)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Fantasy", updated.CategoryName)
	for _, av := range updated.Values {
		switch av.Label {
		case "Rating":
			assert.Equal(t, 4, *av.Payload.(domain.RatingPayload).Rating)
		case "Author":
			assert.Equal(t, "Frank Herbert", *av.Payload.(domain.TextPayload).Text)
		}
	}

	require.NoError(t, items.DeleteItem(ctx, item.ID))
	_, err = items.GetItem(ctx, item.ID)
	assert.Equal(t, KindNotFound, ErrKind(err))
}

func TestCreateItemEnforcesTemplateCoverage(t *testing.T) {
	pages, items := newServices(t)
	ctx := context.Background()

	col := bookCollection(t, pages)
	attrs, err := items.CollectionAttributes(ctx, col.Page.ID)
	require.NoError(t, err)
	author := attrByLabel(t, attrs, "Author")

	// One value for a six-attribute template.
	_, err = items.CreateItem(ctx, domain.NewItem{
		PageID:     col.Page.ID,
		CategoryID: col.Categories[0].ID,
		Values: []domain.NewItemValue{
			{AttributeID: author.ID, Payload: domain.TextPayload{Text: strptr("x")}},
		},
	})
	assert.Equal(t, KindValidation, ErrKind(err))

	// Full coverage but a mistyped payload.
	values := make([]domain.NewItemValue, 0, len(attrs))
	for _, a := range attrs {
		payload := domain.EmptyPayload(a.Type)
		if a.ID == author.ID {
			payload = domain.RatingPayload{Rating: intptr(3)}
		}
		values = append(values, domain.NewItemValue{AttributeID: a.ID, Payload: payload})
	}
	_, err = items.CreateItem(ctx, domain.NewItem{
		PageID:     col.Page.ID,
		CategoryID: col.Categories[0].ID,
		Values:     values,
	})
	assert.Equal(t, KindValidation, ErrKind(err))
}

func TestCreateItemRejectsForeignCategory(t *testing.T) {
	pages, items := newServices(t)
	ctx := context.Background()

	col := bookCollection(t, pages)
	other, err := pages.CreateCollection(ctx, domain.NewCollection{
		Title:      "Films",
		Categories: []string{"Watched"},
		Attributes: []domain.NewAttribute{{Label: "Director", Type: domain.AttributeText}},
	})
	require.NoError(t, err)

	attrs, err := items.CollectionAttributes(ctx, other.Page.ID)
	require.NoError(t, err)
	_, err = items.CreateItem(ctx, domain.NewItem{
		PageID:     other.Page.ID,
		CategoryID: col.Categories[0].ID,
		Values: []domain.NewItemValue{
			{AttributeID: attrs[0].ID, Payload: domain.TextPayload{Text: strptr("Lynch")}},
		},
	})
	assert.Equal(t, KindValidation, ErrKind(err))
}

func TestPreviewAttributesOrderedByID(t *testing.T) {
	pages, items := newServices(t)
	ctx := context.Background()

	col := bookCollection(t, pages)
	preview, err := items.PreviewAttributes(ctx, col.Page.ID)
	require.NoError(t, err)
	require.Len(t, preview, 3)
	assert.Equal(t, "Author", preview[0].Label)
	assert.Equal(t, "Rating", preview[1].Label)
	assert.Equal(t, "Finished", preview[2].Label)
	for i := 1; i < len(preview); i++ {
		assert.Less(t, preview[i-1].ID, preview[i].ID)
	}
}

func TestNoteLifecycle(t *testing.T) {
	pages, _ := newServices(t)
	ctx := context.Background()

	note, err := pages.CreateNote(ctx, domain.NewNote{Title: "Reading list"})
	require.NoError(t, err)
	assert.Nil(t, note.Content)

	require.NoError(t, pages.UpdateNoteContent(ctx, note.Page.ID, strptr("Dune, then Hyperion")))
	got, err := pages.GetNote(ctx, note.Page.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Content)
	assert.Equal(t, "Dune, then Hyperion", *got.Content)
	assert.Greater(t, got.Page.UpdatedAt, int64(0))

	require.NoError(t, pages.DeletePage(ctx, note.Page.ID))
	_, err = pages.GetNote(ctx, note.Page.ID)
	assert.Equal(t, KindNotFound, ErrKind(err))
}

func TestPinnedPageCap(t *testing.T) {
	pages, _ := newServices(t)
	ctx := context.Background()

	var ids []domain.PageID
	for i := 0; i < 5; i++ {
		note, err := pages.CreateNote(ctx, domain.NewNote{Title: fmt.Sprintf("Note %d", i)})
		require.NoError(t, err)
		ids = append(ids, note.Page.ID)
	}
	for _, id := range ids[:4] {
		require.NoError(t, pages.SetPinned(ctx, id, true))
	}

	err := pages.SetPinned(ctx, ids[4], true)
	assert.Equal(t, KindValidation, ErrKind(err))

	// Re-pinning an already pinned page is not a fifth pin.
	require.NoError(t, pages.SetPinned(ctx, ids[0], true))

	// Unpinning frees a slot.
	require.NoError(t, pages.SetPinned(ctx, ids[0], false))
	require.NoError(t, pages.SetPinned(ctx, ids[4], true))
}

func TestArchivingUnpins(t *testing.T) {
	pages, _ := newServices(t)
	ctx := context.Background()

	note, err := pages.CreateNote(ctx, domain.NewNote{Title: "Pinned"})
	require.NoError(t, err)
	require.NoError(t, pages.SetPinned(ctx, note.Page.ID, true))

	require.NoError(t, pages.SetArchived(ctx, note.Page.ID, true))
	got, err := pages.GetNote(ctx, note.Page.ID)
	require.NoError(t, err)
	assert.True(t, got.Page.Archived)
	assert.False(t, got.Page.Pinned)

	// Archived pages cannot be pinned.
	err = pages.SetPinned(ctx, note.Page.ID, true)
	assert.Equal(t, KindValidation, ErrKind(err))
}

func TestDeleteCollectionCascadesToItems(t *testing.T) {
	pages, items := newServices(t)
	ctx := context.Background()

	col := bookCollection(t, pages)
	attrs, err := items.CollectionAttributes(ctx, col.Page.ID)
	require.NoError(t, err)
	values := make([]domain.NewItemValue, 0, len(attrs))
	for _, a := range attrs {
		values = append(values, domain.NewItemValue{AttributeID: a.ID, Payload: domain.EmptyPayload(a.Type)})
	}
	item, err := items.CreateItem(ctx, domain.NewItem{
		PageID:     col.Page.ID,
		CategoryID: col.Categories[0].ID,
		Values:     values,
	})
	require.NoError(t, err)

	require.NoError(t, pages.DeletePage(ctx, col.Page.ID))
	_, err = items.GetItem(ctx, item.ID)
	assert.Equal(t, KindNotFound, ErrKind(err))
}

func TestValidationErrorsCollectAllFields(t *testing.T) {
	pages, _ := newServices(t)

	_, err := pages.CreateCollection(context.Background(), domain.NewCollection{
		Title:      "",
		Color:      []string{"not-a-color"},
		Categories: nil,
		Attributes: nil,
	})
	require.Equal(t, KindValidation, ErrKind(err))

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	fields := make(map[string]bool)
	for _, f := range ve.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["title"])
	assert.True(t, fields["color"])
}

func TestErrorKindsForMissingRows(t *testing.T) {
	pages, items := newServices(t)
	ctx := context.Background()

	_, err := items.GetItem(ctx, domain.ItemID(404))
	assert.Equal(t, KindNotFound, ErrKind(err))

	_, err = pages.GetCollection(ctx, domain.PageID(404))
	assert.Equal(t, KindNotFound, ErrKind(err))

	err = pages.DeletePage(ctx, domain.PageID(404))
	assert.Equal(t, KindNotFound, ErrKind(err))
}
