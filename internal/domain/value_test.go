package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strptr(s string) *string { return &s }
func intptr(n int) *int       { return &n }

func TestPayloadTypeMismatchRejected(t *testing.T) {
	av := AttributeValue{
		AttributeID: 1,
		Type:        AttributeRating,
		Payload:     MultiselectPayload{Selections: []string{"A"}},
	}
	assert.Error(t, av.Validate())

	av.Payload = RatingPayload{Rating: intptr(3)}
	assert.NoError(t, av.Validate())
}

func TestRatingRange(t *testing.T) {
	for rating, ok := range map[int]bool{0: false, 1: true, 5: true, 6: false} {
		av := AttributeValue{AttributeID: 1, Type: AttributeRating, Payload: RatingPayload{Rating: intptr(rating)}}
		err := av.Validate()
		if ok {
			assert.NoError(t, err, "rating %d", rating)
		} else {
			assert.Error(t, err, "rating %d", rating)
		}
	}

	// Unset rating is fine; the row exists once the attribute does.
	av := AttributeValue{AttributeID: 1, Type: AttributeRating, Payload: RatingPayload{}}
	assert.NoError(t, av.Validate())
}

func TestEmptyPayloadCoversEveryType(t *testing.T) {
	for _, typ := range []AttributeType{AttributeText, AttributeDate, AttributeRating, AttributeMultiselect, AttributeImage, AttributeLink} {
		p := EmptyPayload(typ)
		assert.NotNil(t, p, "type %s", typ)
		assert.Equal(t, typ, p.AttributeType())
	}
}

func TestNewItemRejectsDuplicateAttributes(t *testing.T) {
	item := NewItem{
		PageID:     1,
		CategoryID: 1,
		Values: []NewItemValue{
			{AttributeID: 7, Payload: TextPayload{Text: strptr("a")}},
			{AttributeID: 7, Payload: TextPayload{Text: strptr("b")}},
		},
	}
	assert.Error(t, item.Validate())
}

func TestPageValidation(t *testing.T) {
	page := NewPage{Kind: KindNote, Title: "Groceries", Color: []string{"#4599E8"}}
	assert.NoError(t, page.Validate())

	page.Color = []string{"blue"}
	assert.Error(t, page.Validate())

	page.Color = nil
	page.Title = ""
	assert.Error(t, page.Validate())
}
