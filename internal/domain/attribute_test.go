package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiselectOptionBounds(t *testing.T) {
	cases := []struct {
		name    string
		options []string
		ok      bool
	}{
		{"one option", []string{"A"}, true},
		{"twenty options", manyOptions(20), true},
		{"no options", nil, false},
		{"twenty-one options", manyOptions(21), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attr := NewAttribute{Label: "Genre", Type: AttributeMultiselect, Options: tc.options}
			err := attr.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestOptionsIgnoredForNonMultiselect(t *testing.T) {
	for _, typ := range []AttributeType{AttributeText, AttributeDate, AttributeRating, AttributeImage, AttributeLink} {
		attr := NewAttribute{Label: "Field", Type: typ, Options: manyOptions(30)}
		assert.NoError(t, attr.Validate(), "type %s", typ)
	}
}

func TestAttributeLabelBounds(t *testing.T) {
	err := NewAttribute{Label: "", Type: AttributeText}.Validate()
	require.Error(t, err)

	err = NewAttribute{Label: strings.Repeat("x", 31), Type: AttributeText}.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "label", verr.Fields[0].Field)
}

func TestLengthBoundsCountCharacters(t *testing.T) {
	// Bounds are character counts, matching the schema's length() CHECKs, so
	// multibyte titles within 30 characters pass even though they exceed 30
	// bytes.
	page := NewPage{Kind: KindNote, Title: "Дневник чтения и заметок"}
	assert.NoError(t, page.Validate())

	attr := NewAttribute{Label: strings.Repeat("я", 30), Type: AttributeText}
	assert.NoError(t, attr.Validate())

	attr.Label = strings.Repeat("я", 31)
	assert.Error(t, attr.Validate())

	note := NewNote{Title: "Записки", Content: strptr(strings.Repeat("ё", NoteContentMaxLen))}
	assert.NoError(t, note.Validate())
}

func TestValidationErrorCollectsAllFields(t *testing.T) {
	err := NewAttribute{Label: "", Type: "color"}.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 2)
}

func TestTemplatePreviewCap(t *testing.T) {
	attrs := []NewAttribute{
		{Label: "A", Type: AttributeText, Preview: true},
		{Label: "B", Type: AttributeText, Preview: true},
		{Label: "C", Type: AttributeText, Preview: true},
		{Label: "D", Type: AttributeText, Preview: true},
	}
	col := NewCollection{Title: "Books", Categories: []string{"General"}, Attributes: attrs}
	assert.Error(t, col.Validate())

	attrs[3].Preview = false
	col.Attributes = attrs
	assert.NoError(t, col.Validate())
}

func manyOptions(n int) []string {
	opts := make([]string, n)
	for i := range opts {
		opts[i] = "opt"
	}
	return opts
}
