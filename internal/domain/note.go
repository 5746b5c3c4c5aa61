package domain

import "unicode/utf8"

// NoteContentMaxLen bounds the free-form note body, in characters.
const NoteContentMaxLen = 20000

// Note is a page with optional long-form content. Content stays nil until the
// first save.
type Note struct {
	Page    Page
	Content *string
}

func (n Note) Validate() error {
	if err := n.Page.Validate(); err != nil {
		return err
	}
	v := violations{entity: "note"}
	if n.Page.Kind != KindNote {
		v.add("kind", "page kind must be note, got %q", n.Page.Kind)
	}
	if n.Content != nil {
		if l := utf8.RuneCountInString(*n.Content); l > NoteContentMaxLen {
			v.add("content", "length must be at most %d, got %d", NoteContentMaxLen, l)
		}
	}
	return v.err()
}

// NewNote is the create-side input for a note page.
type NewNote struct {
	Title    string
	Icon     *string
	Color    []string
	TagID    *TagID
	FolderID *FolderID
	Content  *string
}

func (n NewNote) Validate() error {
	page := NewPage{Kind: KindNote, Title: n.Title, Icon: n.Icon, Color: n.Color, TagID: n.TagID, FolderID: n.FolderID}
	if err := page.Validate(); err != nil {
		return err
	}
	v := violations{entity: "note"}
	if n.Content != nil {
		if l := utf8.RuneCountInString(*n.Content); l > NoteContentMaxLen {
			v.add("content", "length must be at most %d, got %d", NoteContentMaxLen, l)
		}
	}
	return v.err()
}
