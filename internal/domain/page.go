package domain

import "regexp"

// PageKind discriminates the two page flavors. A page is either a note or a
// collection, never both.
type PageKind string

const (
	KindNote       PageKind = "note"
	KindCollection PageKind = "collection"
)

func (k PageKind) Valid() bool {
	return k == KindNote || k == KindCollection
}

const (
	TitleMaxLen = 30
	// MaxPinnedPages caps pinned pages system-wide.
	MaxPinnedPages = 4
	// maxGradientStops bounds the color list; a single entry is a plain color.
	maxGradientStops = 4
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Page is the base identity shared by Note and Collection.
// Color holds one hex stop for a plain color or several for a gradient.
type Page struct {
	ID        PageID
	Kind      PageKind
	Title     string
	Icon      *string
	Color     []string
	Archived  bool
	Pinned    bool
	TagID     *TagID
	FolderID  *FolderID
	CreatedAt int64
	UpdatedAt int64
}

// Validate is the read-side check for a fully hydrated page row.
func (p Page) Validate() error {
	v := violations{entity: "page"}
	if p.ID <= 0 {
		v.add("id", "must be positive, got %d", p.ID)
	}
	if !p.Kind.Valid() {
		v.add("kind", "must be note or collection, got %q", p.Kind)
	}
	checkLength(&v, "title", p.Title, 1, TitleMaxLen)
	validateColor(&v, p.Color)
	if p.TagID != nil && *p.TagID <= 0 {
		v.add("tagId", "must be positive, got %d", *p.TagID)
	}
	if p.FolderID != nil && *p.FolderID <= 0 {
		v.add("folderId", "must be positive, got %d", *p.FolderID)
	}
	return v.err()
}

// NewPage is the user-supplied shape for creating a page. Identity and
// timestamps are assigned by the store.
type NewPage struct {
	Kind     PageKind
	Title    string
	Icon     *string
	Color    []string
	TagID    *TagID
	FolderID *FolderID
}

func (n NewPage) Validate() error {
	v := violations{entity: "page"}
	if !n.Kind.Valid() {
		v.add("kind", "must be note or collection, got %q", n.Kind)
	}
	checkLength(&v, "title", n.Title, 1, TitleMaxLen)
	validateColor(&v, n.Color)
	if n.TagID != nil && *n.TagID <= 0 {
		v.add("tagId", "must be positive, got %d", *n.TagID)
	}
	if n.FolderID != nil && *n.FolderID <= 0 {
		v.add("folderId", "must be positive, got %d", *n.FolderID)
	}
	return v.err()
}

func validateColor(v *violations, color []string) {
	if len(color) > maxGradientStops {
		v.add("color", "at most %d gradient stops, got %d", maxGradientStops, len(color))
	}
	for _, stop := range color {
		if !hexColorRe.MatchString(stop) {
			v.add("color", "%q is not a hex color", stop)
		}
	}
}
