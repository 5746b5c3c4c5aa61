package domain

import "fmt"

// Entity identifiers are distinct int64 newtypes so a PageID can never be
// passed where an AttributeID is expected. Constructors reject non-positive
// values; rows always carry ids assigned by the store.

type (
	PageID      int64
	CategoryID  int64
	TemplateID  int64
	AttributeID int64
	ItemID      int64
	TagID       int64
	FolderID    int64
)

func NewPageID(raw int64) (PageID, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("page id must be positive, got %d", raw)
	}
	return PageID(raw), nil
}

func NewCategoryID(raw int64) (CategoryID, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("category id must be positive, got %d", raw)
	}
	return CategoryID(raw), nil
}

func NewTemplateID(raw int64) (TemplateID, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("template id must be positive, got %d", raw)
	}
	return TemplateID(raw), nil
}

func NewAttributeID(raw int64) (AttributeID, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("attribute id must be positive, got %d", raw)
	}
	return AttributeID(raw), nil
}

func NewItemID(raw int64) (ItemID, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("item id must be positive, got %d", raw)
	}
	return ItemID(raw), nil
}

func NewTagID(raw int64) (TagID, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("tag id must be positive, got %d", raw)
	}
	return TagID(raw), nil
}

func NewFolderID(raw int64) (FolderID, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("folder id must be positive, got %d", raw)
	}
	return FolderID(raw), nil
}
