package domain

import "unicode/utf8"

// CollectionMaxCategories bounds categories per collection.
const CollectionMaxCategories = 10

// CollectionCategory groups items inside one collection. Every item belongs
// to exactly one category.
type CollectionCategory struct {
	ID     CategoryID
	PageID PageID
	Name   string
}

func (c CollectionCategory) Validate() error {
	v := violations{entity: "collectionCategory"}
	if c.ID <= 0 {
		v.add("id", "must be positive, got %d", c.ID)
	}
	if c.PageID <= 0 {
		v.add("pageId", "must be positive, got %d", c.PageID)
	}
	checkLength(&v, "name", c.Name, 1, TitleMaxLen)
	return v.err()
}

// Collection is a page with a template and one to ten categories.
type Collection struct {
	Page       Page
	TemplateID TemplateID
	Categories []CollectionCategory
}

func (c Collection) Validate() error {
	if err := c.Page.Validate(); err != nil {
		return err
	}
	v := violations{entity: "collection"}
	if c.Page.Kind != KindCollection {
		v.add("kind", "page kind must be collection, got %q", c.Page.Kind)
	}
	if c.TemplateID <= 0 {
		v.add("templateId", "must be positive, got %d", c.TemplateID)
	}
	if len(c.Categories) < 1 || len(c.Categories) > CollectionMaxCategories {
		v.add("categories", "between 1 and %d categories required, got %d", CollectionMaxCategories, len(c.Categories))
	}
	for _, cat := range c.Categories {
		v.addErr("categories", cat.Validate())
	}
	return v.err()
}

// NewCollection is the create-side input: a page plus the template layout and
// category names created alongside it.
type NewCollection struct {
	Title      string
	Icon       *string
	Color      []string
	TagID      *TagID
	FolderID   *FolderID
	Categories []string
	Attributes []NewAttribute
}

func (n NewCollection) Validate() error {
	page := NewPage{Kind: KindCollection, Title: n.Title, Icon: n.Icon, Color: n.Color, TagID: n.TagID, FolderID: n.FolderID}
	if err := page.Validate(); err != nil {
		return err
	}
	v := violations{entity: "collection"}
	if len(n.Categories) < 1 || len(n.Categories) > CollectionMaxCategories {
		v.add("categories", "between 1 and %d categories required, got %d", CollectionMaxCategories, len(n.Categories))
	}
	for i, name := range n.Categories {
		if l := utf8.RuneCountInString(name); l < 1 || l > TitleMaxLen {
			v.add("categories", "category %d name length must be between 1 and %d", i, TitleMaxLen)
		}
	}
	preview := 0
	for _, a := range n.Attributes {
		if a.Preview {
			preview++
		}
	}
	validateTemplateAttributes(&v, len(n.Attributes), preview)
	for _, a := range n.Attributes {
		v.addErr("attributes", a.Validate())
	}
	return v.err()
}
