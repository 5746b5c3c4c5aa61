package domain

// ItemMaxValues bounds attribute values per item (one per template attribute,
// templates carry at most 10 attributes; the legacy cap allows 11).
const ItemMaxValues = 11

// Item is one entry in a collection, carrying exactly one value per attribute
// defined on the collection's template. PageTitle and CategoryName are joined
// in on read for display.
type Item struct {
	ID           ItemID
	PageID       PageID
	CategoryID   CategoryID
	PageTitle    string
	CategoryName string
	Values       []AttributeValue
	CreatedAt    int64
	UpdatedAt    int64
}

func (i Item) Validate() error {
	v := violations{entity: "item"}
	if i.ID <= 0 {
		v.add("id", "must be positive, got %d", i.ID)
	}
	if i.PageID <= 0 {
		v.add("pageId", "must be positive, got %d", i.PageID)
	}
	if i.CategoryID <= 0 {
		v.add("categoryId", "must be positive, got %d", i.CategoryID)
	}
	if len(i.Values) < 1 || len(i.Values) > ItemMaxValues {
		v.add("values", "between 1 and %d values required, got %d", ItemMaxValues, len(i.Values))
	}
	for _, av := range i.Values {
		v.addErr("values", av.Validate())
	}
	return v.err()
}

// NewItemValue pairs an attribute with the payload supplied on creation.
type NewItemValue struct {
	AttributeID AttributeID
	Payload     ValuePayload
}

// NewItem is the create-side input. Values must cover every attribute on the
// owning collection's template exactly once; the service checks coverage
// against the stored template.
type NewItem struct {
	PageID     PageID
	CategoryID CategoryID
	Values     []NewItemValue
}

func (n NewItem) Validate() error {
	v := violations{entity: "item"}
	if n.PageID <= 0 {
		v.add("pageId", "must be positive, got %d", n.PageID)
	}
	if n.CategoryID <= 0 {
		v.add("categoryId", "must be positive, got %d", n.CategoryID)
	}
	if len(n.Values) < 1 || len(n.Values) > ItemMaxValues {
		v.add("values", "between 1 and %d values required, got %d", ItemMaxValues, len(n.Values))
	}
	seen := make(map[AttributeID]bool, len(n.Values))
	for _, val := range n.Values {
		if val.AttributeID <= 0 {
			v.add("values", "attribute id must be positive, got %d", val.AttributeID)
			continue
		}
		if seen[val.AttributeID] {
			v.add("values", "duplicate value for attribute %d", val.AttributeID)
		}
		seen[val.AttributeID] = true
		if val.Payload == nil {
			v.add("values", "missing payload for attribute %d", val.AttributeID)
		}
	}
	return v.err()
}
