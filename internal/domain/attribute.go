package domain

// AttributeType is the discriminator for user-defined collection fields.
type AttributeType string

const (
	AttributeText        AttributeType = "text"
	AttributeDate        AttributeType = "date"
	AttributeRating      AttributeType = "rating"
	AttributeMultiselect AttributeType = "multiselect"
	AttributeImage       AttributeType = "image"
	AttributeLink        AttributeType = "link"
)

func (t AttributeType) Valid() bool {
	switch t {
	case AttributeText, AttributeDate, AttributeRating, AttributeMultiselect, AttributeImage, AttributeLink:
		return true
	}
	return false
}

const (
	// TemplateMaxAttributes bounds attributes per item template.
	TemplateMaxAttributes = 10
	// TemplateMaxPreview bounds preview-flagged attributes per template.
	TemplateMaxPreview = 3
	// MultiselectMaxOptions bounds options per multiselect attribute.
	MultiselectMaxOptions = 20
)

// Attribute is one user-authored field definition on an item template.
// Options is populated iff Type is multiselect; Symbol iff Type is rating.
type Attribute struct {
	ID         AttributeID
	TemplateID TemplateID
	Label      string
	Type       AttributeType
	Preview    bool
	Options    []string
	Symbol     *string
}

func (a Attribute) Validate() error {
	v := violations{entity: "attribute"}
	if a.ID <= 0 {
		v.add("id", "must be positive, got %d", a.ID)
	}
	if a.TemplateID <= 0 {
		v.add("templateId", "must be positive, got %d", a.TemplateID)
	}
	validateAttributeShape(&v, a.Label, a.Type, a.Options)
	return v.err()
}

// NewAttribute is the create-side shape of an attribute definition.
type NewAttribute struct {
	Label   string
	Type    AttributeType
	Preview bool
	Options []string
	Symbol  *string
}

func (n NewAttribute) Validate() error {
	v := violations{entity: "attribute"}
	validateAttributeShape(&v, n.Label, n.Type, n.Options)
	return v.err()
}

// validateAttributeShape holds the shared invariants: label bounds, a known
// type, and 1-20 options iff multiselect. Options on any other type are
// ignored rather than rejected.
func validateAttributeShape(v *violations, label string, typ AttributeType, options []string) {
	checkLength(v, "label", label, 1, TitleMaxLen)
	if !typ.Valid() {
		v.add("type", "unknown attribute type %q", typ)
		return
	}
	if typ != AttributeMultiselect {
		return
	}
	if len(options) < 1 || len(options) > MultiselectMaxOptions {
		v.add("options", "multiselect requires between 1 and %d options, got %d", MultiselectMaxOptions, len(options))
	}
	for i, opt := range options {
		if opt == "" {
			v.add("options", "option %d is empty", i)
		}
	}
}

// ItemTemplate is the ordered field layout backing one collection. Templates
// are created once per collection and never shared.
type ItemTemplate struct {
	ID         TemplateID
	Name       string
	Attributes []Attribute
}

func (t ItemTemplate) Validate() error {
	v := violations{entity: "itemTemplate"}
	if t.ID <= 0 {
		v.add("id", "must be positive, got %d", t.ID)
	}
	validateTemplateAttributes(&v, len(t.Attributes), previewCount(t.Attributes))
	for _, a := range t.Attributes {
		v.addErr("attributes", a.Validate())
	}
	return v.err()
}

func validateTemplateAttributes(v *violations, total, preview int) {
	if total < 1 || total > TemplateMaxAttributes {
		v.add("attributes", "between 1 and %d attributes required, got %d", TemplateMaxAttributes, total)
	}
	if preview > TemplateMaxPreview {
		v.add("attributes", "at most %d preview attributes, got %d", TemplateMaxPreview, preview)
	}
}

func previewCount(attrs []Attribute) int {
	n := 0
	for _, a := range attrs {
		if a.Preview {
			n++
		}
	}
	return n
}
