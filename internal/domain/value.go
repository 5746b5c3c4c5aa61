package domain

// ValuePayload is the closed union of per-type value shapes. Exactly one
// concrete payload exists per AttributeType; the unexported marker keeps the
// set closed to this package.
type ValuePayload interface {
	AttributeType() AttributeType
	payload()
}

// TextPayload carries a free-form string. Nil means the value is unset.
type TextPayload struct {
	Text *string
}

// DatePayload carries an ISO-parseable date string, not a native date.
type DatePayload struct {
	Date *string
}

// RatingPayload carries an integer from 1 to 5.
type RatingPayload struct {
	Rating *int
}

// MultiselectPayload carries the selected options. Selections are drawn from
// the attribute's options but not strictly constrained to them.
type MultiselectPayload struct {
	Selections []string
}

// ImagePayload carries an opaque URI plus optional alt text.
type ImagePayload struct {
	URI *string
	Alt *string
}

// LinkPayload carries a URL plus optional display text.
type LinkPayload struct {
	URL     *string
	Display *string
}

func (TextPayload) AttributeType() AttributeType        { return AttributeText }
func (DatePayload) AttributeType() AttributeType        { return AttributeDate }
func (RatingPayload) AttributeType() AttributeType      { return AttributeRating }
func (MultiselectPayload) AttributeType() AttributeType { return AttributeMultiselect }
func (ImagePayload) AttributeType() AttributeType       { return AttributeImage }
func (LinkPayload) AttributeType() AttributeType        { return AttributeLink }

func (TextPayload) payload()        {}
func (DatePayload) payload()        {}
func (RatingPayload) payload()      {}
func (MultiselectPayload) payload() {}
func (ImagePayload) payload()       {}
func (LinkPayload) payload()        {}

// EmptyPayload returns the unset payload for a type. Used when an attribute
// exists but its value row carries only nulls.
func EmptyPayload(t AttributeType) ValuePayload {
	switch t {
	case AttributeText:
		return TextPayload{}
	case AttributeDate:
		return DatePayload{}
	case AttributeRating:
		return RatingPayload{}
	case AttributeMultiselect:
		return MultiselectPayload{}
	case AttributeImage:
		return ImagePayload{}
	case AttributeLink:
		return LinkPayload{}
	}
	return nil
}

// AttributeValue binds one payload to one attribute of an item. Symbol and
// Options mirror the rating/multiselect sidecars for rendering.
type AttributeValue struct {
	AttributeID AttributeID
	Label       string
	Type        AttributeType
	Preview     bool
	Payload     ValuePayload
	Symbol      *string
	Options     []string
}

func (av AttributeValue) Validate() error {
	v := violations{entity: "attributeValue"}
	if av.AttributeID <= 0 {
		v.add("attributeId", "must be positive, got %d", av.AttributeID)
	}
	if !av.Type.Valid() {
		v.add("type", "unknown attribute type %q", av.Type)
		return v.err()
	}
	if av.Payload == nil {
		v.add("payload", "missing payload for type %q", av.Type)
		return v.err()
	}
	if av.Payload.AttributeType() != av.Type {
		v.add("payload", "payload shape %q does not match declared type %q", av.Payload.AttributeType(), av.Type)
		return v.err()
	}
	switch p := av.Payload.(type) {
	case RatingPayload:
		if p.Rating != nil && (*p.Rating < 1 || *p.Rating > 5) {
			v.add("rating", "must be between 1 and 5, got %d", *p.Rating)
		}
	case MultiselectPayload:
		if len(p.Selections) > MultiselectMaxOptions {
			v.add("selections", "at most %d selections, got %d", MultiselectMaxOptions, len(p.Selections))
		}
	}
	return v.err()
}
