package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shelfkeep/shelfkeep/internal/domain"
)

// InsertItem writes the item row and returns its assigned id. Value rows are
// inserted separately; the caller owns the enclosing transaction.
func (r *ItemRepository) InsertItem(ctx context.Context, pageID domain.PageID, categoryID domain.CategoryID, now int64) (domain.ItemID, error) {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO items (page_id, category_id, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, pageID, categoryID, now, now)
	if err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	raw, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	return domain.NewItemID(raw)
}

// InsertValue writes one value row into the table mapped to the payload's
// type. Routing happens here, once, off the closed payload union.
func (r *ItemRepository) InsertValue(ctx context.Context, itemID domain.ItemID, attributeID domain.AttributeID, payload domain.ValuePayload) error {
	var args []any
	switch p := payload.(type) {
	case domain.TextPayload:
		args = []any{p.Text}
	case domain.DatePayload:
		args = []any{p.Date}
	case domain.RatingPayload:
		args = []any{p.Rating}
	case domain.MultiselectPayload:
		serialized, err := serializeSelections(p.Selections)
		if err != nil {
			return err
		}
		args = []any{serialized}
	case domain.ImagePayload:
		args = []any{p.URI, p.Alt}
	case domain.LinkPayload:
		args = []any{p.URL, p.Display}
	default:
		return fmt.Errorf("insert value: unknown payload %T", payload)
	}

	vt := valueTables[payload.AttributeType()]
	placeholders := strings.Repeat(", ?", strings.Count(vt.columns, ",")+1)
	query := fmt.Sprintf(
		`INSERT INTO %s (item_id, attribute_id%s) VALUES (?, ?%s)`,
		vt.name, ", "+vt.columns, placeholders)
	if _, err := r.q.ExecContext(ctx, query, append([]any{itemID, attributeID}, args...)...); err != nil {
		return fmt.Errorf("insert %s value for item %d attribute %d: %w", payload.AttributeType(), itemID, attributeID, err)
	}
	return nil
}

// UpdateItem moves an item to another category. A nil categoryID leaves the
// category unchanged and only bumps updated_at.
func (r *ItemRepository) UpdateItem(ctx context.Context, id domain.ItemID, categoryID *domain.CategoryID, now int64) error {
	var err error
	if categoryID != nil {
		_, err = r.q.ExecContext(ctx,
			`UPDATE items SET category_id = ?, updated_at = ? WHERE id = ?`, *categoryID, now, id)
	} else {
		_, err = r.q.ExecContext(ctx,
			`UPDATE items SET updated_at = ? WHERE id = ?`, now, id)
	}
	if err != nil {
		return fmt.Errorf("update item %d: %w", id, err)
	}
	return nil
}

// UpdateValue rewrites the value row keyed by (item, attribute). Nil payload
// fields are left unchanged; multiselect updates re-serialize the full list.
func (r *ItemRepository) UpdateValue(ctx context.Context, itemID domain.ItemID, attributeID domain.AttributeID, payload domain.ValuePayload) error {
	type col struct {
		name  string
		value any
	}
	var cols []col
	switch p := payload.(type) {
	case domain.TextPayload:
		if p.Text != nil {
			cols = append(cols, col{"value", *p.Text})
		}
	case domain.DatePayload:
		if p.Date != nil {
			cols = append(cols, col{"value", *p.Date})
		}
	case domain.RatingPayload:
		if p.Rating != nil {
			cols = append(cols, col{"rating", *p.Rating})
		}
	case domain.MultiselectPayload:
		if p.Selections != nil {
			serialized, err := serializeSelections(p.Selections)
			if err != nil {
				return err
			}
			cols = append(cols, col{"selections", serialized})
		}
	case domain.ImagePayload:
		if p.URI != nil {
			cols = append(cols, col{"uri", *p.URI})
		}
		if p.Alt != nil {
			cols = append(cols, col{"alt_text", *p.Alt})
		}
	case domain.LinkPayload:
		if p.URL != nil {
			cols = append(cols, col{"url", *p.URL})
		}
		if p.Display != nil {
			cols = append(cols, col{"display_text", *p.Display})
		}
	default:
		return fmt.Errorf("update value: unknown payload %T", payload)
	}
	if len(cols) == 0 {
		return nil
	}

	vt := valueTables[payload.AttributeType()]
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+2)
	for i, c := range cols {
		sets[i] = c.name + " = ?"
		args = append(args, c.value)
	}
	args = append(args, itemID, attributeID)
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE item_id = ? AND attribute_id = ?`,
		vt.name, strings.Join(sets, ", "))
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update %s value for item %d attribute %d: %w", payload.AttributeType(), itemID, attributeID, err)
	}
	return nil
}

// DeleteItemValues clears every value row of an item across all five tables.
// The FK cascades cover this on item deletion; this exists for re-templating
// flows that keep the item row.
func (r *ItemRepository) DeleteItemValues(ctx context.Context, itemID domain.ItemID) error {
	for _, table := range []string{"value_strings", "value_ratings", "value_multiselects", "value_images", "value_links"} {
		if _, err := r.q.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE item_id = ?`, table), itemID); err != nil {
			return fmt.Errorf("delete %s for item %d: %w", table, itemID, err)
		}
	}
	return nil
}

// DeleteItem removes the item (value rows cascade) and returns the owning
// page id so the caller can touch the page's updated_at.
func (r *ItemRepository) DeleteItem(ctx context.Context, id domain.ItemID) (domain.PageID, error) {
	var pageID domain.PageID
	err := r.q.QueryRowContext(ctx, `SELECT page_id FROM items WHERE id = ?`, id).Scan(&pageID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("fetch item %d: %w", id, err)
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return 0, fmt.Errorf("delete item %d: %w", id, err)
	}
	return pageID, nil
}

// InsertAttribute writes an attribute definition plus its type-specific
// sidecar rows (options for multiselect, symbol for rating).
func (r *ItemRepository) InsertAttribute(ctx context.Context, templateID domain.TemplateID, attr domain.NewAttribute) (domain.AttributeID, error) {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO attributes (template_id, label, attr_type, preview)
		VALUES (?, ?, ?, ?)
	`, templateID, attr.Label, attr.Type, boolToInt(attr.Preview))
	if err != nil {
		return 0, fmt.Errorf("insert attribute: %w", err)
	}
	raw, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert attribute: %w", err)
	}
	id, err := domain.NewAttributeID(raw)
	if err != nil {
		return 0, err
	}

	switch attr.Type {
	case domain.AttributeMultiselect:
		serialized, err := serializeSelections(attr.Options)
		if err != nil {
			return 0, err
		}
		if _, err := r.q.ExecContext(ctx,
			`INSERT INTO attribute_options (attribute_id, options) VALUES (?, ?)`,
			id, serialized); err != nil {
			return 0, fmt.Errorf("insert options for attribute %d: %w", id, err)
		}
	case domain.AttributeRating:
		symbol := "star"
		if attr.Symbol != nil {
			symbol = *attr.Symbol
		}
		if _, err := r.q.ExecContext(ctx,
			`INSERT INTO rating_symbols (attribute_id, symbol) VALUES (?, ?)`,
			id, symbol); err != nil {
			return 0, fmt.Errorf("insert symbol for attribute %d: %w", id, err)
		}
	}
	return id, nil
}

// DeleteAttribute removes the definition; sidecars and every value row
// referencing it cascade via the declared FK actions.
func (r *ItemRepository) DeleteAttribute(ctx context.Context, id domain.AttributeID) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM attributes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete attribute %d: %w", id, err)
	}
	return nil
}

func serializeSelections(selections []string) (*string, error) {
	if selections == nil {
		return nil, nil
	}
	raw, err := json.Marshal(selections)
	if err != nil {
		return nil, fmt.Errorf("serialize selections: %w", err)
	}
	s := string(raw)
	return &s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
