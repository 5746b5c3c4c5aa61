// Package repository translates between relational row shapes and the domain
// model for the item/attribute/value subsystem.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shelfkeep/shelfkeep/internal/domain"
	"github.com/shelfkeep/shelfkeep/internal/store"
)

// ErrNotFound marks a lookup whose key has no matching row, as opposed to a
// failed fetch.
var ErrNotFound = errors.New("not found")

// valueTable maps an attribute type to the table holding its payload. Text
// and date share the string table; the other shapes each have their own.
// This is the single place the type→table relationship is declared.
type valueTable struct {
	name    string
	columns string // payload columns, comma separated, in insert order
}

var valueTables = map[domain.AttributeType]valueTable{
	domain.AttributeText:        {name: "value_strings", columns: "value"},
	domain.AttributeDate:        {name: "value_strings", columns: "value"},
	domain.AttributeRating:      {name: "value_ratings", columns: "rating"},
	domain.AttributeMultiselect: {name: "value_multiselects", columns: "selections"},
	domain.AttributeImage:       {name: "value_images", columns: "uri, alt_text"},
	domain.AttributeLink:        {name: "value_links", columns: "url, display_text"},
}

// ItemRepository owns the EAV-shaped tables: attributes with their sidecars,
// items, and the five value tables. It runs against whatever Querier the
// caller supplies; composite writes are wrapped in a transaction by the
// service layer, never here.
type ItemRepository struct {
	q store.Querier
}

func NewItemRepository(q store.Querier) *ItemRepository {
	return &ItemRepository{q: q}
}

// GetItemByID hydrates one item: its page title, category name, and one
// attribute value per template attribute, each read from the value table
// matching the attribute's type.
func (r *ItemRepository) GetItemByID(ctx context.Context, id domain.ItemID) (*domain.Item, error) {
	var (
		item       domain.Item
		templateID domain.TemplateID
	)
	item.ID = id
	err := r.q.QueryRowContext(ctx, `
		SELECT i.page_id, i.category_id, i.created_at, i.updated_at, p.title, cat.name, col.template_id
		FROM items i
		JOIN pages p ON p.id = i.page_id
		JOIN collections col ON col.page_id = i.page_id
		JOIN collection_categories cat ON cat.id = i.category_id
		WHERE i.id = ?
	`, id).Scan(&item.PageID, &item.CategoryID, &item.CreatedAt, &item.UpdatedAt,
		&item.PageTitle, &item.CategoryName, &templateID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch item %d: %w", id, err)
	}

	attrs, err := r.templateAttributes(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("fetch item %d attributes: %w", id, err)
	}
	for _, attr := range attrs {
		payload, err := r.readValue(ctx, id, attr)
		if err != nil {
			return nil, fmt.Errorf("fetch item %d value for attribute %d: %w", id, attr.ID, err)
		}
		item.Values = append(item.Values, domain.AttributeValue{
			AttributeID: attr.ID,
			Label:       attr.Label,
			Type:        attr.Type,
			Preview:     attr.Preview,
			Payload:     payload,
			Symbol:      attr.Symbol,
			Options:     attr.Options,
		})
	}
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("item %d failed read validation: %w", id, err)
	}
	return &item, nil
}

// GetPreviewAttributes returns the preview-flagged attributes of the
// collection at pageID, ordered by attribute id ascending. The ordering is
// load-bearing: preview columns are rendered positionally.
func (r *ItemRepository) GetPreviewAttributes(ctx context.Context, pageID domain.PageID) ([]domain.Attribute, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT a.id, a.template_id, a.label, a.attr_type, a.preview, rs.symbol, ao.options
		FROM attributes a
		JOIN collections col ON col.template_id = a.template_id
		LEFT JOIN rating_symbols rs ON rs.attribute_id = a.id
		LEFT JOIN attribute_options ao ON ao.attribute_id = a.id
		WHERE col.page_id = ? AND a.preview = 1
		ORDER BY a.id ASC
	`, pageID)
	if err != nil {
		return nil, fmt.Errorf("fetch preview attributes for page %d: %w", pageID, err)
	}
	defer rows.Close()
	return scanAttributes(rows)
}

// ListTemplateAttributes returns every attribute of a template, id ascending.
func (r *ItemRepository) ListTemplateAttributes(ctx context.Context, templateID domain.TemplateID) ([]domain.Attribute, error) {
	attrs, err := r.templateAttributes(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("fetch attributes for template %d: %w", templateID, err)
	}
	return attrs, nil
}

func (r *ItemRepository) templateAttributes(ctx context.Context, templateID domain.TemplateID) ([]domain.Attribute, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT a.id, a.template_id, a.label, a.attr_type, a.preview, rs.symbol, ao.options
		FROM attributes a
		LEFT JOIN rating_symbols rs ON rs.attribute_id = a.id
		LEFT JOIN attribute_options ao ON ao.attribute_id = a.id
		WHERE a.template_id = ?
		ORDER BY a.id ASC
	`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttributes(rows)
}

func scanAttributes(rows *sql.Rows) ([]domain.Attribute, error) {
	var attrs []domain.Attribute
	for rows.Next() {
		var (
			a       domain.Attribute
			preview int
			symbol  sql.NullString
			options sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.TemplateID, &a.Label, &a.Type, &preview, &symbol, &options); err != nil {
			return nil, err
		}
		a.Preview = preview != 0
		if symbol.Valid {
			a.Symbol = &symbol.String
		}
		if options.Valid {
			if err := json.Unmarshal([]byte(options.String), &a.Options); err != nil {
				return nil, fmt.Errorf("parse options for attribute %d: %w", a.ID, err)
			}
		}
		attrs = append(attrs, a)
	}
	return attrs, rows.Err()
}

// readValue reads the value row for (item, attribute) from the table mapped
// to the attribute's type. A missing row yields the unset payload.
func (r *ItemRepository) readValue(ctx context.Context, itemID domain.ItemID, attr domain.Attribute) (domain.ValuePayload, error) {
	vt, ok := valueTables[attr.Type]
	if !ok {
		return nil, fmt.Errorf("no value table for attribute type %q", attr.Type)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE item_id = ? AND attribute_id = ?`, vt.columns, vt.name)
	row := r.q.QueryRowContext(ctx, query, itemID, attr.ID)

	switch attr.Type {
	case domain.AttributeText, domain.AttributeDate:
		var v sql.NullString
		if err := scanOrEmpty(row.Scan(&v)); err != nil {
			return nil, err
		}
		if attr.Type == domain.AttributeDate {
			return domain.DatePayload{Date: nullStr(v)}, nil
		}
		return domain.TextPayload{Text: nullStr(v)}, nil
	case domain.AttributeRating:
		var v sql.NullInt64
		if err := scanOrEmpty(row.Scan(&v)); err != nil {
			return nil, err
		}
		return domain.RatingPayload{Rating: nullInt(v)}, nil
	case domain.AttributeMultiselect:
		var v sql.NullString
		if err := scanOrEmpty(row.Scan(&v)); err != nil {
			return nil, err
		}
		var selections []string
		if v.Valid {
			if err := json.Unmarshal([]byte(v.String), &selections); err != nil {
				return nil, fmt.Errorf("parse selections: %w", err)
			}
		}
		return domain.MultiselectPayload{Selections: selections}, nil
	case domain.AttributeImage:
		var uri, alt sql.NullString
		if err := scanOrEmpty(row.Scan(&uri, &alt)); err != nil {
			return nil, err
		}
		return domain.ImagePayload{URI: nullStr(uri), Alt: nullStr(alt)}, nil
	case domain.AttributeLink:
		var url, display sql.NullString
		if err := scanOrEmpty(row.Scan(&url, &display)); err != nil {
			return nil, err
		}
		return domain.LinkPayload{URL: nullStr(url), Display: nullStr(display)}, nil
	}
	return nil, fmt.Errorf("unhandled attribute type %q", attr.Type)
}

// scanOrEmpty treats a missing value row as an unset value rather than an
// error; the row is created with the attribute but may lag for legacy data.
func scanOrEmpty(err error) error {
	if err == sql.ErrNoRows {
		return nil
	}
	return err
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
