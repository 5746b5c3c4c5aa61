package store

import (
	"context"
	"database/sql"
	"fmt"
)

// A Step is one declarative action inside a migration procedure. Steps run in
// declared order, each inside its own exclusive transaction, and every step
// guards against a shape it has already produced.
type Step struct {
	Name string
	Run  func(ctx context.Context, q Querier) error
}

// A Migration carries the database from Version-1 to Version.
type Migration struct {
	Version int
	Steps   []Step
}

// Catalog returns the ordered migration procedures. Step order within a
// version is significant: remediation passes run before the rebuilds that
// depend on their output.
func Catalog() []Migration {
	return []Migration{
		{Version: 1, Steps: []Step{
			{Name: "remap legacy page colors", Run: stepRemapColorsV1},
			{Name: "create collection_categories", Run: stepCreateCategories},
			{Name: "backfill default categories", Run: stepBackfillCategories},
			{Name: "rebuild items with category reference", Run: stepRebuildItemsWithCategory},
		}},
		{Version: 2, Steps: []Step{
			{Name: "create value_images", Run: stepCreateValueImages},
			{Name: "create value_links", Run: stepCreateValueLinks},
			{Name: "rebuild attributes with preview flag", Run: stepRebuildAttributes},
			{Name: "consolidate attribute options", Run: stepConsolidateOptions},
			{Name: "consolidate multiselect values", Run: stepConsolidateMultiselects},
		}},
		{Version: 3, Steps: []Step{
			{Name: "remap default page colors", Run: stepRemapColorsV3},
			{Name: "rebuild pages with constraints", Run: stepRebuildPages},
			{Name: "rebuild notes with cascade", Run: stepRebuildNotes},
		}},
		{Version: 4, Steps: []Step{
			{Name: "rebuild collections with cascade", Run: stepRebuildCollections},
			{Name: "rebuild collection_categories with constraints", Run: stepRebuildCategories},
			{Name: "rebuild rating_symbols with cascade", Run: stepRebuildRatingSymbols},
			{Name: "rebuild value_strings with cascade", Run: stepRebuildValueStrings},
			{Name: "rebuild value_ratings with constraints", Run: stepRebuildValueRatings},
		}},
	}
}

func maxCatalogVersion() int {
	max := 0
	for _, m := range Catalog() {
		if m.Version > max {
			max = m.Version
		}
	}
	return max
}

// ---------------------------------------------------------------------------
// Version 1
// ---------------------------------------------------------------------------

// legacyColorsV1 replaces the launch palette. The remap keys are values that
// only exist in pre-v1 databases, so re-running never touches migrated rows.
var legacyColorsV1 = map[string]string{
	"#ffffff": "#4599E8",
	"#f28b82": "#E84563",
	"#ccff90": "#45E87A",
	"#fff475": "#E8C445",
	"#aecbfa": "#4563E8",
}

func stepRemapColorsV1(ctx context.Context, q Querier) error {
	return remapColors(ctx, q, legacyColorsV1)
}

func stepCreateCategories(ctx context.Context, q Querier) error {
	_, err := q.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS collection_categories (
		    id INTEGER PRIMARY KEY AUTOINCREMENT,
		    page_id INTEGER NOT NULL,
		    name TEXT NOT NULL,
		    FOREIGN KEY (page_id) REFERENCES pages (id) ON DELETE CASCADE
		)`)
	return err
}

// stepBackfillCategories gives every collection that already has items one
// category to hang them on. Must run before the items rebuild, which drops
// rows it cannot assign.
func stepBackfillCategories(ctx context.Context, q Querier) error {
	done, err := tableHasColumn(ctx, q, "items", "category_id")
	if err != nil || done {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO collection_categories (page_id, name)
		SELECT DISTINCT i.page_id, 'General'
		FROM items i
		WHERE NOT EXISTS (
		    SELECT 1 FROM collection_categories c WHERE c.page_id = i.page_id
		)`)
	return err
}

func stepRebuildItemsWithCategory(ctx context.Context, q Querier) error {
	done, err := tableHasColumn(ctx, q, "items", "category_id")
	if err != nil || done {
		return err
	}
	return rebuildTable(ctx, q, "items", `
		CREATE TABLE items_new (
		    id INTEGER PRIMARY KEY AUTOINCREMENT,
		    page_id INTEGER NOT NULL,
		    category_id INTEGER NOT NULL,
		    created_at INTEGER NOT NULL,
		    updated_at INTEGER NOT NULL,
		    FOREIGN KEY (page_id) REFERENCES pages (id) ON DELETE CASCADE,
		    FOREIGN KEY (category_id) REFERENCES collection_categories (id) ON DELETE CASCADE
		)`, `
		INSERT INTO items_new (id, page_id, category_id, created_at, updated_at)
		SELECT o.id, o.page_id,
		       (SELECT c.id FROM collection_categories c
		        WHERE c.page_id = o.page_id ORDER BY c.id LIMIT 1),
		       o.created_at, o.updated_at
		FROM items o
		WHERE EXISTS (SELECT 1 FROM collection_categories c WHERE c.page_id = o.page_id)`)
}

// ---------------------------------------------------------------------------
// Version 2
// ---------------------------------------------------------------------------

func stepCreateValueImages(ctx context.Context, q Querier) error {
	_, err := q.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS value_images (
		    item_id INTEGER NOT NULL,
		    attribute_id INTEGER NOT NULL,
		    uri TEXT,
		    alt_text TEXT,
		    PRIMARY KEY (item_id, attribute_id),
		    FOREIGN KEY (item_id) REFERENCES items (id) ON DELETE CASCADE,
		    FOREIGN KEY (attribute_id) REFERENCES attributes (id) ON DELETE CASCADE
		)`)
	return err
}

func stepCreateValueLinks(ctx context.Context, q Querier) error {
	_, err := q.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS value_links (
		    item_id INTEGER NOT NULL,
		    attribute_id INTEGER NOT NULL,
		    url TEXT,
		    display_text TEXT,
		    PRIMARY KEY (item_id, attribute_id),
		    FOREIGN KEY (item_id) REFERENCES items (id) ON DELETE CASCADE,
		    FOREIGN KEY (attribute_id) REFERENCES attributes (id) ON DELETE CASCADE
		)`)
	return err
}

func stepRebuildAttributes(ctx context.Context, q Querier) error {
	done, err := tableHasColumn(ctx, q, "attributes", "preview")
	if err != nil || done {
		return err
	}
	return rebuildTable(ctx, q, "attributes", `
		CREATE TABLE attributes_new (
		    id INTEGER PRIMARY KEY AUTOINCREMENT,
		    template_id INTEGER NOT NULL,
		    label TEXT NOT NULL CHECK (length(label) BETWEEN 1 AND 30),
		    attr_type TEXT NOT NULL CHECK (attr_type IN ('text','date','rating','multiselect','image','link')),
		    preview INTEGER NOT NULL DEFAULT 0,
		    FOREIGN KEY (template_id) REFERENCES item_templates (id) ON DELETE CASCADE
		)`, `
		INSERT INTO attributes_new (id, template_id, label, attr_type, preview)
		SELECT id, template_id,
		       CASE WHEN length(label) = 0 THEN '-' ELSE substr(label, 1, 30) END,
		       attr_type, 0
		FROM attributes`)
}

// stepConsolidateOptions collapses the legacy one-row-per-option table into
// one JSON-array row per attribute. Historical rows hold JSON arrays, bare
// JSON strings, or opaque strings; all three are merged and deduplicated.
func stepConsolidateOptions(ctx context.Context, q Querier) error {
	legacy, err := tableHasColumn(ctx, q, "attribute_options", "option")
	if err != nil || !legacy {
		return err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT attribute_id, option FROM attribute_options ORDER BY attribute_id, id`)
	if err != nil {
		return fmt.Errorf("read legacy options: %w", err)
	}
	defer rows.Close()

	var order []int64
	grouped := make(map[int64][]sql.NullString)
	for rows.Next() {
		var attrID int64
		var value sql.NullString
		if err := rows.Scan(&attrID, &value); err != nil {
			return fmt.Errorf("scan legacy option: %w", err)
		}
		if _, ok := grouped[attrID]; !ok {
			order = append(order, attrID)
		}
		grouped[attrID] = append(grouped[attrID], value)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read legacy options: %w", err)
	}

	if _, err := q.ExecContext(ctx, `
		CREATE TABLE attribute_options_new (
		    attribute_id INTEGER PRIMARY KEY,
		    options TEXT,
		    FOREIGN KEY (attribute_id) REFERENCES attributes (id) ON DELETE CASCADE
		)`); err != nil {
		return fmt.Errorf("create consolidated options table: %w", err)
	}
	for _, attrID := range order {
		merged, err := consolidateListValues(grouped[attrID])
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx,
			`INSERT INTO attribute_options_new (attribute_id, options) VALUES (?, ?)`,
			attrID, merged); err != nil {
			return fmt.Errorf("write consolidated options for attribute %d: %w", attrID, err)
		}
	}
	if _, err := q.ExecContext(ctx, `DROP TABLE attribute_options`); err != nil {
		return fmt.Errorf("drop legacy options table: %w", err)
	}
	if _, err := q.ExecContext(ctx,
		`ALTER TABLE attribute_options_new RENAME TO attribute_options`); err != nil {
		return fmt.Errorf("rename consolidated options table: %w", err)
	}
	return nil
}

// stepConsolidateMultiselects applies the same consolidation to multiselect
// value rows, keyed by (item, attribute) instead of attribute alone.
func stepConsolidateMultiselects(ctx context.Context, q Querier) error {
	legacy, err := tableHasColumn(ctx, q, "value_multiselects", "id")
	if err != nil || !legacy {
		return err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT item_id, attribute_id, value FROM value_multiselects ORDER BY item_id, attribute_id, id`)
	if err != nil {
		return fmt.Errorf("read legacy multiselect values: %w", err)
	}
	defer rows.Close()

	type valueKey struct {
		itemID, attrID int64
	}
	var order []valueKey
	grouped := make(map[valueKey][]sql.NullString)
	for rows.Next() {
		var k valueKey
		var value sql.NullString
		if err := rows.Scan(&k.itemID, &k.attrID, &value); err != nil {
			return fmt.Errorf("scan legacy multiselect value: %w", err)
		}
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], value)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read legacy multiselect values: %w", err)
	}

	if _, err := q.ExecContext(ctx, `
		CREATE TABLE value_multiselects_new (
		    item_id INTEGER NOT NULL,
		    attribute_id INTEGER NOT NULL,
		    selections TEXT,
		    PRIMARY KEY (item_id, attribute_id),
		    FOREIGN KEY (item_id) REFERENCES items (id) ON DELETE CASCADE,
		    FOREIGN KEY (attribute_id) REFERENCES attributes (id) ON DELETE CASCADE
		)`); err != nil {
		return fmt.Errorf("create consolidated multiselect table: %w", err)
	}
	for _, k := range order {
		merged, err := consolidateListValues(grouped[k])
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx,
			`INSERT INTO value_multiselects_new (item_id, attribute_id, selections) VALUES (?, ?, ?)`,
			k.itemID, k.attrID, merged); err != nil {
			return fmt.Errorf("write consolidated value for item %d attribute %d: %w", k.itemID, k.attrID, err)
		}
	}
	if _, err := q.ExecContext(ctx, `DROP TABLE value_multiselects`); err != nil {
		return fmt.Errorf("drop legacy multiselect table: %w", err)
	}
	if _, err := q.ExecContext(ctx,
		`ALTER TABLE value_multiselects_new RENAME TO value_multiselects`); err != nil {
		return fmt.Errorf("rename consolidated multiselect table: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Version 3
// ---------------------------------------------------------------------------

// defaultColorsV3 retires the v1 palette in favor of the current one. Keys
// are exactly the v1 replacement values, so the v1 remap never re-fires here
// and vice versa.
var defaultColorsV3 = map[string]string{
	"#4599E8": "#176BBA",
	"#E84563": "#BA1745",
	"#45E87A": "#17BA5C",
	"#E8C445": "#BA9417",
	"#4563E8": "#1736BA",
}

func stepRemapColorsV3(ctx context.Context, q Querier) error {
	return remapColors(ctx, q, defaultColorsV3)
}

// stepRebuildPages runs after the color remap so the rebuilt table starts
// from corrected colors. The projection repairs historically bad titles the
// new CHECK would reject.
func stepRebuildPages(ctx context.Context, q Querier) error {
	done, err := tableSQLContains(ctx, q, "pages", "ON DELETE SET NULL")
	if err != nil || done {
		return err
	}
	return rebuildTable(ctx, q, "pages", `
		CREATE TABLE pages_new (
		    id INTEGER PRIMARY KEY AUTOINCREMENT,
		    page_kind TEXT NOT NULL CHECK (page_kind IN ('note','collection')),
		    title TEXT NOT NULL CHECK (length(title) BETWEEN 1 AND 30),
		    icon TEXT,
		    page_color TEXT,
		    archived INTEGER NOT NULL DEFAULT 0,
		    pinned INTEGER NOT NULL DEFAULT 0,
		    tag_id INTEGER,
		    folder_id INTEGER,
		    created_at INTEGER NOT NULL,
		    updated_at INTEGER NOT NULL,
		    FOREIGN KEY (tag_id) REFERENCES tags (id) ON DELETE SET NULL,
		    FOREIGN KEY (folder_id) REFERENCES folders (id) ON DELETE SET NULL
		)`, `
		INSERT INTO pages_new (id, page_kind, title, icon, page_color, archived, pinned,
		                       tag_id, folder_id, created_at, updated_at)
		SELECT id, page_kind,
		       CASE WHEN length(title) = 0 THEN 'Untitled' ELSE substr(title, 1, 30) END,
		       icon, page_color, archived, pinned, tag_id, folder_id, created_at, updated_at
		FROM pages`)
}

func stepRebuildNotes(ctx context.Context, q Querier) error {
	done, err := tableSQLContains(ctx, q, "notes", "ON DELETE CASCADE")
	if err != nil || done {
		return err
	}
	return rebuildTable(ctx, q, "notes", `
		CREATE TABLE notes_new (
		    page_id INTEGER PRIMARY KEY,
		    content TEXT CHECK (content IS NULL OR length(content) <= 20000),
		    FOREIGN KEY (page_id) REFERENCES pages (id) ON DELETE CASCADE
		)`, `
		INSERT INTO notes_new (page_id, content)
		SELECT page_id, CASE WHEN content IS NULL THEN NULL ELSE substr(content, 1, 20000) END
		FROM notes`)
}

// ---------------------------------------------------------------------------
// Version 4
// ---------------------------------------------------------------------------

func stepRebuildCollections(ctx context.Context, q Querier) error {
	done, err := tableSQLContains(ctx, q, "collections", "ON DELETE CASCADE")
	if err != nil || done {
		return err
	}
	return rebuildTable(ctx, q, "collections", `
		CREATE TABLE collections_new (
		    page_id INTEGER PRIMARY KEY,
		    template_id INTEGER NOT NULL,
		    FOREIGN KEY (page_id) REFERENCES pages (id) ON DELETE CASCADE,
		    FOREIGN KEY (template_id) REFERENCES item_templates (id)
		)`, `
		INSERT INTO collections_new (page_id, template_id)
		SELECT page_id, template_id FROM collections`)
}

func stepRebuildCategories(ctx context.Context, q Querier) error {
	done, err := tableSQLContains(ctx, q, "collection_categories", "CHECK")
	if err != nil || done {
		return err
	}
	return rebuildTable(ctx, q, "collection_categories", `
		CREATE TABLE collection_categories_new (
		    id INTEGER PRIMARY KEY AUTOINCREMENT,
		    page_id INTEGER NOT NULL,
		    name TEXT NOT NULL CHECK (length(name) BETWEEN 1 AND 30),
		    FOREIGN KEY (page_id) REFERENCES pages (id) ON DELETE CASCADE
		)`, `
		INSERT INTO collection_categories_new (id, page_id, name)
		SELECT id, page_id,
		       CASE WHEN length(name) = 0 THEN '-' ELSE substr(name, 1, 30) END
		FROM collection_categories`)
}

func stepRebuildRatingSymbols(ctx context.Context, q Querier) error {
	done, err := tableSQLContains(ctx, q, "rating_symbols", "ON DELETE CASCADE")
	if err != nil || done {
		return err
	}
	return rebuildTable(ctx, q, "rating_symbols", `
		CREATE TABLE rating_symbols_new (
		    attribute_id INTEGER PRIMARY KEY,
		    symbol TEXT NOT NULL,
		    FOREIGN KEY (attribute_id) REFERENCES attributes (id) ON DELETE CASCADE
		)`, `
		INSERT INTO rating_symbols_new (attribute_id, symbol)
		SELECT attribute_id, symbol FROM rating_symbols`)
}

func stepRebuildValueStrings(ctx context.Context, q Querier) error {
	done, err := tableSQLContains(ctx, q, "value_strings", "ON DELETE CASCADE")
	if err != nil || done {
		return err
	}
	return rebuildTable(ctx, q, "value_strings", `
		CREATE TABLE value_strings_new (
		    item_id INTEGER NOT NULL,
		    attribute_id INTEGER NOT NULL,
		    value TEXT,
		    PRIMARY KEY (item_id, attribute_id),
		    FOREIGN KEY (item_id) REFERENCES items (id) ON DELETE CASCADE,
		    FOREIGN KEY (attribute_id) REFERENCES attributes (id) ON DELETE CASCADE
		)`, `
		INSERT INTO value_strings_new (item_id, attribute_id, value)
		SELECT item_id, attribute_id, value FROM value_strings`)
}

func stepRebuildValueRatings(ctx context.Context, q Querier) error {
	done, err := tableSQLContains(ctx, q, "value_ratings", "ON DELETE CASCADE")
	if err != nil || done {
		return err
	}
	return rebuildTable(ctx, q, "value_ratings", `
		CREATE TABLE value_ratings_new (
		    item_id INTEGER NOT NULL,
		    attribute_id INTEGER NOT NULL,
		    rating INTEGER CHECK (rating IS NULL OR rating BETWEEN 1 AND 5),
		    PRIMARY KEY (item_id, attribute_id),
		    FOREIGN KEY (item_id) REFERENCES items (id) ON DELETE CASCADE,
		    FOREIGN KEY (attribute_id) REFERENCES attributes (id) ON DELETE CASCADE
		)`, `
		INSERT INTO value_ratings_new (item_id, attribute_id, rating)
		SELECT item_id, attribute_id,
		       CASE WHEN rating IS NULL THEN NULL
		            WHEN rating < 1 THEN 1
		            WHEN rating > 5 THEN 5
		            ELSE rating END
		FROM value_ratings`)
}
