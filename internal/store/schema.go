package store

// baselineSchema is the version-0 schema, matching the legacy template
// database the first app release shipped. It is deliberately under-constrained:
// no FK delete actions, no CHECKs, no preview column, one row per multiselect
// option. The migration catalog carries it to the current shape.
const baselineSchema = `
-- Lookup collaborators. Only referenced by pages; never mutated by the core.
CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    label TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS folders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL
);

-- Pages: base identity for notes and collections.
-- page_color holds a single hex string or a JSON array of hex stops.
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    page_kind TEXT NOT NULL,
    title TEXT NOT NULL,
    icon TEXT,
    page_color TEXT,
    archived INTEGER NOT NULL DEFAULT 0,
    pinned INTEGER NOT NULL DEFAULT 0,
    tag_id INTEGER REFERENCES tags (id),
    folder_id INTEGER REFERENCES folders (id),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notes (
    page_id INTEGER PRIMARY KEY REFERENCES pages (id),
    content TEXT
);

CREATE TABLE IF NOT EXISTS item_templates (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS collections (
    page_id INTEGER PRIMARY KEY REFERENCES pages (id),
    template_id INTEGER NOT NULL REFERENCES item_templates (id)
);

CREATE TABLE IF NOT EXISTS attributes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    template_id INTEGER NOT NULL REFERENCES item_templates (id),
    label TEXT NOT NULL,
    attr_type TEXT NOT NULL
);

-- Legacy shape: one row per option, multiple rows per attribute.
CREATE TABLE IF NOT EXISTS attribute_options (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    attribute_id INTEGER NOT NULL REFERENCES attributes (id),
    option TEXT
);

CREATE TABLE IF NOT EXISTS rating_symbols (
    attribute_id INTEGER PRIMARY KEY REFERENCES attributes (id),
    symbol TEXT NOT NULL
);

-- Legacy shape: no category reference yet.
CREATE TABLE IF NOT EXISTS items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    page_id INTEGER NOT NULL REFERENCES pages (id),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Shared by text and date attributes.
CREATE TABLE IF NOT EXISTS value_strings (
    item_id INTEGER NOT NULL,
    attribute_id INTEGER NOT NULL,
    value TEXT,
    PRIMARY KEY (item_id, attribute_id)
);

CREATE TABLE IF NOT EXISTS value_ratings (
    item_id INTEGER NOT NULL,
    attribute_id INTEGER NOT NULL,
    rating INTEGER,
    PRIMARY KEY (item_id, attribute_id)
);

-- Legacy shape: one row per selection, multiple rows per (item, attribute).
CREATE TABLE IF NOT EXISTS value_multiselects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id INTEGER NOT NULL,
    attribute_id INTEGER NOT NULL,
    value TEXT
);

CREATE INDEX IF NOT EXISTS idx_pages_folder ON pages (folder_id);
CREATE INDEX IF NOT EXISTS idx_attributes_template ON attributes (template_id);
CREATE INDEX IF NOT EXISTS idx_items_page ON items (page_id);
`
