package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// Guard helpers. Every migration step checks whether its target shape already
// holds before acting, so an aborted run can be re-applied from scratch.

func tableExists(ctx context.Context, q Querier, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return n > 0, nil
}

func tableHasColumn(ctx context.Context, q Querier, table, column string) (bool, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return false, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("scan table_info %s: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// tableSQLContains reports whether the table's declared DDL contains fragment.
// Used to detect whether a rebuild already introduced a constraint the engine
// cannot add in place.
func tableSQLContains(ctx context.Context, q Querier, table, fragment string) (bool, error) {
	var ddl sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&ddl)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read DDL for %s: %w", table, err)
	}
	return ddl.Valid && strings.Contains(ddl.String, fragment), nil
}

// rebuildTable swaps a table for one with the target shape: create the target
// under "<name>_new", copy rows through the projection, drop the original,
// rename the replacement into place. The engine cannot alter column
// constraints or types in place, so every shape change goes through here.
// The replacement is built first because renaming the original aside would
// rewrite REFERENCES clauses in sibling tables to the temporary name, leaving
// them pointing at a dropped table. Callers guard before invoking; createSQL
// must create "<name>_new" and copySQL must project from "<name>" into it.
func rebuildTable(ctx context.Context, q Querier, name, createSQL, copySQL string) error {
	tmp := name + "_new"
	if _, err := q.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := q.ExecContext(ctx, copySQL); err != nil {
		return fmt.Errorf("copy rows into %s: %w", tmp, err)
	}
	if _, err := q.ExecContext(ctx, fmt.Sprintf(`DROP TABLE %q`, name)); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	if _, err := q.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %q RENAME TO %q`, tmp, name)); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// remapColors rewrites legacy color values in pages.page_color. Plain values
// are replaced on exact match; gradient JSON lists on substring containment,
// replacing every occurrence of the old stop.
func remapColors(ctx context.Context, q Querier, mapping map[string]string) error {
	rows, err := q.QueryContext(ctx,
		`SELECT id, page_color FROM pages WHERE page_color IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("read page colors: %w", err)
	}
	defer rows.Close()

	type pageColor struct {
		id    int64
		color string
	}
	var updates []pageColor
	for rows.Next() {
		var pc pageColor
		if err := rows.Scan(&pc.id, &pc.color); err != nil {
			return fmt.Errorf("scan page color: %w", err)
		}
		if next := remapColorValue(pc.color, mapping); next != pc.color {
			updates = append(updates, pageColor{id: pc.id, color: next})
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read page colors: %w", err)
	}

	for _, pc := range updates {
		if _, err := q.ExecContext(ctx,
			`UPDATE pages SET page_color = ? WHERE id = ?`, pc.color, pc.id); err != nil {
			return fmt.Errorf("update page %d color: %w", pc.id, err)
		}
	}
	return nil
}

func remapColorValue(raw string, mapping map[string]string) string {
	if next, ok := mapping[raw]; ok {
		return next
	}
	// Gradient lists are stored as JSON arrays; individual stops are matched
	// by containment inside the serialized list.
	if strings.HasPrefix(raw, "[") {
		for old, next := range mapping {
			if strings.Contains(raw, old) {
				raw = strings.ReplaceAll(raw, old, next)
			}
		}
	}
	return raw
}

// parseListValue interprets one historical list-valued cell: a JSON array, a
// bare JSON string, or an opaque legacy string.
func parseListValue(raw string) []string {
	var arr []string
	if err := json.Unmarshal([]byte(raw), &arr); err == nil {
		return arr
	}
	var single string
	if err := json.Unmarshal([]byte(raw), &single); err == nil {
		return []string{single}
	}
	return []string{raw}
}

// consolidateListValues flattens historical rows for one logical key into a
// single JSON array, deduplicated in first-seen order. Returns nil when every
// contributing row was null.
func consolidateListValues(values []sql.NullString) (*string, error) {
	merged := []string{}
	seen := make(map[string]bool)
	any := false
	for _, v := range values {
		if !v.Valid {
			continue
		}
		any = true
		for _, s := range parseListValue(v.String) {
			if !seen[s] {
				seen[s] = true
				merged = append(merged, s)
			}
		}
	}
	if !any {
		return nil, nil
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("serialize consolidated list: %w", err)
	}
	s := string(out)
	return &s, nil
}
