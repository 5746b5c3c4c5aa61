package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shelfkeep/shelfkeep/internal/domain"
	"github.com/shelfkeep/shelfkeep/internal/store"
)

// PageRepository covers the page-side tables: pages, notes, collections,
// categories, and templates. These are plain row mappings; the interesting
// EAV traffic lives in ItemRepository.
type PageRepository struct {
	q store.Querier
}

func NewPageRepository(q store.Querier) *PageRepository {
	return &PageRepository{q: q}
}

// InsertPage writes the base page row and returns its id.
func (r *PageRepository) InsertPage(ctx context.Context, page domain.NewPage, now int64) (domain.PageID, error) {
	color, err := serializeColor(page.Color)
	if err != nil {
		return 0, err
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO pages (page_kind, title, icon, page_color, tag_id, folder_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, page.Kind, page.Title, page.Icon, color, page.TagID, page.FolderID, now, now)
	if err != nil {
		return 0, fmt.Errorf("insert page: %w", err)
	}
	raw, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert page: %w", err)
	}
	return domain.NewPageID(raw)
}

// GetPage hydrates one page row.
func (r *PageRepository) GetPage(ctx context.Context, id domain.PageID) (*domain.Page, error) {
	var (
		p                domain.Page
		icon, color      sql.NullString
		archived, pinned int
		tagID, folderID  sql.NullInt64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, page_kind, title, icon, page_color, archived, pinned, tag_id, folder_id, created_at, updated_at
		FROM pages WHERE id = ?
	`, id).Scan(&p.ID, &p.Kind, &p.Title, &icon, &color, &archived, &pinned, &tagID, &folderID, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("page %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", id, err)
	}
	p.Archived = archived != 0
	p.Pinned = pinned != 0
	if icon.Valid {
		p.Icon = &icon.String
	}
	if color.Valid {
		p.Color, err = parseColor(color.String)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", id, err)
		}
	}
	if tagID.Valid {
		id := domain.TagID(tagID.Int64)
		p.TagID = &id
	}
	if folderID.Valid {
		id := domain.FolderID(folderID.Int64)
		p.FolderID = &id
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("page %d failed read validation: %w", id, err)
	}
	return &p, nil
}

// TouchPage bumps a page's updated_at.
func (r *PageRepository) TouchPage(ctx context.Context, id domain.PageID, now int64) error {
	if _, err := r.q.ExecContext(ctx,
		`UPDATE pages SET updated_at = ? WHERE id = ?`, now, id); err != nil {
		return fmt.Errorf("touch page %d: %w", id, err)
	}
	return nil
}

// SetPinned flips the pinned flag. The 4-pin cap and the pinned/archived
// exclusivity are business rules owned by the service layer, not here.
func (r *PageRepository) SetPinned(ctx context.Context, id domain.PageID, pinned bool, now int64) error {
	if _, err := r.q.ExecContext(ctx,
		`UPDATE pages SET pinned = ?, updated_at = ? WHERE id = ?`, boolToInt(pinned), now, id); err != nil {
		return fmt.Errorf("set pinned on page %d: %w", id, err)
	}
	return nil
}

// SetArchived flips the archived flag.
func (r *PageRepository) SetArchived(ctx context.Context, id domain.PageID, archived bool, now int64) error {
	if _, err := r.q.ExecContext(ctx,
		`UPDATE pages SET archived = ?, updated_at = ? WHERE id = ?`, boolToInt(archived), now, id); err != nil {
		return fmt.Errorf("set archived on page %d: %w", id, err)
	}
	return nil
}

// CountPinnedPages counts pinned pages system-wide.
func (r *PageRepository) CountPinnedPages(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pages WHERE pinned = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pinned pages: %w", err)
	}
	return n, nil
}

// DeletePage removes the page row; notes, collections, categories, and items
// follow via the declared cascades.
func (r *PageRepository) DeletePage(ctx context.Context, id domain.PageID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete page %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("page %d: %w", id, ErrNotFound)
	}
	return nil
}

// InsertNote writes the note sidecar row for a page.
func (r *PageRepository) InsertNote(ctx context.Context, pageID domain.PageID, content *string) error {
	if _, err := r.q.ExecContext(ctx,
		`INSERT INTO notes (page_id, content) VALUES (?, ?)`, pageID, content); err != nil {
		return fmt.Errorf("insert note for page %d: %w", pageID, err)
	}
	return nil
}

// UpdateNoteContent replaces the note body and touches the page.
func (r *PageRepository) UpdateNoteContent(ctx context.Context, pageID domain.PageID, content *string, now int64) error {
	if _, err := r.q.ExecContext(ctx,
		`UPDATE notes SET content = ? WHERE page_id = ?`, content, pageID); err != nil {
		return fmt.Errorf("update note for page %d: %w", pageID, err)
	}
	return r.TouchPage(ctx, pageID, now)
}

// GetNote hydrates a note page with its content.
func (r *PageRepository) GetNote(ctx context.Context, pageID domain.PageID) (*domain.Note, error) {
	page, err := r.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	var content sql.NullString
	err = r.q.QueryRowContext(ctx,
		`SELECT content FROM notes WHERE page_id = ?`, pageID).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("note %d: %w", pageID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch note %d: %w", pageID, err)
	}
	note := &domain.Note{Page: *page}
	if content.Valid {
		note.Content = &content.String
	}
	return note, nil
}

// InsertTemplate writes an item template and returns its id.
func (r *PageRepository) InsertTemplate(ctx context.Context, name string) (domain.TemplateID, error) {
	res, err := r.q.ExecContext(ctx, `INSERT INTO item_templates (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("insert template: %w", err)
	}
	raw, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert template: %w", err)
	}
	return domain.NewTemplateID(raw)
}

// InsertCollection links a page to its template.
func (r *PageRepository) InsertCollection(ctx context.Context, pageID domain.PageID, templateID domain.TemplateID) error {
	if _, err := r.q.ExecContext(ctx,
		`INSERT INTO collections (page_id, template_id) VALUES (?, ?)`, pageID, templateID); err != nil {
		return fmt.Errorf("insert collection for page %d: %w", pageID, err)
	}
	return nil
}

// GetCollection hydrates a collection page with its categories.
func (r *PageRepository) GetCollection(ctx context.Context, pageID domain.PageID) (*domain.Collection, error) {
	page, err := r.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	col := &domain.Collection{Page: *page}
	err = r.q.QueryRowContext(ctx,
		`SELECT template_id FROM collections WHERE page_id = ?`, pageID).Scan(&col.TemplateID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("collection %d: %w", pageID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch collection %d: %w", pageID, err)
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT id, page_id, name FROM collection_categories WHERE page_id = ? ORDER BY id ASC`, pageID)
	if err != nil {
		return nil, fmt.Errorf("fetch categories for page %d: %w", pageID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var cat domain.CollectionCategory
		if err := rows.Scan(&cat.ID, &cat.PageID, &cat.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		col.Categories = append(col.Categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch categories for page %d: %w", pageID, err)
	}
	if err := col.Validate(); err != nil {
		return nil, fmt.Errorf("collection %d failed read validation: %w", pageID, err)
	}
	return col, nil
}

// CollectionTemplateID returns the template backing the collection at pageID,
// ErrNotFound when the page has no collection row.
func (r *PageRepository) CollectionTemplateID(ctx context.Context, pageID domain.PageID) (domain.TemplateID, error) {
	var id domain.TemplateID
	err := r.q.QueryRowContext(ctx,
		`SELECT template_id FROM collections WHERE page_id = ?`, pageID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("collection %d: %w", pageID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("fetch collection %d: %w", pageID, err)
	}
	return id, nil
}

// DeleteTemplate removes a template; its attributes and their value rows
// cascade.
func (r *PageRepository) DeleteTemplate(ctx context.Context, id domain.TemplateID) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM item_templates WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete template %d: %w", id, err)
	}
	return nil
}

// InsertCategory writes one category and returns its id.
func (r *PageRepository) InsertCategory(ctx context.Context, pageID domain.PageID, name string) (domain.CategoryID, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO collection_categories (page_id, name) VALUES (?, ?)`, pageID, name)
	if err != nil {
		return 0, fmt.Errorf("insert category for page %d: %w", pageID, err)
	}
	raw, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert category for page %d: %w", pageID, err)
	}
	return domain.NewCategoryID(raw)
}

// TagLabel resolves a tag id to its label; the core never mutates tags.
func (r *PageRepository) TagLabel(ctx context.Context, id domain.TagID) (string, error) {
	var label string
	err := r.q.QueryRowContext(ctx, `SELECT label FROM tags WHERE id = ?`, id).Scan(&label)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("tag %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("fetch tag %d: %w", id, err)
	}
	return label, nil
}

// serializeColor stores a single stop as a plain hex string and multiple
// stops as a JSON array, matching what the migrations remap.
func serializeColor(color []string) (*string, error) {
	switch len(color) {
	case 0:
		return nil, nil
	case 1:
		return &color[0], nil
	default:
		raw, err := json.Marshal(color)
		if err != nil {
			return nil, fmt.Errorf("serialize color: %w", err)
		}
		s := string(raw)
		return &s, nil
	}
}

func parseColor(raw string) ([]string, error) {
	if len(raw) > 0 && raw[0] == '[' {
		var stops []string
		if err := json.Unmarshal([]byte(raw), &stops); err != nil {
			return nil, fmt.Errorf("parse color %q: %w", raw, err)
		}
		return stops, nil
	}
	return []string{raw}, nil
}
