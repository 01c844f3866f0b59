package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"localwire/types"
)

// ErrDuplicateURL is returned when an article with the same source URL
// already exists.
var ErrDuplicateURL = errors.New("article with this source url already exists")

var articleColumns = []string{
	"id", "source_url", "source_name", "source_title", "image_url", "location",
	"published_at", "fetched_at", "raw_content", "ai_title", "ai_body",
	"ai_model", "ai_generated_at", "is_published",
}

// CreateArticle inserts a new article if the normalized source URL is absent,
// filling in the generated id. Returns ErrDuplicateURL when the URL is taken.
func (s *Store) CreateArticle(ctx context.Context, a *types.Article) error {
	res, err := s.sb.Insert("articles").
		Options("OR IGNORE").
		Columns("source_url", "source_name", "source_title", "image_url",
			"location", "published_at", "fetched_at", "raw_content",
			"ai_title", "ai_body", "ai_model", "ai_generated_at", "is_published").
		Values(a.SourceURL, a.SourceName, a.SourceTitle, a.ImageURL,
			a.Location, a.PublishedAt, a.FetchedAt, a.RawContent,
			a.AITitle, a.AIBody, a.AIModel, a.AIGeneratedAt, a.IsPublished).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrDuplicateURL
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	a.ID = id
	return nil
}

// ExistingURLSet returns the set of persisted source URLs, used to filter
// already-harvested candidates.
func (s *Store) ExistingURLSet(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.sb.Select("source_url").From("articles").QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query urls: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		out[u] = struct{}{}
	}
	return out, rows.Err()
}

// GetArticle loads one article by id; sql.ErrNoRows when absent.
func (s *Store) GetArticle(ctx context.Context, id int64) (*types.Article, error) {
	row := s.sb.Select(articleColumns...).From("articles").
		Where(sq.Eq{"id": id}).QueryRowContext(ctx)
	return scanArticle(row)
}

// ListArticles returns articles newest-fetched first, paged.
func (s *Store) ListArticles(ctx context.Context, limit, offset int) ([]*types.Article, error) {
	q := s.sb.Select(articleColumns...).From("articles").
		OrderBy("fetched_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit)).Offset(uint64(offset))
	}
	return s.queryArticles(ctx, q)
}

// ListAllArticles returns every row, for the dedup merger.
func (s *Store) ListAllArticles(ctx context.Context) ([]*types.Article, error) {
	return s.queryArticles(ctx, s.sb.Select(articleColumns...).From("articles").OrderBy("id"))
}

// ListRewriteEligible returns rewrite-eligible articles newest-fetched first:
// raw content present and the AI body missing or fallback-marked.
func (s *Store) ListRewriteEligible(ctx context.Context, limit int) ([]*types.Article, error) {
	q := s.sb.Select(articleColumns...).From("articles").
		Where("raw_content != ''").
		Where(sq.Or{
			sq.Eq{"ai_body": ""},
			sq.Like{"ai_model": types.FallbackModelPrefix + "%"},
		}).
		OrderBy("fetched_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return s.queryArticles(ctx, q)
}

// UpdateArticleAI stores the rewrite result (or fallback) for one article.
func (s *Store) UpdateArticleAI(ctx context.Context, id int64, title, body, model string, generatedAt time.Time) error {
	_, err := s.sb.Update("articles").
		Set("ai_title", title).
		Set("ai_body", body).
		Set("ai_model", model).
		Set("ai_generated_at", generatedAt).
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update article ai fields: %w", err)
	}
	return nil
}

// DeleteArticles removes the given ids in one statement.
func (s *Store) DeleteArticles(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.sb.Delete("articles").Where(sq.Eq{"id": ids}).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("delete articles: %w", err)
	}
	return nil
}

// CountArticles returns the number of persisted articles.
func (s *Store) CountArticles(ctx context.Context) (int, error) {
	var n int
	err := s.sb.Select("COUNT(*)").From("articles").QueryRowContext(ctx).Scan(&n)
	return n, err
}

func (s *Store) queryArticles(ctx context.Context, q sq.SelectBuilder) ([]*types.Article, error) {
	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var out []*types.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*types.Article, error) {
	var a types.Article
	var publishedAt, aiGeneratedAt sql.NullTime
	err := row.Scan(&a.ID, &a.SourceURL, &a.SourceName, &a.SourceTitle,
		&a.ImageURL, &a.Location, &publishedAt, &a.FetchedAt, &a.RawContent,
		&a.AITitle, &a.AIBody, &a.AIModel, &aiGeneratedAt, &a.IsPublished)
	if err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		a.PublishedAt = &t
	}
	if aiGeneratedAt.Valid {
		t := aiGeneratedAt.Time
		a.AIGeneratedAt = &t
	}
	return &a, nil
}
