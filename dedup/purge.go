package dedup

import (
	"context"
	"fmt"
	"log"

	"localwire/types"
)

// ArticleStore is the slice of storage the purge needs.
type ArticleStore interface {
	ListAllArticles(ctx context.Context) ([]*types.Article, error)
	DeleteArticles(ctx context.Context, ids []int64) error
}

// Result summarizes one purge.
type Result struct {
	Deleted    int `json:"deleted"`
	KeptGroups int `json:"kept_groups"`
}

// Purge removes duplicate articles from the store.
func Purge(ctx context.Context, store ArticleStore) (Result, error) {
	articles, err := store.ListAllArticles(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list articles for dedup: %w", err)
	}

	plan := BuildPlan(articles)
	if len(plan.DeleteIDs) > 0 {
		if err := store.DeleteArticles(ctx, plan.DeleteIDs); err != nil {
			return Result{}, fmt.Errorf("delete duplicates: %w", err)
		}
	}
	log.Printf("dedup: deleted %d of %d articles (%d title groups)",
		len(plan.DeleteIDs), len(articles), plan.KeptGroups)
	return Result{Deleted: len(plan.DeleteIDs), KeptGroups: plan.KeptGroups}, nil
}
