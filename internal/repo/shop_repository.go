package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"go.uber.org/zap"
)

type shopRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewShopRepository returns a ShopDirectory reading the catalog's shops table.
func NewShopRepository(pool *pgxpool.Pool, logger *zap.Logger) ShopDirectory {
	return &shopRepository{pool: pool, logger: logger}
}

func (r *shopRepository) FindBySlug(ctx context.Context, slug string) (*model.Shop, error) {
	return r.findOne(ctx, `SELECT slug, owner_user_id, name FROM shops WHERE slug = $1`, slug)
}

func (r *shopRepository) FindByOwner(ctx context.Context, userID string) (*model.Shop, error) {
	return r.findOne(ctx, `SELECT slug, owner_user_id, name FROM shops WHERE owner_user_id = $1 ORDER BY created_at LIMIT 1`, userID)
}

func (r *shopRepository) findOne(ctx context.Context, query, arg string) (*model.Shop, error) {
	ctx, cancel := ensureTimeout(ctx, 5*time.Second)
	defer cancel()

	var shop model.Shop
	err := r.pool.QueryRow(ctx, query, arg).Scan(&shop.Slug, &shop.OwnerUserID, &shop.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrShopNotFound
	}
	if err != nil {
		r.logger.Error("shop lookup failed", zap.String("key", arg), zap.Error(err))
		return nil, fmt.Errorf("shop lookup failed: %w", err)
	}
	return &shop, nil
}

// StaticShopDirectory serves a fixed shop list. It backs development setups
// without the relational store, and tests.
type StaticShopDirectory struct {
	bySlug  map[string]model.Shop
	byOwner map[string]model.Shop
}

func NewStaticShopDirectory(shops ...model.Shop) *StaticShopDirectory {
	d := &StaticShopDirectory{
		bySlug:  make(map[string]model.Shop, len(shops)),
		byOwner: make(map[string]model.Shop, len(shops)),
	}
	for _, s := range shops {
		d.bySlug[s.Slug] = s
		d.byOwner[s.OwnerUserID] = s
	}
	return d
}

func (d *StaticShopDirectory) FindBySlug(_ context.Context, slug string) (*model.Shop, error) {
	if s, ok := d.bySlug[slug]; ok {
		return &s, nil
	}
	return nil, ErrShopNotFound
}

func (d *StaticShopDirectory) FindByOwner(_ context.Context, userID string) (*model.Shop, error) {
	if s, ok := d.byOwner[userID]; ok {
		return &s, nil
	}
	return nil, ErrShopNotFound
}
