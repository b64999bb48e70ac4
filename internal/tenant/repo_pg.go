package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labguide/labguide/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates a Postgres-backed clinic repository. Clinics live in
// the shared schema, not per-tenant schemas: the resolver has to find a
// clinic before any tenant scope exists.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const clinicCols = `id, slug, name, logo_url, primary_color, accent_color,
	subscription_status, subscription_tier, dispensary_url, created_at, updated_at`

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic
	err := row.Scan(&c.ID, &c.Slug, &c.Name, &c.LogoURL, &c.PrimaryColor, &c.AccentColor,
		&c.SubscriptionStatus, &c.SubscriptionTier, &c.DispensaryURL, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &c, err
}

func (r *repoPG) Create(ctx context.Context, c *Clinic) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO shared.clinic (id, slug, name, logo_url, primary_color, accent_color,
			subscription_status, subscription_tier, dispensary_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.Slug, c.Name, c.LogoURL, c.PrimaryColor, c.AccentColor,
		c.SubscriptionStatus, c.SubscriptionTier, c.DispensaryURL)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return scanClinic(r.conn(ctx).QueryRow(ctx, `SELECT `+clinicCols+` FROM shared.clinic WHERE id = $1`, id))
}

func (r *repoPG) GetBySlug(ctx context.Context, slug string) (*Clinic, error) {
	return scanClinic(r.conn(ctx).QueryRow(ctx, `SELECT `+clinicCols+` FROM shared.clinic WHERE slug = $1`, slug))
}

func (r *repoPG) Update(ctx context.Context, c *Clinic) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE shared.clinic SET name=$2, logo_url=$3, primary_color=$4, accent_color=$5,
			subscription_status=$6, subscription_tier=$7, dispensary_url=$8, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Name, c.LogoURL, c.PrimaryColor, c.AccentColor,
		c.SubscriptionStatus, c.SubscriptionTier, c.DispensaryURL)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM shared.clinic WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Clinic, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM shared.clinic`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+clinicCols+` FROM shared.clinic ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Clinic
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, nil
}
