package profile

import (
	"context"
	"errors"

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

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const profileCols = `user_id, email, full_name, clinic_id, age, sex, height_cm, weight_kg,
	conditions, medications, goals, consent_analysis, consent_marketing,
	dispensary_account_id, dispensary_url, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.UserID, &p.Email, &p.FullName, &p.ClinicID, &p.Age, &p.Sex,
		&p.HeightCM, &p.WeightKG, &p.Conditions, &p.Medications, &p.Goals,
		&p.ConsentAnalysis, &p.ConsentMarketing,
		&p.DispensaryAccountID, &p.DispensaryURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.deriveAccess()
	return &p, nil
}

func (r *repoPG) GetByUserID(ctx context.Context, userID string) (*Profile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx,
		`SELECT `+profileCols+` FROM profile WHERE user_id = $1`, userID))
}

func (r *repoPG) Upsert(ctx context.Context, p *Profile) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO profile (user_id, email, full_name, clinic_id, age, sex, height_cm, weight_kg,
			conditions, medications, goals, consent_analysis, consent_marketing,
			dispensary_account_id, dispensary_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			clinic_id = EXCLUDED.clinic_id,
			age = EXCLUDED.age,
			sex = EXCLUDED.sex,
			height_cm = EXCLUDED.height_cm,
			weight_kg = EXCLUDED.weight_kg,
			conditions = EXCLUDED.conditions,
			medications = EXCLUDED.medications,
			goals = EXCLUDED.goals,
			consent_analysis = EXCLUDED.consent_analysis,
			consent_marketing = EXCLUDED.consent_marketing,
			dispensary_account_id = EXCLUDED.dispensary_account_id,
			dispensary_url = EXCLUDED.dispensary_url,
			updated_at = NOW()`,
		p.UserID, p.Email, p.FullName, p.ClinicID, p.Age, p.Sex, p.HeightCM, p.WeightKG,
		p.Conditions, p.Medications, p.Goals, p.ConsentAnalysis, p.ConsentMarketing,
		p.DispensaryAccountID, p.DispensaryURL)
	if err != nil {
		return err
	}
	p.deriveAccess()
	return nil
}

func (r *repoPG) Delete(ctx context.Context, userID string) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM profile WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
