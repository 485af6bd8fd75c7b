package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const DBConnKey contextKey = "db_conn"

// ConnFromContext retrieves the request-scoped database connection from
// context, if one was acquired.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// Organisation is an SAIS team. Every patient, session and consent form
// belongs to exactly one organisation; repositories scope their queries by
// its id.
type Organisation struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	ODSCode   string    `db:"ods_code" json:"ods_code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CreateOrganisation registers a new organisation. ODS codes are unique
// across the deployment.
func CreateOrganisation(ctx context.Context, pool *pgxpool.Pool, name, odsCode string) (*Organisation, error) {
	org := &Organisation{ID: uuid.New(), Name: name, ODSCode: odsCode}
	err := pool.QueryRow(ctx,
		`INSERT INTO organisation (id, name, ods_code) VALUES ($1, $2, $3) RETURNING created_at`,
		org.ID, org.Name, org.ODSCode,
	).Scan(&org.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create organisation %s: %w", odsCode, err)
	}
	return org, nil
}

// ListOrganisations returns all registered organisations ordered by name.
func ListOrganisations(ctx context.Context, pool *pgxpool.Pool) ([]*Organisation, error) {
	rows, err := pool.Query(ctx,
		`SELECT id, name, ods_code, created_at FROM organisation ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list organisations: %w", err)
	}
	defer rows.Close()

	var orgs []*Organisation
	for rows.Next() {
		var o Organisation
		if err := rows.Scan(&o.ID, &o.Name, &o.ODSCode, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan organisation: %w", err)
		}
		orgs = append(orgs, &o)
	}
	return orgs, rows.Err()
}
