package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgExecutor abstracts pgxpool.Pool, pgx.Tx and pgxmock for repositories.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// uniqueViolation is the SQLSTATE raised when a unique index rejects a write.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// marshalJSONB encodes an optional structured payload for a jsonb column.
func marshalJSONB(value any) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb: %w", err)
	}
	return bytes, nil
}

// unmarshalJSONB decodes a jsonb column into the provided target, treating
// NULL as absent.
func unmarshalJSONB(raw []byte, target any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("unmarshal jsonb: %w", err)
	}
	return nil
}
