package repository

import (
	"errors"
	"fmt"

	repo "orderhub/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
)

const batchSize = 500

// unique_violation
const pgUniqueViolation = "23505"

// 一意制約違反だけ ErrConflict に寄せる。それ以外はそのまま
func translateWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s (%s)", repo.ErrConflict, pgErr.ConstraintName, pgErr.Detail)
	}
	return err
}
