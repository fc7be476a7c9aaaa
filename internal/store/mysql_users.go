package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/01moynul/bashrometer-golang/internal/models"
)

var userColumns = []string{"id", "name", "email", "password_hash", "role", "created_at", "updated_at"}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *MySQLStore) CreateUser(ctx context.Context, u *models.User) error {
	res, err := s.exec(ctx, sq.Insert("users").
		Columns("name", "email", "password_hash", "role").
		Values(u.Name, u.Email, u.PasswordHash, u.Role))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "read user id")
	}

	created, err := s.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	*u = *created
	return nil
}

func (s *MySQLStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, sq.Eq{"id": id})
}

func (s *MySQLStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, sq.Eq{"email": email})
}

func (s *MySQLStore) getUser(ctx context.Context, where sq.Eq) (*models.User, error) {
	row, err := s.queryRow(ctx, sq.Select(userColumns...).From("users").Where(where).Limit(1))
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}
