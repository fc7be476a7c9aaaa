package store

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/01moynul/bashrometer-golang/internal/models"
)

// MySQL error numbers the store translates into sentinels.
const (
	mysqlDuplicateEntry     = 1062
	mysqlRowIsReferenced    = 1451
	mysqlNoReferencedRow    = 1452
	mysqlOutOfRange         = 1264
	mysqlDataTooLong        = 1406
	mysqlIncorrectValue     = 1366
	mysqlCheckViolated      = 3819
	mysqlRowIsReferencedOld = 1217
	mysqlNoReferencedRowOld = 1216
)

// MySQLStore implements Store on database/sql. Every statement is built with
// squirrel so placeholders and arguments always line up.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// translate maps driver errors onto the store sentinels, keeping the driver
// message for logs.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case mysqlDuplicateEntry:
		return errors.Wrap(ErrDuplicate, me.Message)
	case mysqlRowIsReferenced, mysqlRowIsReferencedOld:
		return errors.Wrap(ErrReferenced, me.Message)
	case mysqlNoReferencedRow, mysqlNoReferencedRowOld:
		return errors.Wrap(ErrInvalidReference, me.Message)
	case mysqlCheckViolated, mysqlOutOfRange, mysqlDataTooLong, mysqlIncorrectValue:
		return errors.Wrap(ErrConstraint, me.Message)
	}
	return err
}

func (s *MySQLStore) exec(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build statement")
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	return res, nil
}

func (s *MySQLStore) queryRow(ctx context.Context, b sq.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build query")
	}
	return s.db.QueryRowContext(ctx, query, args...), nil
}

func (s *MySQLStore) query(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build query")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

func (s *MySQLStore) count(ctx context.Context, b sq.SelectBuilder) (int, error) {
	row, err := s.queryRow(ctx, b)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, translate(err)
	}
	return n, nil
}

// deleteByID removes one row and reports ErrNotFound when nothing matched.
func (s *MySQLStore) deleteByID(ctx context.Context, table string, id int64) error {
	res, err := s.exec(ctx, sq.Delete(table).Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// likePattern builds a case-insensitive substring pattern with LIKE
// wildcards in the input escaped.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// orderBy resolves a whitelisted sort onto a qualified column. Unknown
// columns fall back to def.
func orderBy(sort models.Sort, columns map[string]string, def string, tieBreak string) []string {
	col, ok := columns[sort.Column]
	if !ok {
		col = columns[def]
	}
	dir := "ASC"
	if sort.Desc {
		dir = "DESC"
	}
	return []string{col + " " + dir, tieBreak + " " + dir}
}

func paginate(b sq.SelectBuilder, p models.Page) sq.SelectBuilder {
	if p.Limit > 0 {
		b = b.Limit(uint64(p.Limit))
	}
	if p.Offset > 0 {
		b = b.Offset(uint64(p.Offset))
	}
	return b
}
