package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/accesscore/accessd/internal/access/domain/models"
	"github.com/accesscore/accessd/internal/access/repository/userrepo"
	"github.com/accesscore/accessd/internal/pkg/config"
	"github.com/accesscore/accessd/internal/pkg/pgtools"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersPostgresRepo struct {
	db *pgxpool.Pool
}

func New(ctx context.Context, cfg config.PostgresDB) (UsersPostgresRepo, error) {
	connString := "postgres://" + cfg.Username + ":" + cfg.Password + "@" +
		cfg.Addr + "/" + cfg.DB + "?" + "sslmode=" + cfg.SSLmode + "&pool_max_conns=" + cfg.MaxConns

	db, err := pgtools.Connect(ctx, connString)
	if err != nil {
		return UsersPostgresRepo{}, fmt.Errorf("connect to db error: %w", err)
	}

	if err := pgtools.ApplyMigration(cfg); err != nil {
		return UsersPostgresRepo{}, fmt.Errorf("apply migration error: %w", err)
	}

	return UsersPostgresRepo{
		db: db,
	}, nil
}

func (ur UsersPostgresRepo) CreateUser(ctx context.Context, u models.User) (_ models.User, err error) {
	tx, err := ur.db.Begin(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "create user")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Insert("users").
		Columns("username", "password_hash", "first_name", "last_name", "disabled").
		Values(u.Username, u.PasswordHash, u.FirstName, u.LastName, u.Disabled).
		Suffix("RETURNING id, created_at, updated_at").ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("to sql error: %w", err)
	}

	if err = tx.QueryRow(ctx, query, args...).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		target := new(pgconn.PgError)
		if errors.As(err, &target) && target.Code == pgerrUniqueViolation {
			err = userrepo.ErrAlreadyExists

			return models.User{}, err
		}

		return models.User{}, fmt.Errorf("exec error: %w", err)
	}

	return u, nil
}

func (ur UsersPostgresRepo) GetUser(ctx context.Context, username string) (_ models.User, err error) {
	tx, err := ur.db.Begin(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "get user")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select("id", "username", "password_hash", "first_name",
		"last_name", "disabled", "created_at", "updated_at").
		From("users").
		Where(squirrel.Eq{"username": username}).ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("to sql error: %w", err)
	}

	var u models.User

	if err = tx.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.FirstName,
		&u.LastName, &u.Disabled, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = userrepo.ErrNotFound

			return u, err
		}

		return u, fmt.Errorf("scan error: %w", err)
	}

	u.Roles, err = rolesForUser(ctx, tx, u.ID)
	if err != nil {
		return u, fmt.Errorf("get user roles error: %w", err)
	}

	return u, nil
}

func (ur UsersPostgresRepo) ListUsers(ctx context.Context) (_ []models.User, err error) {
	tx, err := ur.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "list users")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select("id", "username", "first_name",
		"last_name", "disabled", "created_at", "updated_at").
		From("users").
		OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql error: %w", err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var users []models.User

	for rows.Next() {
		var u models.User
		if err = rows.Scan(&u.ID, &u.Username, &u.FirstName,
			&u.LastName, &u.Disabled, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}

		users = append(users, u)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

func (ur UsersPostgresRepo) UpdateUser(ctx context.Context, u models.User) (err error) {
	tx, err := ur.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "update user")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Update("users").
		Set("password_hash", u.PasswordHash).
		Set("first_name", u.FirstName).
		Set("last_name", u.LastName).
		Set("disabled", u.Disabled).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": u.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	res, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	if res.RowsAffected() == 0 {
		err = userrepo.ErrNotFound

		return err
	}

	return nil
}

// AddUserRoles attaches roles to a user. Already attached roles are kept as is.
func (ur UsersPostgresRepo) AddUserRoles(ctx context.Context, userID int, roleIDs []int) (err error) {
	if len(roleIDs) == 0 {
		return nil
	}

	tx, err := ur.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "add user roles")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	b := psql.Insert("user_role").Columns("user_id", "role_id")
	for _, roleID := range roleIDs {
		b = b.Values(userID, roleID)
	}

	query, args, err := b.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	if _, err = tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	return nil
}

func (ur UsersPostgresRepo) DeleteUser(ctx context.Context, username string) (err error) {
	tx, err := ur.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "delete user")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Delete("users").
		Where(squirrel.Eq{"username": username}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	res, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	if res.RowsAffected() == 0 {
		err = userrepo.ErrNotFound

		return err
	}

	return nil
}

// ScopesForUser resolves the live scope set of a user from its current
// role memberships. Recomputed on every call, never cached.
func (ur UsersPostgresRepo) ScopesForUser(ctx context.Context, username string) (_ []string, err error) {
	tx, err := ur.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "scopes for user")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select("DISTINCT s.name").
		From("users u").
		Join("user_role ur ON ur.user_id = u.id").
		Join("role_scope rs ON rs.role_id = ur.role_id").
		Join("scopes s ON s.id = rs.scope_id").
		Where(squirrel.Eq{"u.username": username}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql error: %w", err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var scopes []string

	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}

		scopes = append(scopes, name)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return scopes, nil
}

const pgerrUniqueViolation = "23505"

func rolesForUser(ctx context.Context, tx pgx.Tx, userID int) ([]models.Role, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select("r.id", "r.name", "r.description").
		From("roles r").
		Join("user_role ur ON ur.role_id = r.id").
		Where(squirrel.Eq{"ur.user_id": userID}).
		OrderBy("r.name ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql error: %w", err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var roles []models.Role

	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}

		roles = append(roles, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return roles, nil
}
