package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/accesscore/accessd/internal/access/domain/models"
	"github.com/accesscore/accessd/internal/access/repository/rolerepo"
	"github.com/accesscore/accessd/internal/pkg/config"
	"github.com/accesscore/accessd/internal/pkg/pgtools"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgerrUniqueViolation = "23505"

type RolesPostgresRepo struct {
	db *pgxpool.Pool
}

func New(ctx context.Context, cfg config.PostgresDB) (RolesPostgresRepo, error) {
	connString := "postgres://" + cfg.Username + ":" + cfg.Password + "@" +
		cfg.Addr + "/" + cfg.DB + "?" + "sslmode=" + cfg.SSLmode + "&pool_max_conns=" + cfg.MaxConns

	db, err := pgtools.Connect(ctx, connString)
	if err != nil {
		return RolesPostgresRepo{}, fmt.Errorf("connect to db error: %w", err)
	}

	if err := pgtools.ApplyMigration(cfg); err != nil {
		return RolesPostgresRepo{}, fmt.Errorf("apply migration error: %w", err)
	}

	return RolesPostgresRepo{
		db: db,
	}, nil
}

func (rr RolesPostgresRepo) CreateRole(ctx context.Context, r models.Role) (_ models.Role, err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return models.Role{}, fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "create role")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Insert("roles").
		Columns("name", "description").
		Values(r.Name, r.Description).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return models.Role{}, fmt.Errorf("to sql error: %w", err)
	}

	if err = tx.QueryRow(ctx, query, args...).Scan(&r.ID); err != nil {
		target := new(pgconn.PgError)
		if errors.As(err, &target) && target.Code == pgerrUniqueViolation {
			err = rolerepo.ErrRoleAlreadyExists

			return models.Role{}, err
		}

		return models.Role{}, fmt.Errorf("exec error: %w", err)
	}

	return r, nil
}

func (rr RolesPostgresRepo) GetRole(ctx context.Context, id int) (models.Role, error) {
	return rr.getRole(ctx, squirrel.Eq{"id": id})
}

func (rr RolesPostgresRepo) GetRoleByName(ctx context.Context, name string) (models.Role, error) {
	return rr.getRole(ctx, squirrel.Eq{"name": name})
}

func (rr RolesPostgresRepo) getRole(ctx context.Context, where squirrel.Eq) (_ models.Role, err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return models.Role{}, fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "get role")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select("id", "name", "description").
		From("roles").
		Where(where).ToSql()
	if err != nil {
		return models.Role{}, fmt.Errorf("to sql error: %w", err)
	}

	var r models.Role

	if err = tx.QueryRow(ctx, query, args...).Scan(&r.ID, &r.Name, &r.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = rolerepo.ErrRoleNotFound

			return r, err
		}

		return r, fmt.Errorf("scan error: %w", err)
	}

	r.Scopes, err = scopesForRole(ctx, tx, r.ID)
	if err != nil {
		return r, fmt.Errorf("get role scopes error: %w", err)
	}

	return r, nil
}

func (rr RolesPostgresRepo) GetRolesByNames(ctx context.Context, names []string) (_ []models.Role, err error) {
	if len(names) == 0 {
		return nil, nil
	}

	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "get roles by names")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select("id", "name", "description").
		From("roles").
		Where(squirrel.Eq{"name": names}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql error: %w", err)
	}

	roles, err := collectRoles(ctx, tx, query, args)
	if err != nil {
		return nil, err
	}

	if len(roles) != len(names) {
		err = rolerepo.ErrRoleNotFound

		return nil, err
	}

	return roles, nil
}

func (rr RolesPostgresRepo) ListRoles(ctx context.Context) (_ []models.Role, err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "list roles")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select("id", "name", "description").
		From("roles").
		OrderBy("name ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql error: %w", err)
	}

	return collectRoles(ctx, tx, query, args)
}

func (rr RolesPostgresRepo) UpdateRole(ctx context.Context, r models.Role) (err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "update role")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Update("roles").
		Set("name", r.Name).
		Set("description", r.Description).
		Where(squirrel.Eq{"id": r.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	res, err := tx.Exec(ctx, query, args...)
	if err != nil {
		target := new(pgconn.PgError)
		if errors.As(err, &target) && target.Code == pgerrUniqueViolation {
			err = rolerepo.ErrRoleAlreadyExists

			return err
		}

		return fmt.Errorf("exec error: %w", err)
	}

	if res.RowsAffected() == 0 {
		err = rolerepo.ErrRoleNotFound

		return err
	}

	return nil
}

func (rr RolesPostgresRepo) DeleteRole(ctx context.Context, id int) (err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "delete role")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Delete("roles").
		Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	res, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	if res.RowsAffected() == 0 {
		err = rolerepo.ErrRoleNotFound

		return err
	}

	return nil
}

// AttachScopes adds scopes to a role. The attachment is additive: scopes
// already on the role stay there.
func (rr RolesPostgresRepo) AttachScopes(ctx context.Context, roleID int, scopeIDs []int) (err error) {
	if len(scopeIDs) == 0 {
		return nil
	}

	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "attach scopes")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	b := psql.Insert("role_scope").Columns("role_id", "scope_id")
	for _, scopeID := range scopeIDs {
		b = b.Values(roleID, scopeID)
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

func (rr RolesPostgresRepo) CreateScope(ctx context.Context, s models.Scope) (_ models.Scope, err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return models.Scope{}, fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "create scope")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Insert("scopes").
		Columns("name", "description").
		Values(s.Name, s.Description).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return models.Scope{}, fmt.Errorf("to sql error: %w", err)
	}

	if err = tx.QueryRow(ctx, query, args...).Scan(&s.ID); err != nil {
		target := new(pgconn.PgError)
		if errors.As(err, &target) && target.Code == pgerrUniqueViolation {
			err = rolerepo.ErrScopeAlreadyExists

			return models.Scope{}, err
		}

		return models.Scope{}, fmt.Errorf("exec error: %w", err)
	}

	return s, nil
}

func (rr RolesPostgresRepo) GetScope(ctx context.Context, id int) (models.Scope, error) {
	return rr.getScope(ctx, squirrel.Eq{"id": id})
}

func (rr RolesPostgresRepo) GetScopeByName(ctx context.Context, name string) (models.Scope, error) {
	return rr.getScope(ctx, squirrel.Eq{"name": name})
}

func (rr RolesPostgresRepo) getScope(ctx context.Context, where squirrel.Eq) (_ models.Scope, err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return models.Scope{}, fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "get scope")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select("id", "name", "description").
		From("scopes").
		Where(where).ToSql()
	if err != nil {
		return models.Scope{}, fmt.Errorf("to sql error: %w", err)
	}

	var s models.Scope

	if err = tx.QueryRow(ctx, query, args...).Scan(&s.ID, &s.Name, &s.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = rolerepo.ErrScopeNotFound

			return s, err
		}

		return s, fmt.Errorf("scan error: %w", err)
	}

	return s, nil
}

func (rr RolesPostgresRepo) ListScopes(ctx context.Context) (_ []models.Scope, err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "list scopes")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select("id", "name", "description").
		From("scopes").
		OrderBy("name ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql error: %w", err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var scopes []models.Scope

	for rows.Next() {
		var s models.Scope
		if err = rows.Scan(&s.ID, &s.Name, &s.Description); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}

		scopes = append(scopes, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return scopes, nil
}

func (rr RolesPostgresRepo) UpdateScope(ctx context.Context, s models.Scope) (err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "update scope")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Update("scopes").
		Set("name", s.Name).
		Set("description", s.Description).
		Where(squirrel.Eq{"id": s.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	res, err := tx.Exec(ctx, query, args...)
	if err != nil {
		target := new(pgconn.PgError)
		if errors.As(err, &target) && target.Code == pgerrUniqueViolation {
			err = rolerepo.ErrScopeAlreadyExists

			return err
		}

		return fmt.Errorf("exec error: %w", err)
	}

	if res.RowsAffected() == 0 {
		err = rolerepo.ErrScopeNotFound

		return err
	}

	return nil
}

func (rr RolesPostgresRepo) DeleteScope(ctx context.Context, id int) (err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "delete scope")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Delete("scopes").
		Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	res, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	if res.RowsAffected() == 0 {
		err = rolerepo.ErrScopeNotFound

		return err
	}

	return nil
}

func collectRoles(ctx context.Context, tx pgx.Tx, query string, args []interface{}) ([]models.Role, error) {
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

func scopesForRole(ctx context.Context, tx pgx.Tx, roleID int) ([]models.Scope, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select("s.id", "s.name", "s.description").
		From("scopes s").
		Join("role_scope rs ON rs.scope_id = s.id").
		Where(squirrel.Eq{"rs.role_id": roleID}).
		OrderBy("s.name ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql error: %w", err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var scopes []models.Scope

	for rows.Next() {
		var s models.Scope
		if err := rows.Scan(&s.ID, &s.Name, &s.Description); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}

		scopes = append(scopes, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return scopes, nil
}
