package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mmeshcher/marketplace-system/internal/model"
)

const accountColumns = `id, username, email, password_hash, first_name, last_name, role, role_seq, is_staff, created_at, last_login`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName,
		&a.Role, &a.RoleSeq, &a.IsStaff, &a.CreatedAt, &a.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

const roleSeqAttempts = 3

func isRoleSeqConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		pgErr.ConstraintName == "accounts_role_seq_unique"
}

// retryRoleSeq повторяет вставку при конфликте по (role, role_seq):
// параллельная регистрация могла занять вычисленный номер. Любая другая
// ошибка возвращается сразу.
func retryRoleSeq(create func() (*model.Account, error)) (*model.Account, error) {
	var acc *model.Account
	var err error
	for attempt := 0; attempt < roleSeqAttempts; attempt++ {
		acc, err = create()
		if err == nil || !isRoleSeqConflict(err) {
			return acc, err
		}
	}
	return nil, err
}

// CreateAccount создаёт аккаунт вместе с пустым профилем.
// Порядковый номер роли вычисляется внутри INSERT и защищён уникальным
// ограничением (role, role_seq); при конфликте вставка повторяется.
func (r *PostgresRepository) CreateAccount(ctx context.Context, username, email string, passwordHash []byte, role model.Role) (*model.Account, error) {
	var acc *model.Account

	err := r.withRetry(ctx, func() error {
		var createErr error
		acc, createErr = retryRoleSeq(func() (*model.Account, error) {
			return r.tryCreateAccount(ctx, username, email, passwordHash, role)
		})
		return createErr
	})
	if err != nil {
		return nil, err
	}

	return acc, nil
}

func (r *PostgresRepository) tryCreateAccount(ctx context.Context, username, email string, passwordHash []byte, role model.Role) (*model.Account, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`INSERT INTO accounts (username, email, password_hash, role, role_seq)
		 VALUES ($1, $2, $3, $4,
		         (SELECT COALESCE(MAX(role_seq), 0) + 1 FROM accounts WHERE role = $4))
		 RETURNING `+accountColumns,
		username, email, string(passwordHash), string(role),
	)

	acc, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			switch pgErr.ConstraintName {
			case "accounts_username_key":
				return nil, fmt.Errorf("%w: %s", ErrUsernameTaken, username)
			case "accounts_email_key":
				return nil, fmt.Errorf("%w: %s", ErrEmailTaken, email)
			}
		}
		return nil, err
	}

	_, err = tx.Exec(ctx, `INSERT INTO profiles (account_id) VALUES ($1)`, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return acc, nil
}

// GetAccountByID возвращает аккаунт по внутреннему идентификатору.
func (r *PostgresRepository) GetAccountByID(ctx context.Context, id int64) (*model.Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetAccountByUsername возвращает аккаунт по имени пользователя.
func (r *PostgresRepository) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	return scanAccount(row)
}

// GetAccountByRoleSeq возвращает аккаунт по роли и публичному порядковому номеру.
func (r *PostgresRepository) GetAccountByRoleSeq(ctx context.Context, role model.Role, seq int64) (*model.Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE role = $1 AND role_seq = $2`,
		string(role), seq)
	return scanAccount(row)
}

// TouchLastLogin обновляет отметку времени последнего входа.
func (r *PostgresRepository) TouchLastLogin(ctx context.Context, accountID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET last_login = now() WHERE id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

// GetOrCreateToken возвращает ключ токена аккаунта, создавая его при первом обращении.
// Повторные вызовы возвращают ранее выданный ключ.
func (r *PostgresRepository) GetOrCreateToken(ctx context.Context, accountID int64, newKey string) (string, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO auth_tokens (account_id, key) VALUES ($1, $2)
		 ON CONFLICT (account_id) DO NOTHING`,
		accountID, newKey,
	)
	if err != nil {
		return "", fmt.Errorf("insert token: %w", err)
	}

	var key string
	err = r.pool.QueryRow(ctx,
		`SELECT key FROM auth_tokens WHERE account_id = $1`, accountID,
	).Scan(&key)
	if err != nil {
		return "", fmt.Errorf("select token: %w", err)
	}

	return key, nil
}

// GetAccountByToken возвращает аккаунт, которому принадлежит указанный ключ токена.
func (r *PostgresRepository) GetAccountByToken(ctx context.Context, key string) (*model.Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT a.id, a.username, a.email, a.password_hash, a.first_name, a.last_name,
		        a.role, a.role_seq, a.is_staff, a.created_at, a.last_login
		 FROM accounts a
		 JOIN auth_tokens t ON t.account_id = a.id
		 WHERE t.key = $1`, key)
	return scanAccount(row)
}

const profileQuery = `
	SELECT a.id, a.username, a.email, a.password_hash, a.first_name, a.last_name,
	       a.role, a.role_seq, a.is_staff, a.created_at, a.last_login,
	       p.description, p.file, p.location, p.tel, p.working_hours, p.uploaded_at
	FROM profiles p
	JOIN accounts a ON a.id = p.account_id`

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	a := &p.Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName,
		&a.Role, &a.RoleSeq, &a.IsStaff, &a.CreatedAt, &a.LastLogin,
		&p.Description, &p.File, &p.Location, &p.Tel, &p.WorkingHours, &p.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return &p, nil
}

// GetProfile возвращает профиль вместе с данными аккаунта.
func (r *PostgresRepository) GetProfile(ctx context.Context, accountID int64) (*model.Profile, error) {
	row := r.pool.QueryRow(ctx, profileQuery+` WHERE p.account_id = $1`, accountID)
	return scanProfile(row)
}

// ListProfilesByRole возвращает все профили аккаунтов указанной роли.
func (r *PostgresRepository) ListProfilesByRole(ctx context.Context, role model.Role) ([]model.Profile, error) {
	rows, err := r.pool.Query(ctx,
		profileQuery+` WHERE a.role = $1 ORDER BY a.role_seq`, string(role))
	if err != nil {
		return nil, fmt.Errorf("select profiles: %w", err)
	}
	defer rows.Close()

	var res []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateProfile применяет частичное обновление профиля и связанных полей аккаунта.
// Отметка uploaded_at обновляется при каждом изменении профиля.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, accountID int64, patch model.ProfilePatch) (*model.Profile, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE accounts SET
		    first_name = COALESCE($2, first_name),
		    last_name  = COALESCE($3, last_name),
		    email      = COALESCE($4, email)
		 WHERE id = $1`,
		accountID, patch.FirstName, patch.LastName, patch.Email,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrProfileNotFound
	}

	_, err = tx.Exec(ctx,
		`UPDATE profiles SET
		    description   = COALESCE($2, description),
		    file          = COALESCE($3, file),
		    location      = COALESCE($4, location),
		    tel           = COALESCE($5, tel),
		    working_hours = COALESCE($6, working_hours),
		    uploaded_at   = now()
		 WHERE account_id = $1`,
		accountID, patch.Description, patch.File, patch.Location, patch.Tel, patch.WorkingHours,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return r.GetProfile(ctx, accountID)
}
