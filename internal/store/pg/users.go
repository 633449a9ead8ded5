package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/polyclinic/scheduler/internal/auth"
	"github.com/polyclinic/scheduler/internal/clinic"
)

const userColumns = `id, name, surname, email, age, phone, role, disabled, hashed_password,
	reset_token, reset_token_expires, created_at, updated_at`

func scanIdentity(row scanner) (auth.Identity, error) {
	var (
		u       auth.Identity
		role    string
		email   sql.NullString
		phone   sql.NullString
		token   sql.NullString
		expires sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Surname, &email, &u.Age, &phone, &role, &u.Disabled,
		&u.PasswordHash, &token, &expires, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return auth.Identity{}, err
	}
	u.Email = email.String
	u.Phone = phone.String
	u.Role = auth.Role(role)
	u.ResetToken = token.String
	if expires.Valid {
		t := expires.Time.UTC()
		u.ResetTokenExpires = &t
	}
	return u, nil
}

func (s *Store) FindIdentity(ctx context.Context, id uuid.UUID) (auth.Identity, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id=$1`, id)
	u, err := scanIdentity(row)
	if err != nil {
		return auth.Identity{}, classify("find user", err)
	}
	return u, nil
}

func (s *Store) FindIdentityByEmail(ctx context.Context, email string) (auth.Identity, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where lower(email)=$1`, strings.ToLower(strings.TrimSpace(email)))
	u, err := scanIdentity(row)
	if err != nil {
		return auth.Identity{}, classify("find user by email", err)
	}
	return u, nil
}

// SetResetToken overwrites any pending token in one statement.
func (s *Store) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update users set reset_token=$2, reset_token_expires=$3
		where id=$1
	`, id, token, expiresAt.UTC())
	return affected("set reset token", res, err)
}

// ConsumeResetToken swaps the password and clears the reset fields only while
// the submitted token is still the stored, unexpired one.
func (s *Store) ConsumeResetToken(ctx context.Context, id uuid.UUID, token, passwordHash string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		update users
		set hashed_password=$3, reset_token=null, reset_token_expires=null, updated_at=$4
		where id=$1 and reset_token=$2 and reset_token_expires >= $4
	`, id, token, passwordHash, now.UTC())
	if err != nil {
		return false, classify("consume reset token", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("consume reset token", err)
	}
	return n == 1, nil
}

func (s *Store) CreateUser(ctx context.Context, u auth.Identity) (auth.Identity, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into users(id, name, surname, email, age, phone, role, disabled, hashed_password, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, u.ID, u.Name, u.Surname, nullIfEmpty(u.Email), u.Age, nullIfEmpty(u.Phone), string(u.Role), u.Disabled,
		u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return auth.Identity{}, classify("create user", err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context, p clinic.Page) ([]auth.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+userColumns+` from users
		order by created_at, id
		limit $1 offset $2
	`, p.Limit(), p.Offset())
	if err != nil {
		return nil, classify("list users", err)
	}
	defer rows.Close()

	var out []auth.Identity
	for rows.Next() {
		u, err := scanIdentity(rows)
		if err != nil {
			return nil, classify("list users", err)
		}
		out = append(out, u)
	}
	return out, classify("list users", rows.Err())
}

// UpdateUser writes only the columns set in upd and returns the stored row.
// Password and reset columns are left alone unless the password changes.
func (s *Store) UpdateUser(ctx context.Context, id uuid.UUID, upd clinic.UserUpdate) (auth.Identity, error) {
	args := []any{id}
	var sets []string
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.Surname != nil {
		set("surname", *upd.Surname)
	}
	if upd.Email != nil {
		set("email", nullIfEmpty(*upd.Email))
	}
	if upd.Age != nil {
		set("age", *upd.Age)
	}
	if upd.Phone != nil {
		set("phone", nullIfEmpty(*upd.Phone))
	}
	if upd.Role != nil {
		set("role", string(*upd.Role))
	}
	if upd.Disabled != nil {
		set("disabled", *upd.Disabled)
	}
	if upd.PasswordHash != nil {
		set("hashed_password", *upd.PasswordHash)
		sets = append(sets, "reset_token=null", "reset_token_expires=null")
	}
	set("updated_at", upd.UpdatedAt)

	row := s.db.QueryRowContext(ctx,
		`update users set `+strings.Join(sets, ", ")+` where id=$1 returning `+userColumns, args...)
	u, err := scanIdentity(row)
	if err != nil {
		return auth.Identity{}, classify("update user", err)
	}
	return u, nil
}

// DeleteUser removes the row; appointments go with it via ON DELETE CASCADE.
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	return affected("delete user", res, err)
}
