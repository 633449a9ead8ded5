package pg

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/polyclinic/scheduler/internal/clinic"
)

const doctorColumns = `id, name, surname, age, specialization, category, created_at`

func scanDoctor(row scanner) (clinic.Doctor, error) {
	var (
		d        clinic.Doctor
		surname  sql.NullString
		spec     sql.NullString
		category string
	)
	if err := row.Scan(&d.ID, &d.Name, &surname, &d.Age, &spec, &category, &d.CreatedAt); err != nil {
		return clinic.Doctor{}, err
	}
	d.Surname = surname.String
	d.Specialization = spec.String
	d.Category = clinic.Category(category)
	return d, nil
}

func (s *Store) CreateDoctor(ctx context.Context, d clinic.Doctor) (clinic.Doctor, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into doctors(id, name, surname, age, specialization, category, created_at)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, d.ID, d.Name, nullIfEmpty(d.Surname), d.Age, nullIfEmpty(d.Specialization), string(d.Category), d.CreatedAt)
	if err != nil {
		return clinic.Doctor{}, classify("create doctor", err)
	}
	return d, nil
}

func (s *Store) GetDoctor(ctx context.Context, id uuid.UUID) (clinic.Doctor, error) {
	d, err := scanDoctor(s.db.QueryRowContext(ctx, `select `+doctorColumns+` from doctors where id=$1`, id))
	if err != nil {
		return clinic.Doctor{}, classify("get doctor", err)
	}
	return d, nil
}

func (s *Store) ListDoctors(ctx context.Context, p clinic.Page) ([]clinic.Doctor, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+doctorColumns+` from doctors
		order by created_at, id
		limit $1 offset $2
	`, p.Limit(), p.Offset())
	if err != nil {
		return nil, classify("list doctors", err)
	}
	defer rows.Close()

	var out []clinic.Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, classify("list doctors", err)
		}
		out = append(out, d)
	}
	return out, classify("list doctors", rows.Err())
}

func (s *Store) UpdateDoctor(ctx context.Context, d clinic.Doctor) (clinic.Doctor, error) {
	res, err := s.db.ExecContext(ctx, `
		update doctors set name=$2, surname=$3, age=$4, specialization=$5, category=$6
		where id=$1
	`, d.ID, d.Name, nullIfEmpty(d.Surname), d.Age, nullIfEmpty(d.Specialization), string(d.Category))
	if err := affected("update doctor", res, err); err != nil {
		return clinic.Doctor{}, err
	}
	return d, nil
}

func (s *Store) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `delete from doctors where id=$1`, id)
	return affected("delete doctor", res, err)
}
