package pg

import (
	"context"

	"github.com/google/uuid"

	"github.com/polyclinic/scheduler/internal/clinic"
)

const appointmentColumns = `id, starts_at, doctor_id, user_id, room_id, created_at`

func scanAppointment(row scanner) (clinic.Appointment, error) {
	var a clinic.Appointment
	if err := row.Scan(&a.ID, &a.StartsAt, &a.DoctorID, &a.UserID, &a.RoomID, &a.CreatedAt); err != nil {
		return clinic.Appointment{}, err
	}
	a.StartsAt = a.StartsAt.UTC()
	return a, nil
}

func (s *Store) CreateAppointment(ctx context.Context, a clinic.Appointment) (clinic.Appointment, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into appointments(id, starts_at, doctor_id, user_id, room_id, created_at)
		values ($1,$2,$3,$4,$5,$6)
	`, a.ID, a.StartsAt, a.DoctorID, a.UserID, a.RoomID, a.CreatedAt)
	if err != nil {
		return clinic.Appointment{}, classify("create appointment", err)
	}
	return a, nil
}

func (s *Store) GetAppointment(ctx context.Context, id uuid.UUID) (clinic.Appointment, error) {
	a, err := scanAppointment(s.db.QueryRowContext(ctx, `select `+appointmentColumns+` from appointments where id=$1`, id))
	if err != nil {
		return clinic.Appointment{}, classify("get appointment", err)
	}
	return a, nil
}

// ListAppointments orders by start time. Nil filter ids match every row.
func (s *Store) ListAppointments(ctx context.Context, f clinic.AppointmentFilter, p clinic.Page) ([]clinic.Appointment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+appointmentColumns+` from appointments
		where ($1::uuid is null or user_id = $1)
		  and ($2::uuid is null or doctor_id = $2)
		order by starts_at, id
		limit $3 offset $4
	`, nullUUID(f.UserID), nullUUID(f.DoctorID), p.Limit(), p.Offset())
	if err != nil {
		return nil, classify("list appointments", err)
	}
	defer rows.Close()

	var out []clinic.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, classify("list appointments", err)
		}
		out = append(out, a)
	}
	return out, classify("list appointments", rows.Err())
}

func (s *Store) UpdateAppointment(ctx context.Context, a clinic.Appointment) (clinic.Appointment, error) {
	res, err := s.db.ExecContext(ctx, `
		update appointments set starts_at=$2, doctor_id=$3, room_id=$4
		where id=$1
	`, a.ID, a.StartsAt, a.DoctorID, a.RoomID)
	if err := affected("update appointment", res, err); err != nil {
		return clinic.Appointment{}, err
	}
	return a, nil
}

func (s *Store) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `delete from appointments where id=$1`, id)
	return affected("delete appointment", res, err)
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
