package pg

import (
	"context"

	"github.com/google/uuid"

	"github.com/polyclinic/scheduler/internal/clinic"
)

func (s *Store) CreateRoom(ctx context.Context, r clinic.Room) (clinic.Room, error) {
	_, err := s.db.ExecContext(ctx, `insert into rooms(id, number, created_at) values ($1,$2,$3)`, r.ID, r.Number, r.CreatedAt)
	if err != nil {
		return clinic.Room{}, classify("create room", err)
	}
	return r, nil
}

func (s *Store) GetRoom(ctx context.Context, id uuid.UUID) (clinic.Room, error) {
	var r clinic.Room
	err := s.db.QueryRowContext(ctx, `select id, number, created_at from rooms where id=$1`, id).Scan(&r.ID, &r.Number, &r.CreatedAt)
	if err != nil {
		return clinic.Room{}, classify("get room", err)
	}
	return r, nil
}

func (s *Store) ListRooms(ctx context.Context, p clinic.Page) ([]clinic.Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, number, created_at from rooms
		order by number
		limit $1 offset $2
	`, p.Limit(), p.Offset())
	if err != nil {
		return nil, classify("list rooms", err)
	}
	defer rows.Close()

	var out []clinic.Room
	for rows.Next() {
		var r clinic.Room
		if err := rows.Scan(&r.ID, &r.Number, &r.CreatedAt); err != nil {
			return nil, classify("list rooms", err)
		}
		out = append(out, r)
	}
	return out, classify("list rooms", rows.Err())
}

func (s *Store) UpdateRoom(ctx context.Context, r clinic.Room) (clinic.Room, error) {
	res, err := s.db.ExecContext(ctx, `update rooms set number=$2 where id=$1`, r.ID, r.Number)
	if err := affected("update room", res, err); err != nil {
		return clinic.Room{}, err
	}
	return r, nil
}

func (s *Store) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `delete from rooms where id=$1`, id)
	return affected("delete room", res, err)
}
