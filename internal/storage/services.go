package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/samber/mo"
)

// CreateService inserts a new service and assigns its ID.
func (s *Store) CreateService(ctx context.Context, svc *Service) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO services (account_name, type, principal_url) VALUES (?, ?, ?)
	`, svc.AccountName, string(svc.Type), nullString(svc.PrincipalURL))
	if err != nil {
		return fmt.Errorf("inserting service: %w", err)
	}
	svc.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading service id: %w", err)
	}
	return nil
}

// GetService retrieves a service by its ID.
func (s *Store) GetService(ctx context.Context, id int64) (*Service, error) {
	return s.scanService(s.db.QueryRowContext(ctx, `
		SELECT id, account_name, type, principal_url FROM services WHERE id = ?
	`, id))
}

// GetServiceByAccount retrieves the service of the given type for an account.
func (s *Store) GetServiceByAccount(ctx context.Context, accountName string, typ ServiceType) (*Service, error) {
	return s.scanService(s.db.QueryRowContext(ctx, `
		SELECT id, account_name, type, principal_url FROM services
		WHERE account_name = ? AND type = ?
	`, accountName, string(typ)))
}

func (s *Store) scanService(row *sql.Row) (*Service, error) {
	svc := &Service{}
	var typ string
	var principal sql.NullString
	err := row.Scan(&svc.ID, &svc.AccountName, &typ, &principal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying service: %w", err)
	}
	svc.Type = ServiceType(typ)
	svc.PrincipalURL = optionString(principal)
	return svc, nil
}

// ListServices retrieves all services ordered by account name and type.
func (s *Store) ListServices(ctx context.Context) ([]Service, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_name, type, principal_url FROM services
		ORDER BY account_name, type
	`)
	if err != nil {
		return nil, fmt.Errorf("querying services: %w", err)
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		var svc Service
		var typ string
		var principal sql.NullString
		if err := rows.Scan(&svc.ID, &svc.AccountName, &typ, &principal); err != nil {
			return nil, fmt.Errorf("scanning service: %w", err)
		}
		svc.Type = ServiceType(typ)
		svc.PrincipalURL = optionString(principal)
		services = append(services, svc)
	}

	return services, rows.Err()
}

// SetPrincipalURL records (or clears) the principal URL discovered for a
// service.
func (s *Store) SetPrincipalURL(ctx context.Context, id int64, principalURL mo.Option[string]) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE services SET principal_url = ? WHERE id = ?
	`, nullString(principalURL), id)
	if err != nil {
		return fmt.Errorf("updating principal URL: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteService removes a service; home sets and collections cascade.
func (s *Store) DeleteService(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM services WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting service: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
