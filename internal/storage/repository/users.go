package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
)

const userColumns = `uid, email, display_name, role, plan, expiry_date,
			      purchase_token, push_token, created_at`

// checkUID отсекает идентификаторы, которые не могут быть UUID: такого пользователя
// заведомо нет, а Postgres ответил бы ошибкой синтаксиса.
func checkUID(op, userUID string) error {
	if _, err := uuid.Parse(userUID); err != nil {
		return fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                         models.User
		expiry                    sql.NullTime
		purchaseToken, pushToken sql.NullString
	)
	if err := row.Scan(&u.UID, &u.Email, &u.DisplayName, &u.Role, &u.Plan,
		&expiry, &purchaseToken, &pushToken, &u.CreatedAt); err != nil {
		return nil, err
	}
	if expiry.Valid {
		u.ExpiryDate = &expiry.Time
	}
	if purchaseToken.Valid {
		u.PurchaseToken = &purchaseToken.String
	}
	if pushToken.Valid {
		u.PushToken = &pushToken.String
	}
	return &u, nil
}

// GetUser возвращает пользователя по UID. Отсутствие записи даёт models.ErrUserNotFound.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	if err := checkUID(op, userUID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateEntitlement одной командой записывает план, дату окончания и токен покупки
// обычного пользователя. Для администратора или неизвестного UID возвращает models.ErrUserNotFound.
func (s *Storage) UpdateEntitlement(ctx context.Context, userUID, plan string,
	expiry *time.Time, purchaseToken *string) (*models.Entitlement, error) {
	const op = "storage.UpdateEntitlement"
	if err := checkUID(op, userUID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `UPDATE users
			  SET plan = $2, expiry_date = $3, purchase_token = $4, updated_at = NOW()
			  WHERE uid = $1 AND role = 'user'
			  RETURNING uid, plan, expiry_date, purchase_token`

	var (
		e      models.Entitlement
		exp    sql.NullTime
		ptoken sql.NullString
	)
	err := s.DB.QueryRowContext(ctx, query, userUID, plan, expiry, purchaseToken).
		Scan(&e.UserUID, &e.Plan, &exp, &ptoken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if exp.Valid {
		e.ExpiryDate = &exp.Time
	}
	e.PurchaseToken = ptoken.String
	return &e, nil
}

// DowngradeExpired переводит пользователя на free, если его платный план истёк к моменту now.
// Условие повторяется в WHERE, поэтому параллельная покупка не будет затёрта.
// Возвращает true, если запись была изменена.
func (s *Storage) DowngradeExpired(ctx context.Context, userUID string, now time.Time) (bool, error) {
	const op = "storage.DowngradeExpired"
	if err := checkUID(op, userUID); err != nil {
		return false, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `UPDATE users
			  SET plan = 'free', expiry_date = NULL, purchase_token = NULL, updated_at = NOW()
			  WHERE uid = $1
			    AND plan NOT IN ('free', 'lifetime')
			    AND expiry_date < $2`
	res, err := s.DB.ExecContext(ctx, query, userUID, now)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// FindUsersWithToken возвращает всех обычных пользователей с непустым push-токеном.
func (s *Storage) FindUsersWithToken(ctx context.Context) ([]models.Recipient, error) {
	const op = "storage.FindUsersWithToken"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT uid, push_token
			  FROM users
			  WHERE role = 'user'
			    AND push_token IS NOT NULL
			    AND push_token <> ''
			  ORDER BY created_at, uid`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Recipient
	for rows.Next() {
		var r models.Recipient
		if err := rows.Scan(&r.UserID, &r.Token); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// SetPushToken заменяет push-токен пользователя. Побеждает последняя запись.
func (s *Storage) SetPushToken(ctx context.Context, userUID, token string) error {
	const op = "storage.SetPushToken"
	if err := checkUID(op, userUID); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `UPDATE users
			  SET push_token = $2, updated_at = NOW()
			  WHERE uid = $1 AND role = 'user'`
	res, err := s.DB.ExecContext(ctx, query, userUID, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	return nil
}

// FindExpiringUsers находит пользователей с платным непожизненным планом,
// который заканчивается в интервале [from, to), и с зарегистрированным push-токеном.
func (s *Storage) FindExpiringUsers(ctx context.Context, from, to time.Time) ([]models.ExpiringUser, error) {
	const op = "storage.FindExpiringUsers"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT uid, plan, expiry_date
			  FROM users
			  WHERE role = 'user'
			    AND plan NOT IN ('free', 'lifetime')
			    AND expiry_date >= $1
			    AND expiry_date < $2
			    AND push_token IS NOT NULL
			    AND push_token <> ''
			  ORDER BY expiry_date`
	rows, err := s.DB.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.ExpiringUser
	for rows.Next() {
		var u models.ExpiringUser
		if err := rows.Scan(&u.UID, &u.Plan, &u.ExpiryDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
