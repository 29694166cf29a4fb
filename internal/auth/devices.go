// AngelaMos | 2026
// devices.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/propertynext/backend/internal/core"
)

type DeviceRepository interface {
	ActiveForUser(ctx context.Context, userID string) ([]UserDevice, error)
	Upsert(ctx context.Context, device *UserDevice) error
	Deactivate(ctx context.Context, userID, deviceID string) error
	DeactivateLeastRecentlyActive(
		ctx context.Context,
		userID string,
	) (string, error)
	DeactivateAllForUser(ctx context.Context, userID string) error
	Touch(ctx context.Context, userID, deviceID string) error
}

type deviceRepository struct {
	db core.DBTX
}

func NewDeviceRepository(db core.DBTX) DeviceRepository {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) ActiveForUser(
	ctx context.Context,
	userID string,
) ([]UserDevice, error) {
	query := `
		SELECT id, user_id, device_id, user_agent, ip_address, is_active,
		       last_active, created_at
		FROM user_devices
		WHERE user_id = $1 AND is_active = true
		ORDER BY last_active DESC`

	var devices []UserDevice
	if err := r.db.SelectContext(ctx, &devices, query, userID); err != nil {
		return nil, fmt.Errorf("list active devices: %w", err)
	}

	return devices, nil
}

// Upsert registers a new device or reactivates an existing fingerprint,
// refreshing last_active either way.
func (r *deviceRepository) Upsert(
	ctx context.Context,
	device *UserDevice,
) error {
	if device.ID == "" {
		device.ID = uuid.New().String()
	}

	query := `
		INSERT INTO user_devices (
			id, user_id, device_id, user_agent, ip_address, is_active,
			last_active
		) VALUES ($1, $2, $3, $4, $5, true, NOW())
		ON CONFLICT (user_id, device_id) DO UPDATE
		SET is_active = true,
		    user_agent = EXCLUDED.user_agent,
		    ip_address = EXCLUDED.ip_address,
		    last_active = NOW()
		RETURNING id, last_active, created_at`

	err := r.db.GetContext(ctx, device, query,
		device.ID,
		device.UserID,
		device.DeviceID,
		device.UserAgent,
		device.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("upsert device: %w", err)
	}

	device.IsActive = true
	return nil
}

func (r *deviceRepository) Deactivate(
	ctx context.Context,
	userID, deviceID string,
) error {
	query := `
		UPDATE user_devices
		SET is_active = false
		WHERE user_id = $1 AND device_id = $2 AND is_active = true`

	result, err := r.db.ExecContext(ctx, query, userID, deviceID)
	if err != nil {
		return fmt.Errorf("deactivate device: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate device: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("deactivate device: %w", core.ErrNotFound)
	}

	return nil
}

// DeactivateLeastRecentlyActive evicts the active device with the oldest
// last_active timestamp and returns its fingerprint.
func (r *deviceRepository) DeactivateLeastRecentlyActive(
	ctx context.Context,
	userID string,
) (string, error) {
	query := `
		UPDATE user_devices
		SET is_active = false
		WHERE id = (
			SELECT id FROM user_devices
			WHERE user_id = $1 AND is_active = true
			ORDER BY last_active ASC
			LIMIT 1
		)
		RETURNING device_id`

	var deviceID string
	err := r.db.GetContext(ctx, &deviceID, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("evict device: %w", core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("evict device: %w", err)
	}

	return deviceID, nil
}

func (r *deviceRepository) DeactivateAllForUser(
	ctx context.Context,
	userID string,
) error {
	query := `
		UPDATE user_devices
		SET is_active = false
		WHERE user_id = $1 AND is_active = true`

	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("deactivate all devices: %w", err)
	}

	return nil
}

func (r *deviceRepository) Touch(
	ctx context.Context,
	userID, deviceID string,
) error {
	query := `
		UPDATE user_devices
		SET last_active = NOW()
		WHERE user_id = $1 AND device_id = $2 AND is_active = true`

	_, err := r.db.ExecContext(ctx, query, userID, deviceID)
	if err != nil {
		return fmt.Errorf("touch device: %w", err)
	}

	return nil
}
