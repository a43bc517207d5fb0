package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dpm-agent/internal/domain/entities"
	"dpm-agent/internal/domain/errors"
	"dpm-agent/internal/infrastructure/metrics"

	"github.com/sirupsen/logrus"
)

// MySQLRepository는 MySQL 기반의 디바이스 소스, 섀시 인벤토리, 연결 상태 저장소 구현체입니다.
// dpm_port, dpm_cpc, dpm_adapter는 외부에서 채워지는 테이블이고
// dpm_port_wiring은 에이전트가 소유하며 (host, mac) 단위로 기록됩니다.
type MySQLRepository struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewMySQLRepository는 새로운 MySQLRepository를 생성합니다
func NewMySQLRepository(db *sql.DB, logger *logrus.Logger) *MySQLRepository {
	return &MySQLRepository{
		db:     db,
		logger: logger,
	}
}

const createWiringTable = `
	CREATE TABLE IF NOT EXISTS dpm_port_wiring (
		host           VARCHAR(255) NOT NULL,
		mac            VARCHAR(17) NOT NULL,
		adapter_id     VARCHAR(36) NULL,
		port_index     INT NULL,
		admin_state_up TINYINT(1) NOT NULL DEFAULT 0,
		protected      TINYINT(1) NOT NULL DEFAULT 0,
		modified_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (host, mac)
	)`

// EnsureSchema는 에이전트 소유 테이블을 생성합니다
func (r *MySQLRepository) EnsureSchema(ctx context.Context) error {
	defer observe("ensure_schema", time.Now())

	if _, err := r.db.ExecContext(ctx, createWiringTable); err != nil {
		return errors.NewSystemError("failed to create dpm_port_wiring table", err)
	}
	return nil
}

// ListDeviceIDs는 호스트에 바인딩된 삭제되지 않은 포트의 MAC 주소를 조회합니다
func (r *MySQLRepository) ListDeviceIDs(ctx context.Context, host string) ([]entities.DeviceID, error) {
	defer observe("list_devices", time.Now())

	query := `
		SELECT mac_address
		FROM dpm_port
		WHERE host = ?
		AND deleted_at IS NULL
		ORDER BY mac_address
	`

	rows, err := r.db.QueryContext(ctx, query, host)
	if err != nil {
		return nil, errors.NewSystemError("failed to query devices", err)
	}
	defer rows.Close()

	var ids []entities.DeviceID
	for rows.Next() {
		var mac string
		if err := rows.Scan(&mac); err != nil {
			r.logger.WithError(err).Error("Failed to scan device row")
			continue
		}
		id, err := entities.NewDeviceID(mac)
		if err != nil {
			r.logger.WithField("mac_address", mac).Warn("Skipping port with malformed MAC address")
			continue
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.NewSystemError("error while reading device rows", err)
	}

	return ids, nil
}

// GetDevice는 디바이스의 관리 상태와 물리 네트워크 정보를 조회합니다
func (r *MySQLRepository) GetDevice(ctx context.Context, host string, id entities.DeviceID) (*entities.Device, error) {
	defer observe("get_device", time.Now())

	query := `
		SELECT port_id, network_id, physical_network, segmentation_type, device_owner, admin_state_up
		FROM dpm_port
		WHERE host = ? AND mac_address = ?
		AND deleted_at IS NULL
	`

	device := entities.Device{ID: id}
	var physnet, segType, owner sql.NullString
	var adminStateUp int

	err := r.db.QueryRowContext(ctx, query, host, id.String()).Scan(
		&device.PortID,
		&device.NetworkID,
		&physnet,
		&segType,
		&owner,
		&adminStateUp,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("device %s not found on host %s", id, host))
	}
	if err != nil {
		return nil, errors.NewSystemError("failed to query device", err)
	}

	device.PhysicalNetwork = physnet.String
	device.SegmentationType = segType.String
	device.DeviceOwner = owner.String
	device.AdminStateUp = adminStateUp == 1

	return &device, nil
}

// FindChassis는 이름으로 CPC와 그 어댑터 목록을 조회합니다
func (r *MySQLRepository) FindChassis(ctx context.Context, name string) (*entities.Chassis, error) {
	defer observe("find_chassis", time.Now())

	chassis := entities.Chassis{Adapters: make(map[string]entities.Adapter)}
	var dpmEnabled int

	err := r.db.QueryRowContext(ctx,
		`SELECT object_id, name, dpm_enabled FROM dpm_cpc WHERE name = ?`, name,
	).Scan(&chassis.ObjectID, &chassis.Name, &dpmEnabled)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("CPC %s not found", name))
	}
	if err != nil {
		return nil, errors.NewSystemError("failed to query CPC", err)
	}
	chassis.DPMEnabled = dpmEnabled == 1

	rows, err := r.db.QueryContext(ctx,
		`SELECT object_id, name, cpc_id, port_count FROM dpm_adapter WHERE cpc_id = ?`, chassis.ObjectID)
	if err != nil {
		return nil, errors.NewSystemError("failed to query adapters", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a entities.Adapter
		if err := rows.Scan(&a.ObjectID, &a.Name, &a.ChassisID, &a.PortCount); err != nil {
			r.logger.WithError(err).Error("Failed to scan adapter row")
			continue
		}
		chassis.Adapters[strings.ToLower(a.ObjectID)] = a
	}

	if err = rows.Err(); err != nil {
		return nil, errors.NewSystemError("error while reading adapter rows", err)
	}

	return &chassis, nil
}

// UpsertBinding은 디바이스의 어댑터 포트 바인딩을 기록합니다
func (r *MySQLRepository) UpsertBinding(ctx context.Context, host string, id entities.DeviceID, ap entities.AdapterPort, adminStateUp bool) error {
	defer observe("upsert_binding", time.Now())

	port, err := strconv.Atoi(ap.Port)
	if err != nil {
		return errors.NewSystemError(fmt.Sprintf("invalid port %q for adapter %s", ap.Port, ap.AdapterID), err)
	}

	query := `
		INSERT INTO dpm_port_wiring (host, mac, adapter_id, port_index, admin_state_up)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			adapter_id = VALUES(adapter_id),
			port_index = VALUES(port_index),
			admin_state_up = VALUES(admin_state_up)
	`

	if _, err := r.db.ExecContext(ctx, query, host, id.String(), ap.AdapterID, port, boolToInt(adminStateUp)); err != nil {
		return errors.NewSystemError("failed to upsert port binding", err)
	}

	r.logger.WithFields(logrus.Fields{
		"host":    host,
		"device":  id,
		"adapter": ap.AdapterID,
		"port":    port,
	}).Debug("Port binding recorded")

	return nil
}

// DeleteBinding은 디바이스의 바인딩 기록을 삭제합니다. 없어도 에러가 아닙니다.
func (r *MySQLRepository) DeleteBinding(ctx context.Context, host string, id entities.DeviceID) error {
	defer observe("delete_binding", time.Now())

	if _, err := r.db.ExecContext(ctx, `DELETE FROM dpm_port_wiring WHERE host = ? AND mac = ?`, host, id.String()); err != nil {
		return errors.NewSystemError("failed to delete port binding", err)
	}
	return nil
}

// SetAdminState는 바인딩의 관리 상태를 갱신합니다
func (r *MySQLRepository) SetAdminState(ctx context.Context, host string, id entities.DeviceID, up bool) error {
	defer observe("set_admin_state", time.Now())

	query := `UPDATE dpm_port_wiring SET admin_state_up = ? WHERE host = ? AND mac = ?`
	if _, err := r.db.ExecContext(ctx, query, boolToInt(up), host, id.String()); err != nil {
		return errors.NewSystemError("failed to update admin state", err)
	}
	return nil
}

// SetProtected는 디바이스들의 스푸핑 방지 상태를 기록합니다
func (r *MySQLRepository) SetProtected(ctx context.Context, host string, ids []entities.DeviceID, protected bool) error {
	if len(ids) == 0 {
		return nil
	}
	defer observe("set_protected", time.Now())

	if protected {
		query := `
			INSERT INTO dpm_port_wiring (host, mac, protected)
			VALUES (?, ?, 1)
			ON DUPLICATE KEY UPDATE protected = 1
		`
		for _, id := range ids {
			if _, err := r.db.ExecContext(ctx, query, host, id.String()); err != nil {
				return errors.NewSystemError(fmt.Sprintf("failed to protect device %s", id), err)
			}
		}
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, host)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id.String())
	}
	query := fmt.Sprintf(`UPDATE dpm_port_wiring SET protected = 0 WHERE host = ? AND mac IN (%s)`, strings.Join(placeholders, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return errors.NewSystemError("failed to remove device protection", err)
	}
	return nil
}

// ListProtected는 host에서 스푸핑 방지가 설정된 디바이스 목록을 조회합니다
func (r *MySQLRepository) ListProtected(ctx context.Context, host string) ([]entities.DeviceID, error) {
	defer observe("list_protected", time.Now())

	rows, err := r.db.QueryContext(ctx,
		`SELECT mac FROM dpm_port_wiring WHERE host = ? AND protected = 1 ORDER BY mac`, host)
	if err != nil {
		return nil, errors.NewSystemError("failed to query protected devices", err)
	}
	defer rows.Close()

	var ids []entities.DeviceID
	for rows.Next() {
		var mac string
		if err := rows.Scan(&mac); err != nil {
			r.logger.WithError(err).Error("Failed to scan protection row")
			continue
		}
		ids = append(ids, entities.DeviceID(mac))
	}

	if err = rows.Err(); err != nil {
		return nil, errors.NewSystemError("error while reading protection rows", err)
	}

	return ids, nil
}

func observe(queryType string, start time.Time) {
	metrics.RecordDBQuery(queryType, time.Since(start).Seconds())
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
