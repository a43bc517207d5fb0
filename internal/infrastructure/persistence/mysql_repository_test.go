package persistence

import (
	"context"
	"errors"
	"testing"

	"dpm-agent/internal/domain/entities"
	domainErrors "dpm-agent/internal/domain/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) (*MySQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	return NewMySQLRepository(db, logger), mock
}

func TestMySQLRepository_ListDeviceIDs(t *testing.T) {
	ctx := context.Background()

	t.Run("정상 조회 및 MAC 정규화", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectQuery("SELECT mac_address\\s+FROM dpm_port").
			WithArgs("compute-1").
			WillReturnRows(sqlmock.NewRows([]string{"mac_address"}).
				AddRow("FA:16:3E:00:00:0A").
				AddRow("not-a-mac").
				AddRow("fa-16-3e-00-00-0b"))

		ids, err := repo.ListDeviceIDs(ctx, "compute-1")
		require.NoError(t, err)
		assert.Equal(t, []entities.DeviceID{"fa:16:3e:00:00:0a", "fa:16:3e:00:00:0b"}, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("쿼리 실패", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectQuery("SELECT mac_address").WillReturnError(errors.New("connection refused"))

		_, err := repo.ListDeviceIDs(ctx, "compute-1")
		require.Error(t, err)
		assert.True(t, domainErrors.IsSystemError(err))
	})
}

func TestMySQLRepository_GetDevice(t *testing.T) {
	ctx := context.Background()
	id := entities.DeviceID("fa:16:3e:00:00:0a")
	columns := []string{"port_id", "network_id", "physical_network", "segmentation_type", "device_owner", "admin_state_up"}

	t.Run("디바이스 조회", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectQuery("FROM dpm_port").
			WithArgs("compute-1", "fa:16:3e:00:00:0a").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("port-1", "net-1", "physnet1", "flat", "compute:nova", 1))

		device, err := repo.GetDevice(ctx, "compute-1", id)
		require.NoError(t, err)
		assert.Equal(t, "port-1", device.PortID)
		assert.Equal(t, "physnet1", device.PhysicalNetwork)
		assert.True(t, device.AdminStateUp)
		assert.True(t, device.IsFlat())
	})

	t.Run("물리 네트워크가 없는 세그먼트", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectQuery("FROM dpm_port").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("port-1", "net-1", nil, "vxlan", nil, 0))

		device, err := repo.GetDevice(ctx, "compute-1", id)
		require.NoError(t, err)
		assert.Empty(t, device.PhysicalNetwork)
		assert.False(t, device.AdminStateUp)
	})

	t.Run("존재하지 않는 디바이스", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectQuery("FROM dpm_port").WillReturnRows(sqlmock.NewRows(columns))

		_, err := repo.GetDevice(ctx, "compute-1", id)
		require.Error(t, err)
		assert.True(t, domainErrors.IsNotFoundError(err))
	})
}

func TestMySQLRepository_FindChassis(t *testing.T) {
	ctx := context.Background()

	t.Run("CPC와 어댑터 조회", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectQuery("FROM dpm_cpc").
			WithArgs("cpc-1").
			WillReturnRows(sqlmock.NewRows([]string{"object_id", "name", "dpm_enabled"}).
				AddRow("cpc-oid-1", "cpc-1", 1))
		mock.ExpectQuery("FROM dpm_adapter").
			WithArgs("cpc-oid-1").
			WillReturnRows(sqlmock.NewRows([]string{"object_id", "name", "cpc_id", "port_count"}).
				AddRow("6A3A8C52-7A6C-11E6-A52B-0A0027000001", "OSA 1", "cpc-oid-1", 2))

		chassis, err := repo.FindChassis(ctx, "cpc-1")
		require.NoError(t, err)
		assert.True(t, chassis.DPMEnabled)

		adapter, ok := chassis.Adapter("6a3a8c52-7a6c-11e6-a52b-0a0027000001")
		require.True(t, ok)
		assert.Equal(t, 2, adapter.PortCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("존재하지 않는 CPC", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectQuery("FROM dpm_cpc").WillReturnRows(sqlmock.NewRows([]string{"object_id", "name", "dpm_enabled"}))

		_, err := repo.FindChassis(ctx, "missing")
		require.Error(t, err)
		assert.True(t, domainErrors.IsNotFoundError(err))
	})
}

func TestMySQLRepository_Wiring(t *testing.T) {
	ctx := context.Background()
	id := entities.DeviceID("fa:16:3e:00:00:0a")

	t.Run("바인딩 upsert", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectExec("INSERT INTO dpm_port_wiring \\(host, mac, adapter_id").
			WithArgs("compute-1", "fa:16:3e:00:00:0a", "6a3a8c52-7a6c-11e6-a52b-0a0027000001", int64(1), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpsertBinding(ctx, "compute-1", id, entities.AdapterPort{AdapterID: "6a3a8c52-7a6c-11e6-a52b-0a0027000001", Port: "1"}, true)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("잘못된 포트 문자열", func(t *testing.T) {
		repo, _ := newTestRepository(t)
		err := repo.UpsertBinding(ctx, "compute-1", id, entities.AdapterPort{AdapterID: "a", Port: "x"}, true)
		assert.Error(t, err)
	})

	t.Run("보호 설정과 해제", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectExec("INSERT INTO dpm_port_wiring \\(host, mac, protected\\)").
			WithArgs("compute-1", "fa:16:3e:00:00:0a").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE dpm_port_wiring SET protected = 0 WHERE host = \\? AND mac IN \\(\\?, \\?\\)").
			WithArgs("compute-1", "fa:16:3e:00:00:0a", "fa:16:3e:00:00:0b").
			WillReturnResult(sqlmock.NewResult(0, 2))

		require.NoError(t, repo.SetProtected(ctx, "compute-1", []entities.DeviceID{id}, true))
		require.NoError(t, repo.SetProtected(ctx, "compute-1", []entities.DeviceID{id, "fa:16:3e:00:00:0b"}, false))
		require.NoError(t, repo.SetProtected(ctx, "compute-1", nil, false))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("보호 목록은 호스트 단위로 조회", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectQuery("SELECT mac FROM dpm_port_wiring WHERE host = \\? AND protected = 1").
			WithArgs("compute-1").
			WillReturnRows(sqlmock.NewRows([]string{"mac"}).AddRow("fa:16:3e:00:00:0a"))

		ids, err := repo.ListProtected(ctx, "compute-1")
		require.NoError(t, err)
		assert.Equal(t, []entities.DeviceID{id}, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("다른 호스트의 보호 목록은 섞이지 않음", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectQuery("SELECT mac FROM dpm_port_wiring WHERE host = \\?").
			WithArgs("compute-2").
			WillReturnRows(sqlmock.NewRows([]string{"mac"}))

		ids, err := repo.ListProtected(ctx, "compute-2")
		require.NoError(t, err)
		assert.Empty(t, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("관리 상태 갱신과 바인딩 삭제는 호스트 단위", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectExec("UPDATE dpm_port_wiring SET admin_state_up = \\? WHERE host = \\? AND mac = \\?").
			WithArgs(int64(0), "compute-1", "fa:16:3e:00:00:0a").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM dpm_port_wiring WHERE host = \\? AND mac = \\?").
			WithArgs("compute-1", "fa:16:3e:00:00:0a").
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, repo.SetAdminState(ctx, "compute-1", id, false))
		require.NoError(t, repo.DeleteBinding(ctx, "compute-1", id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("스키마는 (host, mac) 기본 키", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS dpm_port_wiring (?s).*PRIMARY KEY \\(host, mac\\)").
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, repo.EnsureSchema(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
