package wiring

import (
	"context"
	"errors"
	"testing"

	"dpm-agent/internal/domain/entities"
	"dpm-agent/internal/infrastructure/persistence"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDeviceSource struct {
	mock.Mock
}

func (m *MockDeviceSource) ListDeviceIDs(ctx context.Context, host string) ([]entities.DeviceID, error) {
	args := m.Called(ctx, host)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.DeviceID), args.Error(1)
}

func (m *MockDeviceSource) GetDevice(ctx context.Context, host string, id entities.DeviceID) (*entities.Device, error) {
	args := m.Called(ctx, host, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Device), args.Error(1)
}

type MockWiringStore struct {
	mock.Mock
}

func (m *MockWiringStore) UpsertBinding(ctx context.Context, host string, id entities.DeviceID, ap entities.AdapterPort, adminStateUp bool) error {
	return m.Called(ctx, host, id, ap, adminStateUp).Error(0)
}

func (m *MockWiringStore) DeleteBinding(ctx context.Context, host string, id entities.DeviceID) error {
	return m.Called(ctx, host, id).Error(0)
}

func (m *MockWiringStore) SetAdminState(ctx context.Context, host string, id entities.DeviceID, up bool) error {
	return m.Called(ctx, host, id, up).Error(0)
}

func (m *MockWiringStore) SetProtected(ctx context.Context, host string, ids []entities.DeviceID, protected bool) error {
	return m.Called(ctx, host, ids, protected).Error(0)
}

func (m *MockWiringStore) ListProtected(ctx context.Context, host string) ([]entities.DeviceID, error) {
	args := m.Called(ctx, host)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.DeviceID), args.Error(1)
}

const (
	adapter1 = "6a3a8c52-7a6c-11e6-a52b-0a0027000001"
	adapter2 = "6a3a8c52-7a6c-11e6-a52b-0a0027000002"
	devA     = entities.DeviceID("fa:16:3e:00:00:0a")
	devB     = entities.DeviceID("fa:16:3e:00:00:0b")
)

func newGateway() (*DPMGateway, *MockDeviceSource, *MockWiringStore) {
	mapping := entities.NewInterfaceMapping()
	mapping.Add("physnet1", entities.AdapterPort{AdapterID: adapter1, Port: "1"})
	mapping.Add("physnet1", entities.AdapterPort{AdapterID: adapter2, Port: "0"})

	source := new(MockDeviceSource)
	store := new(MockWiringStore)
	return NewDPMGateway(source, store, mapping, "compute-1", logrus.New()), source, store
}

func TestDPMGateway_ListAll(t *testing.T) {
	ctx := context.Background()

	t.Run("호스트의 디바이스 집합 반환", func(t *testing.T) {
		gw, source, _ := newGateway()
		source.On("ListDeviceIDs", ctx, "compute-1").Return([]entities.DeviceID{devA, devB}, nil)

		set, err := gw.ListAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, entities.NewDeviceSet(devA, devB), set)
	})

	t.Run("디바이스가 없으면 빈 집합", func(t *testing.T) {
		gw, source, _ := newGateway()
		source.On("ListDeviceIDs", ctx, "compute-1").Return([]entities.DeviceID(nil), nil)

		set, err := gw.ListAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, set)
		assert.Equal(t, 0, set.Len())
	})

	t.Run("소스 에러 전달", func(t *testing.T) {
		gw, source, _ := newGateway()
		source.On("ListDeviceIDs", ctx, "compute-1").Return(nil, errors.New("db down"))

		_, err := gw.ListAll(ctx)
		assert.Error(t, err)
	})
}

func TestDPMGateway_Attach(t *testing.T) {
	ctx := context.Background()

	t.Run("매핑된 첫 번째 어댑터 포트에 연결", func(t *testing.T) {
		gw, _, store := newGateway()
		store.On("UpsertBinding", ctx, "compute-1", devA, entities.AdapterPort{AdapterID: adapter1, Port: "1"}, true).Return(nil)

		wired, err := gw.Attach(ctx, entities.Device{ID: devA, PhysicalNetwork: "physnet1", AdminStateUp: true})
		require.NoError(t, err)
		assert.True(t, wired)
		store.AssertExpectations(t)
	})

	t.Run("매핑되지 않은 물리 네트워크", func(t *testing.T) {
		gw, _, store := newGateway()

		wired, err := gw.Attach(ctx, entities.Device{ID: devA, PhysicalNetwork: "physnet9"})
		require.NoError(t, err)
		assert.False(t, wired)
		store.AssertNotCalled(t, "UpsertBinding", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("저장 실패", func(t *testing.T) {
		gw, _, store := newGateway()
		store.On("UpsertBinding", ctx, "compute-1", devA, mock.Anything, false).Return(errors.New("deadlock"))

		wired, err := gw.Attach(ctx, entities.Device{ID: devA, PhysicalNetwork: "physnet1"})
		assert.Error(t, err)
		assert.False(t, wired)
	})
}

func TestDPMGateway_Protection(t *testing.T) {
	ctx := context.Background()

	t.Run("참조되지 않는 보호 상태 정리", func(t *testing.T) {
		gw, _, store := newGateway()
		store.On("ListProtected", ctx, "compute-1").Return([]entities.DeviceID{devA, devB}, nil)
		store.On("SetProtected", ctx, "compute-1", []entities.DeviceID{devB}, false).Return(nil)

		err := gw.UnprotectUnreferenced(ctx, entities.NewDeviceSet(devA))
		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("정리할 대상이 없으면 호출하지 않음", func(t *testing.T) {
		gw, _, store := newGateway()
		store.On("ListProtected", ctx, "compute-1").Return([]entities.DeviceID{devA}, nil)

		require.NoError(t, gw.UnprotectUnreferenced(ctx, entities.NewDeviceSet(devA)))
		store.AssertNotCalled(t, "SetProtected", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("보호와 해제 위임", func(t *testing.T) {
		gw, _, store := newGateway()
		store.On("SetProtected", ctx, "compute-1", []entities.DeviceID{devA}, true).Return(nil)
		store.On("SetProtected", ctx, "compute-1", []entities.DeviceID{devA, devB}, false).Return(nil)

		require.NoError(t, gw.Protect(ctx, entities.Device{ID: devA}))
		require.NoError(t, gw.Unprotect(ctx, []entities.DeviceID{devA, devB}))
		store.AssertExpectations(t)
	})
}

func TestDPMGateway_ProtectionIsHostScoped(t *testing.T) {
	ctx := context.Background()

	t.Run("다른 호스트가 보호한 디바이스는 해제하지 않음", func(t *testing.T) {
		db, sqlMock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := persistence.NewMySQLRepository(db, logrus.New())
		mapping := entities.NewInterfaceMapping()
		mapping.Add("physnet1", entities.AdapterPort{AdapterID: adapter1, Port: "1"})
		gw := NewDPMGateway(repo, repo, mapping, "compute-1", logrus.New())

		// compute-2의 fa:16:3e:00:00:bb 행은 host 조건에 의해 조회되지 않습니다
		sqlMock.ExpectQuery("SELECT mac FROM dpm_port_wiring WHERE host = \\? AND protected = 1").
			WithArgs("compute-1").
			WillReturnRows(sqlmock.NewRows([]string{"mac"}).AddRow("fa:16:3e:00:00:aa"))

		err = gw.UnprotectUnreferenced(ctx, entities.NewDeviceSet("fa:16:3e:00:00:aa"))
		require.NoError(t, err)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("언바인딩은 자기 호스트 행만 삭제", func(t *testing.T) {
		gw, _, store := newGateway()
		store.On("DeleteBinding", ctx, "compute-1", devA).Return(nil)

		require.NoError(t, gw.Detach(ctx, devA))
		store.AssertExpectations(t)
	})
}

func TestDPMGateway_DeviceDetails(t *testing.T) {
	ctx := context.Background()
	gw, source, _ := newGateway()
	source.On("GetDevice", ctx, "compute-1", devA).Return(&entities.Device{ID: devA, PhysicalNetwork: "physnet1"}, nil)

	device, err := gw.DeviceDetails(ctx, devA)
	require.NoError(t, err)
	assert.Equal(t, "physnet1", device.PhysicalNetwork)
}
