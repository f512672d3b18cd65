package attendance

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/vallesolidario/huellero/internal/domain/models"
	"github.com/vallesolidario/huellero/pkg/clients/notify"
)

type mockSheets struct {
	mock.Mock
}

func (m *mockSheets) ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	args := m.Called(ctx, sheetRange)
	rows, _ := args.Get(0).([][]interface{})
	return rows, args.Error(1)
}

func (m *mockSheets) AppendRows(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	return m.Called(ctx, sheetRange, rows).Error(0)
}

func (m *mockSheets) ClearRange(ctx context.Context, sheetRange string) error {
	return m.Called(ctx, sheetRange).Error(0)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveRun(ctx context.Context, report models.RunReport) error {
	return m.Called(ctx, report).Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, id string) (*models.RunReport, error) {
	args := m.Called(ctx, id)
	report, _ := args.Get(0).(*models.RunReport)
	return report, args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, msg notify.Message) error {
	return m.Called(ctx, msg).Error(0)
}
