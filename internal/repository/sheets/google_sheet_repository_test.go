package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/vallesolidario/huellero/internal/config"
)

type recordedCall struct {
	method string
	path   string
	body   string
}

func newTestRepository(t *testing.T, response string) (*GoogleSheetRepository, *[]recordedCall) {
	t.Helper()
	var calls []recordedCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, recordedCall{method: r.Method, path: r.URL.Path, body: string(body)})
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	repo, err := NewGoogleSheetRepository(context.Background(),
		config.SheetsConfig{SpreadsheetID: "sheet-id"},
		zap.NewNop(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return repo, &calls
}

func TestReadRange(t *testing.T) {
	repo, calls := newTestRepository(t, `{"range":"Marcaciones!A1:D2","values":[["Code","Name"],["12","ANA"]]}`)

	rows, err := repo.ReadRange(context.Background(), "Marcaciones!A:D")
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "12", rows[1][0])
	require.Len(t, *calls, 1)
	assert.Equal(t, http.MethodGet, (*calls)[0].method)
	assert.True(t, strings.HasPrefix((*calls)[0].path, "/v4/spreadsheets/sheet-id/values/"))
}

func TestAppendRows(t *testing.T) {
	repo, calls := newTestRepository(t, `{}`)

	err := repo.AppendRows(context.Background(), "Reporte!A:N", [][]interface{}{{"12", "ANA", "OK"}})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.True(t, strings.HasSuffix(call.path, ":append"))

	var payload struct {
		Values [][]string `json:"values"`
	}
	require.NoError(t, json.Unmarshal([]byte(call.body), &payload))
	assert.Equal(t, [][]string{{"12", "ANA", "OK"}}, payload.Values)
}

func TestAppendRows_Empty(t *testing.T) {
	repo, calls := newTestRepository(t, `{}`)

	require.NoError(t, repo.AppendRows(context.Background(), "Reporte!A:N", nil))
	assert.Empty(t, *calls)
}

func TestClearRange(t *testing.T) {
	repo, calls := newTestRepository(t, `{}`)

	require.NoError(t, repo.ClearRange(context.Background(), "Reporte!A2:N"))
	require.Len(t, *calls, 1)
	assert.True(t, strings.HasSuffix((*calls)[0].path, ":clear"))
}

func TestEmptyRange(t *testing.T) {
	repo, _ := newTestRepository(t, `{}`)

	_, err := repo.ReadRange(context.Background(), "")
	assert.Error(t, err)
	assert.Error(t, repo.AppendRows(context.Background(), "", [][]interface{}{{"x"}}))
	assert.Error(t, repo.ClearRange(context.Background(), ""))
}
