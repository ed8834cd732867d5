package relation

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/database"
)

// fakeDB stubs ExecContext; anything else the repository would call panics,
// which is what we want in a unit test.
type fakeDB struct {
	database.DB
	execResult sql.Result
	execErr    error
}

func (f *fakeDB) ExecContext(_ context.Context, _ string, _ ...any) (sql.Result, error) {
	return f.execResult, f.execErr
}

type fakeResult struct {
	rows    int64
	rowsErr error
}

func (f fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (f fakeResult) RowsAffected() (int64, error) { return f.rows, f.rowsErr }

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestDeleteByEntity_ReturnsDeletedCount(t *testing.T) {
	repo := NewRepository(&fakeDB{execResult: fakeResult{rows: 3}}, testLogger())

	rows, err := repo.DeleteByEntity(context.Background(), "scope-1", "e1")

	require.NoError(t, err)
	assert.Equal(t, int64(3), rows)
}

func TestDeleteByEntity_ExecErrorFails(t *testing.T) {
	repo := NewRepository(&fakeDB{execErr: errors.New("connection reset")}, testLogger())

	rows, err := repo.DeleteByEntity(context.Background(), "scope-1", "e1")

	require.Error(t, err)
	assert.Equal(t, int64(0), rows)
	assert.Equal(t, http.StatusInternalServerError, httperror.GetStatusCode(err))
}

func TestDeleteByEntity_RowCountErrorIsNotSuccess(t *testing.T) {
	repo := NewRepository(&fakeDB{
		execResult: fakeResult{rowsErr: errors.New("driver does not report rows")},
	}, testLogger())

	rows, err := repo.DeleteByEntity(context.Background(), "scope-1", "e1")

	require.Error(t, err)
	assert.Equal(t, int64(0), rows)
	assert.Equal(t, http.StatusInternalServerError, httperror.GetStatusCode(err))
}
