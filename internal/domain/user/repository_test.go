package user

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "email", "display_name", "role", "is_banned", "created_at", "updated_at"}

func TestResolveByEmailNormalizes(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	repo := NewRepository(sqlx.NewDb(raw, "postgres"))

	id := uuid.New()
	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("ada@school.test").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(id.String(), "ada@school.test", "Ada", "student", false, time.Now(), time.Now()))

	u, err := repo.Resolve(context.Background(), "  Ada@School.test ")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, RoleStudent, u.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveByIDMissing(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	repo := NewRepository(sqlx.NewDb(raw, "postgres"))

	id := uuid.New()
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userColumns))

	u, err := repo.Resolve(context.Background(), id.String())
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.NoError(t, mock.ExpectationsWereMet())
}
