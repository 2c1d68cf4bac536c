package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-analytics-api/internal/models"
	appErrors "github.com/noah-isme/sma-analytics-api/pkg/errors"
)

type fakeScopeRepo struct {
	assignments  map[int64][]int64
	studentClass map[int64]int64
	err          error
}

func (f *fakeScopeRepo) AssignedClassIDs(_ context.Context, teacherID int64) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.assignments[teacherID], nil
}

func (f *fakeScopeRepo) StudentClassID(_ context.Context, studentID int64) (int64, error) {
	classID, ok := f.studentClass[studentID]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return classID, nil
}

func claimsFor(teacherID *int64, roles ...models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{UserID: 1, TeacherID: teacherID, Roles: roles}
}

func TestScopeServiceClassIDs(t *testing.T) {
	repo := &fakeScopeRepo{assignments: map[int64][]int64{7: {1, 2}}}
	svc := NewScopeService(repo, zap.NewNop())
	ctx := context.Background()

	ids, err := svc.ClassIDs(ctx, claimsFor(nil, models.RoleAdminTeacher))
	require.NoError(t, err)
	assert.Nil(t, ids)

	ids, err = svc.ClassIDs(ctx, claimsFor(ptrInt64(7), models.RoleTeacher))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	ids, err = svc.ClassIDs(ctx, claimsFor(nil, models.RoleTeacher))
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)

	ids, err = svc.ClassIDs(ctx, claimsFor(ptrInt64(8), models.RoleClassTeacher))
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)

	_, err = svc.ClassIDs(ctx, nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestScopeServiceAuthorizeClass(t *testing.T) {
	repo := &fakeScopeRepo{assignments: map[int64][]int64{7: {1}}}
	svc := NewScopeService(repo, zap.NewNop())
	ctx := context.Background()

	assert.NoError(t, svc.AuthorizeClass(ctx, claimsFor(ptrInt64(7), models.RoleTeacher), 1))
	assert.ErrorIs(t, svc.AuthorizeClass(ctx, claimsFor(ptrInt64(7), models.RoleTeacher), 2), appErrors.ErrForbidden)
	assert.NoError(t, svc.AuthorizeClass(ctx, claimsFor(nil, models.RoleAdminTeacher), 2))

	repo.err = assert.AnError
	err := svc.AuthorizeClass(ctx, claimsFor(ptrInt64(7), models.RoleTeacher), 1)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestScopeServiceAuthorizeStudent(t *testing.T) {
	repo := &fakeScopeRepo{
		assignments:  map[int64][]int64{7: {1}},
		studentClass: map[int64]int64{10: 1, 11: 2},
	}
	svc := NewScopeService(repo, zap.NewNop())
	ctx := context.Background()
	teacher := claimsFor(ptrInt64(7), models.RoleTeacher)

	assert.NoError(t, svc.AuthorizeStudent(ctx, teacher, 10))
	assert.ErrorIs(t, svc.AuthorizeStudent(ctx, teacher, 11), appErrors.ErrForbidden)
	assert.ErrorIs(t, svc.AuthorizeStudent(ctx, teacher, 99), appErrors.ErrNotFound)
	assert.NoError(t, svc.AuthorizeStudent(ctx, claimsFor(nil, models.RoleAdminTeacher), 99))
}
