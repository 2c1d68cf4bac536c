package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-analytics-api/internal/models"
	appErrors "github.com/noah-isme/sma-analytics-api/pkg/errors"
)

// ScopeRepository resolves which classes a teacher may see.
type ScopeRepository interface {
	AssignedClassIDs(ctx context.Context, teacherID int64) ([]int64, error)
	StudentClassID(ctx context.Context, studentID int64) (int64, error)
}

// ScopeService authorises report requests against the caller's class assignments.
type ScopeService struct {
	repo   ScopeRepository
	logger *zap.Logger
}

// NewScopeService constructs a ScopeService.
func NewScopeService(repo ScopeRepository, logger *zap.Logger) *ScopeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScopeService{repo: repo, logger: logger}
}

// ClassIDs returns the classes visible to the caller. Admin teachers get nil, meaning every class.
func (s *ScopeService) ClassIDs(ctx context.Context, claims *models.JWTClaims) ([]int64, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if claims.IsAdmin() {
		return nil, nil
	}
	if claims.TeacherID == nil {
		return []int64{}, nil
	}
	ids, err := s.repo.AssignedClassIDs(ctx, *claims.TeacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve class scope")
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// AuthorizeClass fails with a forbidden error when classID is outside the caller's scope.
func (s *ScopeService) AuthorizeClass(ctx context.Context, claims *models.JWTClaims, classID int64) error {
	ids, err := s.ClassIDs(ctx, claims)
	if err != nil {
		return err
	}
	if ids == nil {
		return nil
	}
	for _, id := range ids {
		if id == classID {
			return nil
		}
	}
	s.logger.Info("class outside scope", zap.Int64("user_id", claims.UserID), zap.Int64("class_id", classID))
	return appErrors.Clone(appErrors.ErrForbidden, "class is outside your assignments")
}

// AuthorizeStudent resolves the student's class and checks it against the caller's scope.
// Unknown students yield a not found error.
func (s *ScopeService) AuthorizeStudent(ctx context.Context, claims *models.JWTClaims, studentID int64) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.IsAdmin() {
		return nil
	}
	classID, err := s.repo.StudentClassID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %d not found", studentID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student class")
	}
	return s.AuthorizeClass(ctx, claims, classID)
}
