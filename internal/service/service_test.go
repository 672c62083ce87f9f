package service

import (
	"context"
	"testing"
	"time"

	"example.com/medipi/hub/internal/models"
	"example.com/medipi/hub/internal/repository"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testUser(password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &models.User{
		Email:        "nurse@example.com",
		Name:         "Nina",
		PasswordHash: string(hash),
		Role:         models.RoleStaff,
		Active:       true,
	}
	user.ID = "user-1"
	return user
}

func TestLoginIssuesSessionToken(t *testing.T) {
	repo := new(MockRepository)
	cacheMock := new(MockCache)
	svc := newTestService(repo, cacheMock)

	repo.On("FindUserByEmail", mock.Anything, "nurse@example.com").Return(testUser("secret"), nil)

	token, user, err := svc.Login(context.Background(), "nurse@example.com", "secret")

	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, "user-1", user.ID)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	repo.On("FindUserByEmail", mock.Anything, "nurse@example.com").Return(testUser("secret"), nil)

	_, _, err := svc.Login(context.Background(), "nurse@example.com", "wrong")

	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	repo.On("FindUserByEmail", mock.Anything, "ghost@example.com").Return(nil, repository.ErrNotFound)

	_, _, err := svc.Login(context.Background(), "ghost@example.com", "whatever")

	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	user := testUser("secret")
	user.Active = false
	repo.On("FindUserByEmail", mock.Anything, "nurse@example.com").Return(user, nil)

	_, _, err := svc.Login(context.Background(), "nurse@example.com", "secret")

	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidateSessionLoadsUser(t *testing.T) {
	repo := new(MockRepository)
	cacheMock := new(MockCache)

	cacheMock.On("Get", mock.Anything, "session:token-1").Return("user-1", nil)
	repo.On("FindUserByID", mock.Anything, "user-1").Return(testUser("secret"), nil)

	svc := &service{
		repo:       repo,
		cache:      cacheMock,
		log:        testLogger(),
		sessionTTL: time.Hour,
	}

	user, err := svc.ValidateSession(context.Background(), "token-1")

	require.NoError(t, err)
	require.Equal(t, "user-1", user.ID)
}

func TestValidateSessionRejectsEmptyToken(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockCache))

	_, err := svc.ValidateSession(context.Background(), "")

	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestDeletePatientBlockedByDispenser(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	patient := &models.Patient{Name: "Rosa Nilsson", Dispenser: testDispenser("patient-1")}
	patient.ID = "patient-1"

	repo.On("FindPatientByID", mock.Anything, "patient-1").Return(patient, nil)

	err := svc.DeletePatient(context.Background(), "patient-1")

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, 400, svcErr.StatusCode)
	repo.AssertNotCalled(t, "DeletePatient", mock.Anything, mock.Anything)
}

func TestDeletePatientBlockedBySchedules(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	patient := &models.Patient{Name: "Rosa Nilsson"}
	patient.ID = "patient-1"

	repo.On("FindPatientByID", mock.Anything, "patient-1").Return(patient, nil)
	repo.On("CountSchedulesByPatient", mock.Anything, "patient-1").Return(int64(2), nil)

	err := svc.DeletePatient(context.Background(), "patient-1")

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, 400, svcErr.StatusCode)
}

func TestDeletePatientSucceedsWhenUnreferenced(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCache))

	patient := &models.Patient{Name: "Rosa Nilsson"}
	patient.ID = "patient-1"

	repo.On("FindPatientByID", mock.Anything, "patient-1").Return(patient, nil)
	repo.On("CountSchedulesByPatient", mock.Anything, "patient-1").Return(int64(0), nil)
	repo.On("DeletePatient", mock.Anything, "patient-1").Return(nil)

	err := svc.DeletePatient(context.Background(), "patient-1")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCreatePatientRequiresNameAndBirthDate(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockCache))

	err := svc.CreatePatient(context.Background(), &models.Patient{Name: "Rosa Nilsson"})

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, 400, svcErr.StatusCode)
}
