package services_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"taskboard/internal/models"
	"taskboard/internal/repositories"
	"taskboard/internal/services"

	"github.com/dgrijalva/jwt-go"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

// TestMain is used to setup test environment
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestAuthService_RegisterUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret)
	ctx := context.Background()

	// Test successful registration; email is normalized before lookup
	user := &models.User{Name: "Test User", Email: "  Test@Example.COM ", Password: "password123"}
	mockRepo.On("GetByEmail", ctx, "test@example.com", false).Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "test@example.com" &&
			bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("password123")) == nil
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.User).ID = "user-123"
	}).Return(nil).Once()

	token, err := authService.RegisterUser(ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Empty(t, user.Password)
	assert.Equal(t, "test@example.com", user.Email)
	mockRepo.AssertExpectations(t)

	// Test email already registered
	mockRepo.On("GetByEmail", ctx, "test@example.com", false).Return(&models.User{ID: "1"}, nil).Once()
	_, err = authService.RegisterUser(ctx, &models.User{Name: "Again", Email: "TEST@example.com", Password: "password123"})
	assert.ErrorIs(t, err, services.ErrEmailTaken)
	mockRepo.AssertExpectations(t)

	// Test unique index race
	mockRepo.On("GetByEmail", ctx, "race@example.com", false).Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(repositories.ErrDuplicateEmail).Once()
	_, err = authService.RegisterUser(ctx, &models.User{Name: "Race", Email: "race@example.com", Password: "password123"})
	assert.ErrorIs(t, err, services.ErrEmailTaken)

	// Test store failure
	mockRepo.On("GetByEmail", ctx, "down@example.com", false).Return(nil, errors.New("connection refused")).Once()
	_, err = authService.RegisterUser(ctx, &models.User{Name: "Down", Email: "down@example.com", Password: "password123"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrEmailTaken)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_LoginUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret)
	ctx := context.Background()

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	stored := func() *models.User {
		return &models.User{ID: "user-123", Name: "Test User", Email: "test@example.com", Password: string(hashedPassword)}
	}

	// Test successful login
	mockRepo.On("GetByEmail", ctx, "test@example.com", true).Return(stored(), nil).Once()
	user, token, err := authService.LoginUser(ctx, "Test@Example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "user-123", user.ID)
	assert.Empty(t, user.Password)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "user-123", claims["user_id"])
	ttl := int64(claims["exp"].(float64) - claims["iat"].(float64))
	assert.Equal(t, int64(services.TokenTTL/time.Second), ttl)
	mockRepo.AssertExpectations(t)

	// Test invalid credentials (wrong password)
	mockRepo.On("GetByEmail", ctx, "test@example.com", true).Return(stored(), nil).Once()
	_, _, err = authService.LoginUser(ctx, "test@example.com", "wrongpassword")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	// Test invalid credentials (user not found) reports the same error
	mockRepo.On("GetByEmail", ctx, "ghost@example.com", true).Return(nil, repositories.ErrNotFound).Once()
	_, _, err = authService.LoginUser(ctx, "ghost@example.com", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken(t *testing.T) {
	authService := services.NewAuthService(new(MockUserRepository), testJWTSecret)

	validTokenString, err := authService.GenerateToken("user-123")
	require.NoError(t, err)

	claims, err := authService.ValidateToken(validTokenString)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims["user_id"])

	_, err = authService.ValidateToken("invalid.token.string")
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	// Wrong secret
	other := services.NewAuthService(new(MockUserRepository), "another_secret")
	foreign, _ := other.GenerateToken("user-123")
	_, err = authService.ValidateToken(foreign)
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	// Expired token
	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-123",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(expiredTokenString)
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	// Token without expiry
	eternal := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "user-123"})
	eternalString, _ := eternal.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(eternalString)
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	// Unsigned token
	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": "user-123",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	noneString, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	_, err = authService.ValidateToken(noneString)
	assert.ErrorIs(t, err, services.ErrInvalidToken)
}

func TestAuthService_Authenticate(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret)
	ctx := context.Background()

	token, err := authService.GenerateToken("user-123")
	require.NoError(t, err)

	mockRepo.On("GetByID", ctx, "user-123").Return(&models.User{ID: "user-123", Name: "Test User"}, nil).Once()
	user, err := authService.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "Test User", user.Name)

	// Subject deleted after the token was issued
	mockRepo.On("GetByID", ctx, "user-123").Return(nil, repositories.ErrNotFound).Once()
	_, err = authService.Authenticate(ctx, token)
	assert.ErrorIs(t, err, services.ErrUserNotFound)

	// Invalid tokens never reach the store
	_, err = authService.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, services.ErrInvalidToken)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNumberOfCalls(t, "GetByID", 2)
}
