package services

import (
	"context"
	"testing"

	"pixvault/config"
	"pixvault/models"
	"pixvault/utils"

	"gorm.io/gorm"
)

type fakeUserRepo struct {
	usersByID   map[uint]models.User
	usersByName map[string]models.User
	nextID      uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		usersByID:   map[uint]models.User{},
		usersByName: map[string]models.User{},
		nextID:      1,
	}
}

func (r *fakeUserRepo) CountByUsername(_ context.Context, username string) (int64, error) {
	if _, ok := r.usersByName[username]; ok {
		return 1, nil
	}
	return 0, nil
}

func (r *fakeUserRepo) Create(_ context.Context, _ *gorm.DB, user *models.User) error {
	if user.ID == 0 {
		user.ID = r.nextID
		r.nextID++
	}
	r.usersByID[user.ID] = *user
	r.usersByName[user.Username] = *user
	return nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, _ *gorm.DB, username string) (models.User, error) {
	user, ok := r.usersByName[username]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, _ *gorm.DB, userID uint) (models.User, error) {
	user, ok := r.usersByID[userID]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func setupAuthConfig() {
	setupTestConfig()
	config.AppConfig.JWT = config.JWTConfig{Secret: "test-secret", ExpireHours: 1}
}

func TestAuthRegisterAndLogin(t *testing.T) {
	setupAuthConfig()
	users := newFakeUserRepo()
	svc := NewAuthService(users)

	created, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Password: "secret123",
		Nickname: "Alice",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if created.ID == 0 || created.Username != "alice" {
		t.Fatalf("unexpected registered user: %+v", created)
	}

	stored := users.usersByName["alice"]
	if stored.Password == "secret123" {
		t.Fatalf("password must be stored hashed")
	}
	if !utils.CheckPassword("secret123", stored.Password) {
		t.Fatalf("stored hash must verify against the original password")
	}

	out, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if out.Token == "" || out.User.ID != created.ID {
		t.Fatalf("unexpected login output: %+v", out)
	}

	claims, err := utils.ParseToken(out.Token)
	if err != nil {
		t.Fatalf("issued token must parse: %v", err)
	}
	if claims.UserID != created.ID {
		t.Fatalf("token must carry the user id, got %d", claims.UserID)
	}
}

func TestAuthRegisterDuplicateUsername(t *testing.T) {
	setupAuthConfig()
	users := newFakeUserRepo()
	users.usersByName["alice"] = models.User{ID: 1, Username: "alice"}
	svc := NewAuthService(users)

	_, err := svc.Register(context.Background(), RegisterInput{Username: "alice", Password: "secret123"})
	appErr, ok := err.(*AppError)
	if !ok || appErr.HTTPCode != 400 {
		t.Fatalf("expected 400 for duplicate username, got %v", err)
	}
}

func TestAuthLoginRejectsBadCredentials(t *testing.T) {
	setupAuthConfig()
	users := newFakeUserRepo()
	svc := NewAuthService(users)

	if _, err := svc.Register(context.Background(), RegisterInput{Username: "bob", Password: "secret123"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, err := svc.Login(context.Background(), LoginInput{Username: "bob", Password: "wrong"})
	appErr, ok := err.(*AppError)
	if !ok || appErr.HTTPCode != 401 {
		t.Fatalf("expected 401 for wrong password, got %v", err)
	}

	_, err = svc.Login(context.Background(), LoginInput{Username: "nobody", Password: "secret123"})
	appErr, ok = err.(*AppError)
	if !ok || appErr.HTTPCode != 401 {
		t.Fatalf("unknown usernames must look like bad credentials, got %v", err)
	}
}

func TestAuthGetProfile(t *testing.T) {
	setupAuthConfig()
	users := newFakeUserRepo()
	svc := NewAuthService(users)

	created, err := svc.Register(context.Background(), RegisterInput{Username: "carol", Password: "secret123", Nickname: "C"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	profile, err := svc.GetProfile(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Username != "carol" || profile.Nickname != "C" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	_, err = svc.GetProfile(context.Background(), 999)
	appErr, ok := err.(*AppError)
	if !ok || appErr.HTTPCode != 404 {
		t.Fatalf("expected 404 for unknown user, got %v", err)
	}
}
