package services

import (
	"context"
	"errors"
	"strings"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/validation"
	"gorm.io/gorm"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// SignupInput registers a user.
type SignupInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

const minPasswordLen = 8

func (in SignupInput) validate() error {
	v := validation.Violations{}
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.MaxLen("email", in.Email, 255, v)
	validation.MaxLen("name", in.Name, 255, v)
	validation.Required("password", in.Password, v)
	if in.Password != "" && len(in.Password) < minPasswordLen {
		v.Add("password", "too_short")
	}
	return check(v)
}

var roles = []string{models.RoleAdmin, models.RoleStaff, models.RoleViewer}

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Count returns the number of registered users.
func (s *UserService) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

// Register creates a user. The first account of an empty database becomes
// admin; later accounts get role, defaulting to staff.
func (s *UserService) Register(ctx context.Context, in SignupInput, role string) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RoleStaff
	}
	v := validation.Violations{}
	validation.OneOf("role", role, roles, v)
	if err := check(v); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := models.User{
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Name:     strings.TrimSpace(in.Name),
		Password: hash,
		Role:     role,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", u.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return &ConflictError{Code: CodeEmailTaken, Message: "email already registered"}
		}
		if err := tx.Model(&models.User{}).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			u.Role = models.RoleAdmin
		}
		return tx.Create(&u).Error
	})
	if isUniqueViolation(err) {
		return nil, &ConflictError{Code: CodeEmailTaken, Message: "email already registered"}
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Authenticate checks an email/password pair.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

// Exists reports whether a user id is still present; sessions of deleted
// users are dropped with it.
func (s *UserService) Exists(ctx context.Context, id uint) bool {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false
	}
	return n > 0
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := s.db.WithContext(ctx).Order("email").Find(&out).Error
	return out, err
}

// UpdateRole changes a user's role. The last admin cannot be demoted.
func (s *UserService) UpdateRole(ctx context.Context, id uint, role string) (*models.User, error) {
	v := validation.Violations{}
	validation.Required("role", role, v)
	validation.OneOf("role", role, roles, v)
	if err := check(v); err != nil {
		return nil, err
	}
	var out models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, id).Error; err != nil {
			return notFound(err, "user")
		}
		if out.Role == models.RoleAdmin && role != models.RoleAdmin {
			var admins int64
			if err := tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error; err != nil {
				return err
			}
			if admins <= 1 {
				return &ConflictError{Code: CodeLastAdmin, Message: "cannot demote the last admin"}
			}
		}
		out.Role = role
		return tx.Model(&out).Update("role", role).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
