package db

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed seed/catalog.yaml
var catalogYAML []byte

type catalogFile struct {
	Services []struct {
		Name        string          `yaml:"name"`
		Description string          `yaml:"description"`
		DefaultRate decimal.Decimal `yaml:"default_rate"`
	} `yaml:"services"`
}

// SeedOptions describes what Seed creates.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
}

// Seed inserts baseline data: an admin account when the users table is empty
// and credentials are given, and the starter catalog when there are no
// services. Running it twice changes nothing.
func Seed(gdb *gorm.DB, opts SeedOptions) error {
	if err := seedAdmin(gdb, opts); err != nil {
		return err
	}
	return seedCatalog(gdb, catalogYAML)
}

func seedAdmin(gdb *gorm.DB, opts SeedOptions) error {
	email := strings.ToLower(strings.TrimSpace(opts.AdminEmail))
	if email == "" || opts.AdminPassword == "" {
		return nil
	}
	var existing models.User
	err := gdb.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}
	hash, err := auth.HashPassword(opts.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	u := models.User{Email: email, Name: "Administrator", Password: hash, Role: models.RoleAdmin}
	if err := gdb.Create(&u).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}

func seedCatalog(gdb *gorm.DB, raw []byte) error {
	var count int64
	if err := gdb.Model(&models.Service{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count services: %w", err)
	}
	if count > 0 {
		return nil
	}
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	for _, s := range f.Services {
		svc := models.Service{Name: s.Name, Description: s.Description, DefaultRate: s.DefaultRate}
		if err := gdb.Create(&svc).Error; err != nil {
			return fmt.Errorf("seed service %q: %w", s.Name, err)
		}
	}
	return nil
}
