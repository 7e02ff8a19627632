// Package seed populates the database with roster configuration and sample
// data for development environments.
package seed

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"partrack/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seeder seeds the database with test data.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new database seeder.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// ClearAll removes all seeded data in FK-safe order. The job counter is left
// alone so identifiers stay unique across reseeds.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	tables := []interface{}{
		&models.AuditLog{},
		&models.ApprovalStep{},
		&models.Request{},
		&models.ApproverDelegate{},
		&models.Approver{},
		&models.DropdownOption{},
		&models.DropdownCategory{},
		&models.User{},
	}
	for _, table := range tables {
		if err := s.db.Where("1 = 1").Delete(table).Error; err != nil {
			return fmt.Errorf("clear %T: %w", table, err)
		}
	}
	return nil
}

// rosterFile is the YAML shape of an approver roster configuration file.
type rosterFile struct {
	Approvers []struct {
		Name      string   `yaml:"name"`
		Title     string   `yaml:"title"`
		Email     string   `yaml:"email"`
		Delegates []string `yaml:"delegates"`
	} `yaml:"approvers"`
}

// defaultRoster is used when no roster file is provided.
var defaultRoster = rosterFile{
	Approvers: []struct {
		Name      string   `yaml:"name"`
		Title     string   `yaml:"title"`
		Email     string   `yaml:"email"`
		Delegates []string `yaml:"delegates"`
	}{
		{Name: "Dana Whitfield", Title: "Department Head", Delegates: []string{"Morgan Reyes"}},
		{Name: "Chris Okafor", Title: "HR Director"},
		{Name: "Priya Nair", Title: "Finance Director", Delegates: []string{"Sam Delgado"}},
		{Name: "Alex Tran", Title: "Executive Director"},
	},
}

// SeedRoster loads the approval chain from a YAML file, or the built-in
// default roster when path is empty. Existing approvers with the same name
// are updated in place.
func (s *Seeder) SeedRoster(path string) error {
	roster := defaultRoster
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read roster file: %w", err)
		}
		roster = rosterFile{}
		if err := yaml.Unmarshal(data, &roster); err != nil {
			return fmt.Errorf("parse roster file: %w", err)
		}
	}

	log.Printf("Seeding %d approvers...", len(roster.Approvers))
	for i, entry := range roster.Approvers {
		approver := models.Approver{
			Name:      entry.Name,
			Title:     entry.Title,
			SortOrder: i + 1,
			IsActive:  true,
		}
		if entry.Email != "" {
			email := entry.Email
			approver.Email = &email
		}

		var existing models.Approver
		err := s.db.Where("name = ?", entry.Name).First(&existing).Error
		switch {
		case err == nil:
			approver.ID = existing.ID
			if err := s.db.Save(&approver).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := s.db.Create(&approver).Error; err != nil {
				return err
			}
		default:
			return err
		}

		for _, delegateName := range entry.Delegates {
			delegate := models.ApproverDelegate{
				ApproverID:   approver.ID,
				DelegateName: delegateName,
				IsActive:     true,
			}
			var count int64
			s.db.Model(&models.ApproverDelegate{}).
				Where("approver_id = ? AND delegate_name = ?", approver.ID, delegateName).
				Count(&count)
			if count == 0 {
				if err := s.db.Create(&delegate).Error; err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// catalog defines the dropdown categories with their default options.
var catalog = map[string]struct {
	Name    string
	Options []string
}{
	models.DropdownCategoryPosition: {
		Name:    "Position",
		Options: []string{"Teacher", "Teaching Assistant", "Counselor", "Custodian", "Office Manager", "IT Specialist"},
	},
	models.DropdownCategoryLocation: {
		Name:    "Location",
		Options: []string{"North Campus", "South Campus", "District Office", "Early Learning Center"},
	},
	models.DropdownCategoryFundLine: {
		Name:    "Fund Line",
		Options: []string{"General Fund", "Title I", "Special Education", "Grant - STEM"},
	},
}

// SeedCatalog creates the dropdown categories and their default options.
// Categories upsert by slug so reseeding is safe.
func (s *Seeder) SeedCatalog() error {
	log.Println("Seeding dropdown catalog...")
	for slug, def := range catalog {
		category := models.DropdownCategory{Slug: slug, Name: def.Name}
		if err := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).Create(&category).Error; err != nil {
			return err
		}
		// The upsert path may leave a hook-generated ID that does not match
		// the stored row, so always resolve the category by slug.
		if err := s.db.Where("slug = ?", slug).First(&category).Error; err != nil {
			return err
		}

		for i, label := range def.Options {
			var count int64
			s.db.Model(&models.DropdownOption{}).
				Where("category_id = ? AND label = ?", category.ID, label).
				Count(&count)
			if count > 0 {
				continue
			}
			option := models.DropdownOption{
				CategoryID: category.ID,
				Label:      label,
				SortOrder:  i + 1,
				IsActive:   true,
			}
			if err := s.db.Create(&option).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// SeedUsers creates an admin account plus n regular users. All accounts use
// the password "password123".
func (s *Seeder) SeedUsers(n int) ([]models.User, error) {
	log.Printf("Seeding %d users...", n+1)
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, n+1)
	admin := models.User{
		Email:       "admin@partrack.local",
		DisplayName: "Site Admin",
		Password:    string(hash),
		IsAdmin:     true,
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return nil, err
	}
	users = append(users, admin)

	for i := 0; i < n; i++ {
		user := models.User{
			Email:       gofakeit.Email(),
			DisplayName: gofakeit.Name(),
			Password:    string(hash),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}
