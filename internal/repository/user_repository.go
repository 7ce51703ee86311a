package repository

import (
	"strings"

	"github.com/yukikurage/task-tracker-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(user *models.User) (*models.User, error) {
	if err := r.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Update writes the mutable profile fields of an existing user
func (r *GormUserRepository) Update(user *models.User) (*models.User, error) {
	existing, err := r.FindByID(user.ID)
	if err != nil {
		return nil, err
	}

	if err := r.db.Model(existing).Updates(map[string]interface{}{
		"name":  user.Name,
		"email": user.Email,
		"role":  user.Role,
	}).Error; err != nil {
		return nil, err
	}
	return r.FindByID(user.ID)
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns users filtered by role and by a case-insensitive search term
func (r *GormUserRepository) List(role *models.Role, search string) ([]models.User, error) {
	users := []models.User{}
	query := r.db.Model(&models.User{})

	if role != nil {
		query = query.Where("role = ?", *role)
	}
	if term := strings.TrimSpace(search); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}

	if err := query.Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
