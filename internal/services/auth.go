package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"warranty-tracker/internal/models"
)

const minPasswordLength = 6

// Claims represents JWT claims
type Claims struct {
	UserID    uint   `json:"user_id"`
	AccountID uint   `json:"account_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService handles authentication and user provisioning
type AuthService struct {
	db       *gorm.DB
	secret   []byte
	tokenTTL time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB, secret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	return &AuthService{db: db, secret: []byte(secret), tokenTTL: tokenTTL}
}

// HashPassword hashes a password using bcrypt
func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares hashed password with plain password
func (s *AuthService) CheckPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// GenerateToken generates a JWT token for a user
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    user.ID,
		AccountID: user.AccountID,
		Username:  user.Username,
		Role:      user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "warranty-tracker",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates a JWT token and returns claims
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	// Deactivated or removed logins lose access before their token expires
	var user models.User
	if err := s.db.Select("id", "account_id", "role", "is_active").First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountDisabled
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive || user.AccountID != claims.AccountID {
		return nil, ErrAccountDisabled
	}
	claims.Role = user.Role
	return claims, nil
}

// Register creates a company account together with its owner
func (s *AuthService) Register(companyName, username, email, password string) (*models.User, error) {
	companyName = strings.TrimSpace(companyName)
	username = strings.TrimSpace(username)
	if companyName == "" || username == "" {
		return nil, fmt.Errorf("%w: company name and username are required", ErrInvalidInput)
	}

	var user *models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		account := models.Account{CompanyName: companyName}
		if err := tx.Create(&account).Error; err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		var err error
		user, err = s.createUser(tx, account.ID, username, email, password, models.RoleOwner)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint("account_id", user.AccountID).Str("company", companyName).Msg("company account registered")
	return user, nil
}

// Login verifies credentials and issues a token
func (s *AuthService) Login(username, password string) (*models.User, string, error) {
	var user models.User
	if err := s.db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		return nil, "", ErrInvalidCredentials
	}

	// Check if account is active
	if !user.IsActive {
		return nil, "", ErrAccountDisabled
	}

	if !s.CheckPassword(user.Password, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.GenerateToken(&user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return &user, token, nil
}

// ChangePassword replaces a user's password after checking the old one
func (s *AuthService) ChangePassword(userID uint, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: new password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return ErrInvalidCredentials
	}
	if !s.CheckPassword(user.Password, oldPassword) {
		return ErrInvalidCredentials
	}

	hashedPassword, err := s.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.db.Model(&user).Update("password", hashedPassword).Error
}

// CreateSubUser adds a member login to an existing account
func (s *AuthService) CreateSubUser(accountID uint, username, email, password string) (*models.User, error) {
	return s.createUser(s.db, accountID, strings.TrimSpace(username), email, password, models.RoleMember)
}

// ListUsers lists the logins of an account
func (s *AuthService) ListUsers(accountID uint) ([]models.User, error) {
	var users []models.User
	err := s.db.Where("account_id = ?", accountID).Order("id asc").Find(&users).Error
	return users, err
}

// DeactivateUser disables a member login. Owners cannot be disabled.
func (s *AuthService) DeactivateUser(accountID, userID uint) error {
	var user models.User
	if err := s.db.Where("account_id = ? AND id = ?", accountID, userID).First(&user).Error; err != nil {
		return ErrNotFound
	}
	if user.Role == models.RoleOwner {
		return fmt.Errorf("%w: the account owner cannot be disabled", ErrForbidden)
	}
	return s.db.Model(&user).Update("is_active", false).Error
}

// EnsureAdmin creates the bootstrap "admin" owner when it does not exist
func (s *AuthService) EnsureAdmin(password string) error {
	var existing models.User
	err := s.db.Where("username = ?", "admin").First(&existing).Error
	if err == nil {
		log.Info().Msg("admin account already exists")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if _, err := s.Register("Default Company", "admin", "admin@example.com", password); err != nil {
		return fmt.Errorf("failed to create default admin account: %w", err)
	}
	log.Info().Msg("default admin account created (username: admin)")
	return nil
}

// AdminAccountID returns the account of the bootstrap "admin" owner
func (s *AuthService) AdminAccountID() (uint, error) {
	var admin models.User
	err := s.db.Where("username = ? AND role = ?", "admin", models.RoleOwner).First(&admin).Error
	if err != nil {
		return 0, ErrNotFound
	}
	return admin.AccountID, nil
}

func (s *AuthService) createUser(tx *gorm.DB, accountID uint, username, email, password, role string) (*models.User, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	var count int64
	if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: username %s is taken", ErrConflict, username)
	}

	hashedPassword, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		AccountID: accountID,
		Username:  username,
		Password:  hashedPassword,
		Email:     email,
		Role:      role,
		IsActive:  true,
	}
	if err := tx.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// CompanyName returns the display name of an account
func (s *AuthService) CompanyName(accountID uint) (string, error) {
	var account models.Account
	if err := s.db.First(&account, accountID).Error; err != nil {
		return "", ErrNotFound
	}
	return account.CompanyName, nil
}
