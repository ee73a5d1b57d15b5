package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/talkincode/wacapture/internal/domain"
	"github.com/talkincode/wacapture/pkg/common"
)

const tokenTTL = 7 * 24 * time.Hour

type credentialsForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login verifies the admin credentials and issues a signed JWT.
func (s *WebServer) login(c echo.Context) error {
	var form credentialsForm
	if err := c.Bind(&form); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	form.Email = strings.TrimSpace(strings.ToLower(form.Email))
	if form.Email == "" || form.Password == "" {
		return fail(c, http.StatusBadRequest, "Email and password are required")
	}

	var admin domain.Admin
	err := s.db.Where("email = ?", form.Email).First(&admin).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			zap.L().Error("admin lookup failed", zap.Error(err))
		}
		return fail(c, http.StatusUnauthorized, "Invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(form.Password)) != nil {
		return fail(c, http.StatusUnauthorized, "Invalid credentials")
	}

	token, err := s.signToken(&admin)
	if err != nil {
		zap.L().Error("failed to sign token", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Failed to issue token")
	}
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

// register creates a new admin account.
func (s *WebServer) register(c echo.Context) error {
	var form credentialsForm
	if err := c.Bind(&form); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	form.Email = strings.TrimSpace(strings.ToLower(form.Email))
	if form.Email == "" || form.Password == "" {
		return fail(c, http.StatusBadRequest, "Email and password are required")
	}

	var count int64
	if err := s.db.Model(&domain.Admin{}).Where("email = ?", form.Email).Count(&count).Error; err != nil {
		zap.L().Error("admin lookup failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Failed to create admin")
	}
	if count > 0 {
		return fail(c, http.StatusBadRequest, "Email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to create admin")
	}
	admin := domain.Admin{
		ID:           common.UUIDint64(),
		Email:        form.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.db.Create(&admin).Error; err != nil {
		zap.L().Error("failed to create admin", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Failed to create admin")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Admin created successfully",
		"admin":   admin,
	})
}

func (s *WebServer) signToken(admin *domain.Admin) (string, error) {
	claims := jwt.MapClaims{
		"uid":   admin.ID,
		"email": admin.Email,
		"exp":   time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Web.JwtSecret))
}
