package http

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"corebank-go/internal/database"
	"corebank-go/internal/models"
)

// Auth Response Wrapper
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Generate a random UUID-like string
func generateUUID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Generate a temporary JWT-like token (Mock for now, should use real JWT later)
func generateToken(user *models.User) string {
	// In production, use jwt-go to sign a token with user.ID and Expiry
	return "mock_token_" + user.UUID + "_" + generateUUID()
}

// POST /v1/auth/register
func (s *Server) authRegister(c *gin.Context) {
	var input struct {
		Identifier string `json:"identifier" binding:"required"`
		PIN        string `json:"pin" binding:"required,len=4"`
		Username   string `json:"username"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	var email *string
	var phone *string
	if strings.Contains(input.Identifier, "@") {
		email = &input.Identifier
	} else {
		phone = &input.Identifier
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.PIN), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(500, gin.H{"error": "encryption_failed"})
		return
	}

	// Check if identifier already taken
	var existing models.User
	if err := database.DB.Where("email = ? OR phone = ?", input.Identifier, input.Identifier).First(&existing).Error; err == nil {
		c.JSON(409, gin.H{"error": "user_already_exists"})
		return
	}

	username := input.Username
	if username == "" {
		username = "User_" + generateUUID()[:8]
	}

	user := models.User{
		UUID:     generateUUID(),
		Email:    email,
		Phone:    phone,
		PinHash:  string(hash),
		Username: username,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		c.JSON(500, gin.H{"error": "db_error"})
		return
	}

	// Every user gets a SAVINGS settlement account at registration; loan
	// disbursements and repayments post against it.
	account := models.Account{
		UserID: user.ID,
		Number: generateAccountNumber(),
		Type:   models.AccountTypeSavings,
		Name:   "Primary Savings",
	}
	if err := database.DB.Create(&account).Error; err != nil {
		c.JSON(500, gin.H{"error": "db_error"})
		return
	}

	c.JSON(201, AuthResponse{
		Token: generateToken(&user),
		User:  &user,
	})
}

// POST /v1/auth/login
func (s *Server) authLogin(c *gin.Context) {
	var input struct {
		Identifier string `json:"identifier" binding:"required"`
		PIN        string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	// Search in both Email and Phone
	if err := database.DB.Where("email = ? OR phone = ?", input.Identifier, input.Identifier).First(&user).Error; err != nil {
		c.JSON(401, gin.H{"error": "invalid_credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PinHash), []byte(input.PIN)); err != nil {
		c.JSON(401, gin.H{"error": "invalid_credentials"})
		return
	}

	c.JSON(200, AuthResponse{
		Token: generateToken(&user),
		User:  &user,
	})
}
