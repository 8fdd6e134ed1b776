package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/acervo-digital/biblioteca-back/internal/config"
	"github.com/acervo-digital/biblioteca-back/internal/db"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 14

type Auth struct {
	db       *gorm.DB
	logger   *zap.SugaredLogger
	secret   []byte
	tokenTTL time.Duration
}

func NewAuth(cfg *config.Config, gdb *gorm.DB, l *zap.SugaredLogger) *Auth {
	return &Auth{
		db:       gdb,
		logger:   l,
		secret:   []byte(cfg.JWTSecret),
		tokenTTL: time.Duration(cfg.TokenTTLHours) * time.Hour,
	}
}

// Login verifies the credentials and returns the user together with a signed
// bearer token. Unknown email and wrong password collapse into the same
// Unauthorized message.
func (s *Auth) Login(email, password string) (*db.User, string, error) {
	if email == "" || password == "" {
		return nil, "", Invalid("email and password are required")
	}

	user := db.User{}
	res := s.db.Where("email = ?", normalizeEmail(email)).First(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, "", Unauthorized("incorrect email or password")
		}
		return nil, "", errors.Wrap(res.Error, "find user")
	}

	if err := bcryptCheck(user.PasswordHash, password); err != nil {
		return nil, "", Unauthorized("incorrect email or password")
	}

	token, err := s.IssueToken(user.Email)
	if err != nil {
		return nil, "", err
	}

	return &user, token, nil
}

// IssueToken signs an HS256 token carrying the user's email and an expiry.
func (s *Auth) IssueToken(email string) (string, error) {
	claims := jwt.MapClaims{
		"email": email,
		"exp":   time.Now().Add(s.tokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return token, nil
}

// VerifyToken checks signature and expiry and returns the email claim.
func (s *Auth) VerifyToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", Unauthorized("invalid token")
	}
	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return "", Unauthorized("invalid token")
	}

	return email, nil
}

func bcryptGen(pass string) (string, error) {
	passwordHashB, err := bcrypt.GenerateFromPassword([]byte(pass), bcryptCost)
	if err != nil {
		return "", errors.Wrap(err, "generate password hash")
	}
	return string(passwordHashB), nil
}

func bcryptCheck(hash, pass string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass))
}
