package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"localharvest/internal/models"
	"localharvest/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// ParseAccessCodes splits the comma-joined producer allow-list from
// configuration, trimming whitespace and dropping empty entries.
func ParseAccessCodes(raw string) []string {
	var codes []string
	for _, code := range strings.Split(raw, ",") {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

// WelcomeNotifier sends the post-signup welcome email. Delivery is
// fire-and-forget; signup never fails because of it.
type WelcomeNotifier interface {
	NotifyWelcome(name, email, role string) error
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo    repositories.UserRepository
	jwtSecret   []byte
	tokenDurat  time.Duration // Duration for which JWT is valid
	secretCodes map[string]bool
	notifier    WelcomeNotifier // may be nil
}

// NewAuthService creates a new AuthService. secretCodes is the allow-list
// gating producer signup.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, secretCodes []string, notifier WelcomeNotifier) *AuthService {
	codes := make(map[string]bool, len(secretCodes))
	for _, c := range secretCodes {
		codes[c] = true
	}
	return &AuthService{
		userRepo:    userRepo,
		jwtSecret:   []byte(jwtSecret),
		tokenDurat:  10 * time.Hour,
		secretCodes: codes,
		notifier:    notifier,
	}
}

// Signup registers a new user, hashes their password, and saves them.
// Producer signup additionally requires a secret code from the allow-list.
func (s *AuthService) Signup(user *models.User, secretCode string) error {
	if existingUser, err := s.userRepo.GetByEmail(user.Email); err == nil && existingUser != nil {
		return fmt.Errorf("email '%s': %w", user.Email, ErrEmailTaken)
	}

	if user.Role == models.RoleProducer && !s.secretCodes[secretCode] {
		return ErrInvalidSecretCode
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword) // Store the hashed password

	if err := s.userRepo.Create(user); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyWelcome(user.Name, user.Email, user.Role); err != nil {
			log.Printf("Warning: failed to enqueue welcome email for %s: %v", user.Email, err)
		}
	}
	return nil
}

// Login authenticates a user and returns a JWT token plus the account on
// success. Unknown email and wrong password yield the same error.
func (s *AuthService) Login(email, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     time.Now().Add(s.tokenDurat).Unix(), // Token expiration time
		"iat":     time.Now().Unix(),                   // Issued at time
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, user, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
