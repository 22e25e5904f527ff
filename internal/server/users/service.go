// Package users keeps the relay's fixed user directories and issues tokens
// for them. Passwords are held as bcrypt hashes only.
package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/shareify/internal/common"
	"github.com/dmitrijs2005/shareify/internal/server/auth"
)

type User struct {
	ID       string
	UserName string
	hash     []byte
}

type Service struct {
	realm            string
	users            map[string]*User
	jwtSecret        []byte
	validityDuration time.Duration

	// compared against when the login is unknown, to keep timing uniform
	dummyHash []byte
}

// Option configures a Service.
type Option func(*options)

type options struct {
	cost int
}

// WithCost sets the bcrypt cost used for passwords given in clear text.
func WithCost(cost int) Option {
	return func(o *options) { o.cost = cost }
}

// NewService builds the directory for realm from login → password. A
// password starting with "$2" is used as an existing bcrypt hash.
func NewService(realm string, passwords map[string]string, secret []byte, validity time.Duration, opts ...Option) (*Service, error) {
	o := options{cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{
		realm:            realm,
		users:            make(map[string]*User, len(passwords)),
		jwtSecret:        secret,
		validityDuration: validity,
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("dummy"), o.cost)
	if err != nil {
		return nil, err
	}
	s.dummyHash = dummy

	for login, password := range passwords {
		hash := []byte(password)
		if !strings.HasPrefix(password, "$2") {
			hash, err = bcrypt.GenerateFromPassword([]byte(password), o.cost)
			if err != nil {
				return nil, fmt.Errorf("hash password for %s: %w", login, err)
			}
		} else if _, err := bcrypt.Cost(hash); err != nil {
			return nil, fmt.Errorf("user %s: %w", login, err)
		}
		s.users[login] = &User{
			ID:       uuid.NewSHA1(uuid.NameSpaceURL, []byte(realm+":"+login)).String(),
			UserName: login,
			hash:     hash,
		}
	}
	return s, nil
}

// Login checks the password and returns a signed token.
func (s *Service) Login(ctx context.Context, userName, password string) (string, error) {
	user, ok := s.users[userName]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return "", common.ErrorUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword(user.hash, []byte(password)); err != nil {
		return "", common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, s.realm, s.jwtSecret, s.validityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

// Verify returns the id of the user token was issued to.
func (s *Service) Verify(token string) (string, error) {
	return auth.GetUserIDFromToken(token, s.realm, s.jwtSecret)
}
