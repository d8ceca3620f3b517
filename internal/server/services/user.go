// Package services contains server-side business logic: owner sign-in and
// session handling, the admin form pipelines for profile, projects and skills,
// and the CV enhancer.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/portfolio/internal/common"
	"github.com/dmitrijs2005/portfolio/internal/dbx"
	"github.com/dmitrijs2005/portfolio/internal/logging"
	"github.com/dmitrijs2005/portfolio/internal/server/auth"
	"github.com/dmitrijs2005/portfolio/internal/server/config"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
	"github.com/dmitrijs2005/portfolio/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService signs the owner in and out and rotates refresh tokens.
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	limiter                      *keyedLimiter
	log                          logging.Logger
}

// Sign-in attempts allowed per client: 5 per minute, burst of 5.
const (
	loginRate  = rate.Limit(5.0 / 60.0)
	loginBurst = 5
)

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		limiter:                      newKeyedLimiter(loginRate, loginBurst),
		log:                          log.With("module", "users"),
	}
}

// EnsureOwner creates or refreshes the owner account from configuration.
// Without a password hash nobody can sign in, which is logged but not fatal.
func (s *UserService) EnsureOwner(ctx context.Context, id, email, passwordHash string) error {
	if passwordHash == "" || email == "" {
		s.log.Warn(ctx, "owner credentials not configured, admin sign-in disabled")
		return nil
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return fmt.Errorf("owner password hash: %w", err)
	}

	repo := s.repomanager.Users(s.db)
	if err := repo.Upsert(ctx, &models.User{ID: id, Email: email, PasswordHash: []byte(passwordHash)}); err != nil {
		return fmt.Errorf("error seeding owner: %v", err)
	}
	s.log.Info(ctx, "owner account ready", "id", id)
	return nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// compareWithDummy spends the same bcrypt work for unknown emails as for
// known ones.
func compareWithDummy(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// Login checks email and password and returns a new TokenPair. clientKey
// identifies the caller for throttling.
func (s *UserService) Login(ctx context.Context, clientKey, email, password string) (*TokenPair, error) {
	if !s.limiter.Allow(clientKey) {
		return nil, common.ErrTooManyAttempts
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			compareWithDummy(password)
			return nil, common.ErrorUnauthorized
		}
		s.log.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, common.ErrorUnauthorized
	}

	if n, err := s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, user.ID, time.Now()); err != nil {
		s.log.Warn(ctx, "pruning expired sessions failed", "error", err)
	} else if n > 0 {
		s.log.Debug(ctx, "expired sessions pruned", "count", n)
	}

	return s.generateTokenPair(ctx, user.ID, s.db)
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		// Only the request that removes the row may issue the next pair.
		if err := repoTx.Consume(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// SignOut revokes the refresh token. An empty token is a no-op.
func (s *UserService) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// SignOutEverywhere revokes every session of userID.
func (s *UserService) SignOutEverywhere(ctx context.Context, userID string) (int64, error) {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("error deleting refresh tokens: %w", err)
	}
	s.log.Info(ctx, "sessions revoked", "user", userID, "count", n)
	return n, nil
}

// --- helpers below ---

func (s *UserService) generateAccessToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, userID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
