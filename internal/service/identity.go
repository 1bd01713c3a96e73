package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/freyja/internal/auth"
	"github.com/dukerupert/freyja/internal/domain"
	"github.com/dukerupert/freyja/internal/repository"
	"github.com/dukerupert/freyja/internal/telemetry"
	"github.com/go-playground/validator/v10"
)

// DefaultGuestEmailDomain is used when no guest domain is configured.
const DefaultGuestEmailDomain = "guest.freyja.local"

// Identity kinds recorded in metrics.
const (
	identityLoggedIn      = "logged_in"
	identityExistingEmail = "existing_email"
	identityNewEmail      = "new_email"
	identitySynthesized   = "synthesized"
)

// IdentityResolver maps a checkout to the user who owns the resulting order.
type IdentityResolver interface {
	// ResolveCheckoutIdentity returns the user id to attribute the order to.
	// A logged-in user who owns the store is treated as anonymous. A form
	// email always maps back to the same user id.
	ResolveCheckoutIdentity(ctx context.Context, loggedInUserID string, store domain.Store, form *domain.CustomerForm) (string, error)
}

// IdentityConfig configures guest identity creation.
type IdentityConfig struct {
	// GuestEmailDomain is the domain of synthesized guest emails.
	GuestEmailDomain string

	// Hasher hashes the unusable password placeholder. Nil uses auth.HashPassword.
	Hasher auth.Hasher

	// Now is the clock used for synthesized emails. Nil uses time.Now.
	Now func() time.Time
}

type identityResolver struct {
	repo     repository.Querier
	cfg      IdentityConfig
	validate *validator.Validate
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
}

// NewIdentityResolver creates an IdentityResolver backed by repo.
func NewIdentityResolver(repo repository.Querier, cfg IdentityConfig, metrics *telemetry.BusinessMetrics, logger *slog.Logger) IdentityResolver {
	if cfg.GuestEmailDomain == "" {
		cfg.GuestEmailDomain = DefaultGuestEmailDomain
	}
	if cfg.Hasher == nil {
		cfg.Hasher = auth.HashPassword
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &identityResolver{
		repo:     repo,
		cfg:      cfg,
		validate: validator.New(),
		metrics:  metrics,
		logger:   logger,
	}
}

func (r *identityResolver) ResolveCheckoutIdentity(ctx context.Context, loggedInUserID string, store domain.Store, form *domain.CustomerForm) (string, error) {
	if loggedInUserID != "" {
		if !store.OwnedBy(loggedInUserID) {
			r.metrics.RecordIdentity(identityLoggedIn)
			return loggedInUserID, nil
		}
		r.logger.Debug("store owner checking out, resolving as guest", "store_id", store.ID)
	}

	name := ""
	email := ""
	if form != nil {
		name = strings.TrimSpace(form.Name)
		email = strings.ToLower(strings.TrimSpace(form.Email))
	}
	if form.IsEmpty() {
		name = fmt.Sprintf("Guest of %s", store.Name)
	}

	if email != "" {
		if err := r.validate.Var(email, "email"); err != nil {
			return "", withDetail(ErrInvalidEmail, "identity.resolve", email)
		}

		id, ok, err := r.fromEmail(ctx, store, email, name)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrIdentityResolution, err)
		}
		if ok {
			return id, nil
		}
	}

	if name == "" {
		name = fmt.Sprintf("Guest of %s", store.Name)
	}

	guestEmail, err := r.guestEmail(store)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIdentityResolution, err)
	}
	user, err := r.create(ctx, guestEmail, name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIdentityResolution, err)
	}

	r.metrics.RecordIdentity(identitySynthesized)
	return repository.UUIDString(user.ID), nil
}

// fromEmail reuses or creates the user for a form email. ok is false when
// the email belongs to the store owner and must be ignored.
func (r *identityResolver) fromEmail(ctx context.Context, store domain.Store, email, name string) (string, bool, error) {
	existing, err := r.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		user := toDomainUser(existing)
		if store.OwnedBy(user.ID) {
			r.logger.Debug("form email belongs to store owner, ignoring", "store_id", store.ID)
			return "", false, nil
		}
		// Registered accounts own their profile; only guest names follow the form.
		if user.IsGuest && name != "" && name != user.Name {
			if _, err := r.repo.UpdateUserName(ctx, repository.UpdateUserNameParams{
				ID:   existing.ID,
				Name: name,
			}); err != nil {
				// Name refresh is best-effort.
				r.logger.Warn("failed to refresh customer name", "user_id", user.ID, "error", err)
			}
		}
		r.metrics.RecordIdentity(identityExistingEmail)
		return user.ID, true, nil

	case repository.IsNotFound(err):
		if name == "" {
			name = fmt.Sprintf("Guest of %s", store.Name)
		}
		user, err := r.create(ctx, email, name)
		if err != nil {
			return "", false, err
		}
		r.metrics.RecordIdentity(identityNewEmail)
		return repository.UUIDString(user.ID), true, nil

	default:
		return "", false, fmt.Errorf("lookup user by email: %w", err)
	}
}

func (r *identityResolver) create(ctx context.Context, email, name string) (repository.User, error) {
	placeholder, err := auth.UnusablePassword(r.cfg.Hasher)
	if err != nil {
		return repository.User{}, fmt.Errorf("password placeholder: %w", err)
	}

	user, err := r.repo.UpsertUserByEmail(ctx, repository.UpsertUserByEmailParams{
		Email:        email,
		Name:         name,
		PasswordHash: placeholder,
		IsGuest:      true,
	})
	if err != nil {
		return repository.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// guestEmail builds guest+<store>-<unix millis>-<6 hex>@<domain>.
func (r *identityResolver) guestEmail(store domain.Store) (string, error) {
	label := store.Slug
	if label == "" {
		label = store.ID
	}

	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return fmt.Sprintf("guest+%s-%d-%s@%s",
		strings.ToLower(label),
		r.cfg.Now().UnixMilli(),
		hex.EncodeToString(suffix),
		r.cfg.GuestEmailDomain,
	), nil
}
