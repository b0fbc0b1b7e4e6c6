package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"seepage/internal/auth"
	"seepage/internal/model"
	"seepage/internal/repository"
)

const (
	passwordMinLen = 10
	passwordMaxLen = 72
)

var registerFields = []string{"email", "password", "firstName", "lastName"}

// EditorService defines the account use cases: registration, login and token refresh.
type EditorService interface {
	// Register validates a raw JSON body and creates the editor.
	Register(ctx context.Context, body map[string]any) (*model.EditorDTO, error)

	// Login checks credentials and returns a signed token.
	Login(ctx context.Context, email, password string) (string, error)

	// Refresh verifies token and issues a new one for the same editor.
	Refresh(ctx context.Context, token string) (string, error)
}

type editorService struct {
	repo   repository.EditorRepository
	tokens *auth.TokenIssuer
	now    func() time.Time
}

// NewEditorService constructs a new EditorService.
func NewEditorService(repo repository.EditorRepository, tokens *auth.TokenIssuer) EditorService {
	return &editorService{repo: repo, tokens: tokens, now: time.Now}
}

func (s *editorService) Register(ctx context.Context, body map[string]any) (*model.EditorDTO, error) {
	if verr := validateRegistration(body); verr != nil {
		return nil, verr
	}

	email := strings.ToLower(strings.TrimSpace(body["email"].(string)))
	if err := validation.Validate(email, validation.Required.Error("Missing Field")); err != nil {
		return nil, invalid("email", err.Error())
	}

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, storeErr("check email", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %w", ErrConflict, invalid("email", "Email is already associated with an editor account"))
	}

	hash, err := auth.HashPassword(body["password"].(string))
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &model.Editor{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    normalizeName(body["firstName"].(string)),
		LastName:     normalizeName(body["lastName"].(string)),
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %w", ErrConflict, invalid("email", "Email is already associated with an editor account"))
		}
		return nil, storeErr("create editor", err)
	}

	dto := created.ToDTO()
	return &dto, nil
}

// normalizeName stores names trimmed and lowercased, like emails.
func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// validateRegistration applies the checks in order and reports the first failure:
// presence, string type, untrimmed password, password length.
func validateRegistration(body map[string]any) *ValidationError {
	for _, f := range registerFields {
		if _, ok := body[f]; !ok {
			return invalid(f, "Missing Field")
		}
	}
	for _, f := range registerFields {
		if _, ok := body[f].(string); !ok {
			return invalid(f, "Incorrect field type: expected string")
		}
	}

	password := body["password"].(string)
	if strings.TrimSpace(password) != password {
		return invalid("password", "Cannot start or end with whitespace")
	}

	tooShort := fmt.Sprintf("Must be at least %d characters long", passwordMinLen)
	if err := validation.Validate(password,
		validation.Required.Error(tooShort),
		validation.Length(passwordMinLen, 0).Error(tooShort),
		validation.Length(0, passwordMaxLen).Error(fmt.Sprintf("Must be no larger than %d characters long", passwordMaxLen)),
	); err != nil {
		return invalid("password", err.Error())
	}
	return nil
}

func (s *editorService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", ErrUnauthorized
	}

	e, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUnauthorized
		}
		return "", storeErr("find editor", err)
	}
	if !auth.CheckPassword(e.PasswordHash, password) {
		return "", ErrUnauthorized
	}
	return s.tokens.Issue(e.ToDTO())
}

func (s *editorService) Refresh(_ context.Context, token string) (string, error) {
	out, err := s.tokens.Refresh(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return out, nil
}
