package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ EmailTemplateService = (*EmailTemplateServiceImpl)(nil)

// EmailTemplateServiceImpl manages staff outreach templates
type EmailTemplateServiceImpl struct {
	templateRepo repositories.EmailTemplateRepository
}

// NewEmailTemplateService creates a new EmailTemplateServiceImpl
func NewEmailTemplateService(templateRepo repositories.EmailTemplateRepository) *EmailTemplateServiceImpl {
	return &EmailTemplateServiceImpl{templateRepo: templateRepo}
}

var placeholderPattern = regexp.MustCompile(`\[[A-Z_]+\]`)

// templateVariables lists the distinct placeholders used by subject and content, in order of appearance
func templateVariables(t *models.EmailTemplate) []string {
	seen := make(map[string]bool)
	vars := []string{}
	for _, m := range placeholderPattern.FindAllString(t.Subject+"\n"+t.Content, -1) {
		if !seen[m] {
			seen[m] = true
			vars = append(vars, m)
		}
	}
	return vars
}

func validateTemplate(t *models.EmailTemplate) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" || strings.TrimSpace(t.Subject) == "" || strings.TrimSpace(t.Content) == "" {
		return fmt.Errorf("%w: name, subject and content are required", ErrValidation)
	}
	return nil
}

func (s *EmailTemplateServiceImpl) List(ctx context.Context) ([]*models.EmailTemplate, error) {
	return s.templateRepo.FindAll(ctx)
}

func (s *EmailTemplateServiceImpl) Get(ctx context.Context, id primitive.ObjectID) (*models.EmailTemplate, error) {
	t, err := s.templateRepo.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrTemplateNotFound
	}
	return t, err
}

// Create stores a template; names are unique
func (s *EmailTemplateServiceImpl) Create(ctx context.Context, template *models.EmailTemplate) error {
	if err := validateTemplate(template); err != nil {
		return err
	}
	template.Variables = templateVariables(template)
	err := s.templateRepo.Create(ctx, template)
	if errors.Is(err, repositories.ErrDuplicate) {
		return ErrTemplateNameTaken
	}
	return err
}

func (s *EmailTemplateServiceImpl) Update(ctx context.Context, template *models.EmailTemplate) error {
	if err := validateTemplate(template); err != nil {
		return err
	}
	existing, err := s.Get(ctx, template.ID)
	if err != nil {
		return err
	}
	template.CreatedAt = existing.CreatedAt
	template.CreatedBy = existing.CreatedBy
	template.Variables = templateVariables(template)
	err = s.templateRepo.Update(ctx, template)
	switch {
	case errors.Is(err, repositories.ErrDuplicate):
		return ErrTemplateNameTaken
	case errors.Is(err, repositories.ErrNotFound):
		return ErrTemplateNotFound
	}
	return err
}

func (s *EmailTemplateServiceImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	err := s.templateRepo.Delete(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrTemplateNotFound
	}
	return err
}
