package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"planfusion/internal/domain"
	"planfusion/internal/repository"
)

type ContactService struct {
	contacts repository.ContactRepository
	now      func() time.Time
}

func NewContactService(contacts repository.ContactRepository) *ContactService {
	return &ContactService{
		contacts: contacts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ContactInput recibe las fechas como "YYYY-MM-DD HH:MM" en UTC.
type ContactInput struct {
	Name            string
	Email           string
	Phone           string
	Category        string
	Notes           string
	LastInteraction string
	NextMeeting     string
}

func parseMeeting(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(domain.MeetingLayout, value, time.UTC)
	if err != nil {
		return nil, invalidInput(field, "must be YYYY-MM-DD HH:MM")
	}
	return &t, nil
}

func (in ContactInput) apply(contact *domain.Contact) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return invalidInput("name", "is required")
	}
	last, err := parseMeeting("last_interaction", in.LastInteraction)
	if err != nil {
		return err
	}
	next, err := parseMeeting("next_meeting", in.NextMeeting)
	if err != nil {
		return err
	}
	contact.Name = name
	contact.Email = normalizeEmail(in.Email)
	contact.Phone = strings.TrimSpace(in.Phone)
	contact.Category = strings.TrimSpace(in.Category)
	contact.Notes = strings.TrimSpace(in.Notes)
	contact.LastInteraction = last
	contact.NextMeeting = next
	return nil
}

func (s *ContactService) Create(ctx context.Context, email string, input ContactInput) (domain.Contact, error) {
	contact := domain.Contact{
		ID:        uuid.NewString(),
		UserEmail: normalizeEmail(email),
		CreatedAt: s.now(),
	}
	if err := input.apply(&contact); err != nil {
		return domain.Contact{}, err
	}
	if err := s.contacts.Create(ctx, contact); err != nil {
		return domain.Contact{}, storageError("create contact", err)
	}
	return contact, nil
}

func (s *ContactService) List(ctx context.Context, email string) ([]domain.Contact, error) {
	contacts, err := s.contacts.ListByUser(ctx, normalizeEmail(email))
	if err != nil {
		return nil, storageError("list contacts", err)
	}
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	return contacts, nil
}

// Update reemplaza todos los campos editables del contacto.
func (s *ContactService) Update(ctx context.Context, email, id string, input ContactInput) (domain.Contact, error) {
	email = normalizeEmail(email)
	contact, err := s.contacts.GetByID(ctx, email, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Contact{}, ErrNotFound
		}
		return domain.Contact{}, storageError("get contact", err)
	}
	if err := input.apply(&contact); err != nil {
		return domain.Contact{}, err
	}
	if err := s.contacts.Update(ctx, contact); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Contact{}, ErrNotFound
		}
		return domain.Contact{}, storageError("update contact", err)
	}
	return contact, nil
}

func (s *ContactService) Delete(ctx context.Context, email, id string) error {
	if err := s.contacts.Delete(ctx, normalizeEmail(email), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return storageError("delete contact", err)
	}
	return nil
}
