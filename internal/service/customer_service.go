package service

import (
	"context"
	"errors"
	"strings"

	"hbpos/internal/dto"
	"hbpos/internal/model"
	"hbpos/internal/repository"

	"gorm.io/gorm"
)

// CustomerService resolves the customer of a sale by contact details.
type CustomerService interface {
	// Upsert returns nil when the request carries no name, email or contact
	// number. Any error is a *CustomerError.
	Upsert(ctx context.Context, tx *gorm.DB, req *dto.CustomerRequest) (*model.Customer, error)
}

type customerService struct {
	repo  repository.CustomerRepository
	clock Clock
}

func NewCustomerService(repo repository.CustomerRepository, clock Clock) CustomerService {
	if clock == nil {
		clock = SystemClock
	}
	return &customerService{repo: repo, clock: clock}
}

func (s *customerService) Upsert(ctx context.Context, tx *gorm.DB, req *dto.CustomerRequest) (*model.Customer, error) {
	if req == nil {
		return nil, nil
	}
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	contact := strings.TrimSpace(req.ContactNumber)
	if name == "" && email == "" && contact == "" {
		return nil, nil
	}

	// Phone is stored as country code + number, e.g. +94771234567.
	var phone string
	if contact != "" {
		phone = strings.TrimSpace(req.CountryCode) + contact
	}

	if email != "" {
		c, err := s.repo.FindByEmailTx(tx, email)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &CustomerError{Cause: err}
		}
	}
	if phone != "" {
		c, err := s.repo.FindByPhoneTx(tx, phone)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &CustomerError{Cause: err}
		}
	}

	c := &model.Customer{
		Name:        name,
		Email:       optional(email),
		Phone:       optional(phone),
		Address:     strings.TrimSpace(req.Address),
		MemberSince: s.clock(),
	}
	if err := s.repo.CreateTx(tx, c); err != nil {
		return nil, &CustomerError{Cause: err}
	}
	return c, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
