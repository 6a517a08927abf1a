package vendors

import (
	"context"
	"fmt"

	"github.com/vendorbridge/vendorbridge/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Vendor, error)
	Create(ctx context.Context, v Vendor) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	List(ctx context.Context, status string, limit, offset int) ([]Vendor, error)
}

// Service manages vendor records. The onboarding flow itself (token
// issuance, invitations) lives outside this service; purchasing only needs
// the approval gate.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a vendor service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create registers a vendor in the pending state.
func (s *Service) Create(ctx context.Context, name, email string) (Vendor, error) {
	if name == "" {
		return Vendor{}, fmt.Errorf("%w: vendor name is required", shared.ErrValidation)
	}
	v := Vendor{Name: name, Email: email, Status: StatusPending}
	id, err := s.repo.Create(ctx, v)
	if err != nil {
		return Vendor{}, err
	}
	v.ID = id
	return v, nil
}

// Get returns a vendor by id.
func (s *Service) Get(ctx context.Context, id int64) (Vendor, error) {
	return s.repo.Get(ctx, id)
}

// SetStatus moves a vendor to the given onboarding state.
func (s *Service) SetStatus(ctx context.Context, id int64, status Status) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

// List returns vendors, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]Vendor, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.List(ctx, status, limit, offset)
}

// RequireApproved loads a vendor and verifies it is approved. Purchase
// orders and bills may only be issued against approved vendors.
func (s *Service) RequireApproved(ctx context.Context, id int64) (Vendor, error) {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return Vendor{}, err
	}
	if v.Status != StatusApproved {
		return Vendor{}, fmt.Errorf("%w: vendor %d is %s, not approved", shared.ErrValidation, id, v.Status)
	}
	return v, nil
}
