package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/clinic-checkin/internal/model"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/repository"
	"github.com/Shivanand-hulikatti/clinic-checkin/pkg/logging"
)

const dateLayout = "2006-01-02"

// ClientService registers and looks up clients.
type ClientService struct {
	store  repository.Store
	logger *logging.Logger
}

// NewClientService constructs a ClientService.
func NewClientService(store repository.Store, logger *logging.Logger) *ClientService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ClientService{store: store, logger: logger}
}

// Register validates the request and stores a new client. The visit is only
// created at the client's first check-in.
func (s *ClientService) Register(ctx context.Context, req model.RegisterClientRequest) (*model.Client, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.FirstName == "" {
		return nil, invalid("first_name", "is required")
	}
	if req.LastName == "" {
		return nil, invalid("last_name", "is required")
	}
	dob, err := time.Parse(dateLayout, strings.TrimSpace(req.DateOfBirth))
	if err != nil {
		return nil, invalid("date_of_birth", "must be a date formatted YYYY-MM-DD")
	}

	c := &model.Client{
		FirstName:        req.FirstName,
		MiddleName:       strings.TrimSpace(req.MiddleName),
		LastName:         req.LastName,
		DateOfBirth:      dob,
		NeedsInterpreter: req.NeedsInterpreter,
	}
	if err := s.store.CreateClient(ctx, c); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("register client: %w", err)
	}
	s.logger.Info("client registered", "client_id", c.ID)
	return c, nil
}

// Get returns a single client by ID.
func (s *ClientService) Get(ctx context.Context, id string) (*model.Client, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("id", "is required")
	}
	c, err := s.store.GetClient(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}
