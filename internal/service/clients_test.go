package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/clinic-checkin/internal/model"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/repository"
)

func TestClientService_RegisterAndGet(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewClientService(store, nil)
	ctx := context.Background()

	c, err := svc.Register(ctx, model.RegisterClientRequest{
		FirstName:        " Ada ",
		LastName:         "Lovelace",
		DateOfBirth:      "1815-12-10",
		NeedsInterpreter: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Ada", c.FirstName)
	assert.Equal(t, time.Date(1815, 12, 10, 0, 0, 0, 0, time.UTC), c.DateOfBirth)

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.True(t, got.NeedsInterpreter)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestClientService_RegisterValidation(t *testing.T) {
	svc := NewClientService(repository.NewMemoryStore(), nil)

	tests := []struct {
		name  string
		req   model.RegisterClientRequest
		field string
	}{
		{"missing first name", model.RegisterClientRequest{LastName: "L", DateOfBirth: "1990-01-01"}, "first_name"},
		{"missing last name", model.RegisterClientRequest{FirstName: "F", DateOfBirth: "1990-01-01"}, "last_name"},
		{"bad date", model.RegisterClientRequest{FirstName: "F", LastName: "L", DateOfBirth: "01/02/1990"}, "date_of_birth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
