package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/clinic-checkin/internal/model"
)

func intPtr(n int) *int { return &n }

func TestGate_Admit(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		es     model.EventService
		want   Decision
	}{
		{
			name:   "open without cap",
			policy: PolicyCapacity,
			es:     model.EventService{CurrentAssigned: 400},
			want:   Decision{Admitted: true},
		},
		{
			name:   "closed",
			policy: PolicyCapacity,
			es:     model.EventService{IsClosed: true},
			want:   Decision{Reason: ReasonClosed},
		},
		{
			name:   "below cap",
			policy: PolicyCapacity,
			es:     model.EventService{MaxCapacity: intPtr(10), CurrentAssigned: 9},
			want:   Decision{Admitted: true},
		},
		{
			name:   "at cap",
			policy: PolicyCapacity,
			es:     model.EventService{MaxCapacity: intPtr(10), CurrentAssigned: 10},
			want:   Decision{Reason: ReasonFull},
		},
		{
			name:   "at cap under closed flag policy",
			policy: PolicyClosedFlag,
			es:     model.EventService{MaxCapacity: intPtr(10), CurrentAssigned: 12},
			want:   Decision{Admitted: true},
		},
		{
			name:   "closed under closed flag policy",
			policy: PolicyClosedFlag,
			es:     model.EventService{IsClosed: true},
			want:   Decision{Reason: ReasonClosed},
		},
		{
			name:   "zero cap",
			policy: PolicyCapacity,
			es:     model.EventService{MaxCapacity: intPtr(0)},
			want:   Decision{Reason: ReasonFull},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Gate{Policy: tt.policy}.Admit(tt.es))
		})
	}
}

func TestGate_ServingIgnoresCapacity(t *testing.T) {
	g := Gate{Policy: PolicyCapacity}
	assert.True(t, g.Serving(model.EventService{MaxCapacity: intPtr(1), CurrentAssigned: 5}))
	assert.False(t, g.Serving(model.EventService{IsClosed: true}))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyCapacity, p)

	p, err = ParsePolicy(" Closed_Flag ")
	require.NoError(t, err)
	assert.Equal(t, PolicyClosedFlag, p)
	assert.Equal(t, "closed_flag", p.String())

	_, err = ParsePolicy("lottery")
	assert.Error(t, err)
}
