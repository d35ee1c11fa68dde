package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to SessionStatus
		ok       bool
	}{
		{StatusNotReadyForPayment, StatusReadyForPayment, true},
		{StatusNotReadyForPayment, StatusCanceled, true},
		{StatusNotReadyForPayment, StatusCompleted, false},
		{StatusReadyForPayment, StatusCompleted, true},
		{StatusReadyForPayment, StatusCanceled, true},
		{StatusReadyForPayment, StatusNotReadyForPayment, false},
		{StatusCompleted, StatusCanceled, false},
		{StatusCompleted, StatusReadyForPayment, false},
		{StatusCanceled, StatusCompleted, false},
		{StatusCanceled, StatusReadyForPayment, false},
	}
	for _, tt := range tests {
		err := CanTransition(tt.from, tt.to)
		if tt.ok {
			assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		} else {
			assert.Error(t, err, "%s -> %s", tt.from, tt.to)
		}
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	assert.ErrorContains(t, CanTransition("processing", StatusCompleted), "unknown session status")
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, StatusNotReadyForPayment.IsTerminal())
	assert.False(t, StatusReadyForPayment.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCanceled.IsTerminal())
}

func TestSessionStatus_Valid(t *testing.T) {
	assert.True(t, StatusReadyForPayment.Valid())
	assert.False(t, SessionStatus("pending").Valid())
	assert.False(t, SessionStatus("").Valid())
}
