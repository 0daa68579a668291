package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCall_State(t *testing.T) {
	tests := []struct {
		name     string
		active   bool
		pickedUp bool
		want     CallState
	}{
		{"ringing", true, false, CallStateRinging},
		{"answered", true, true, CallStateActive},
		{"ended before pickup", false, false, CallStateEnded},
		{"ended after pickup", false, true, CallStateEnded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Call{Active: tt.active, PickedUp: tt.pickedUp}
			assert.Equal(t, tt.want, c.State())
		})
	}
}

func TestCall_Participants(t *testing.T) {
	c := &Call{CallerID: "alice", ReceiverID: "bob"}

	assert.True(t, c.HasParticipant("alice"))
	assert.True(t, c.HasParticipant("bob"))
	assert.False(t, c.HasParticipant("carol"))
	assert.False(t, c.HasParticipant(""))

	assert.Equal(t, "bob", c.Peer("alice"))
	assert.Equal(t, "alice", c.Peer("bob"))
}
