package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_LegacyDocumentLoadsWithDefaults(t *testing.T) {
	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"applications":[{"id":"abc","name":"Ada","status":"Pending","createdAt":"2024-01-02T03:04:05.000Z"}]}`), &snap))
	snap.Normalize()

	assert.Len(t, snap.Applications, 1)
	assert.NotNil(t, snap.Tickets)
	assert.Empty(t, snap.Tickets)
	assert.Equal(t, DefaultPrefix, snap.Settings.Prefix)
	assert.False(t, snap.Welcome.Enabled)
	assert.Nil(t, snap.Applications[0].DecisionBy)
}

func TestSnapshot_NullChannelIsAccepted(t *testing.T) {
	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"welcome":{"enabled":false,"channel":null,"message":""}}`), &snap))
	assert.Equal(t, "", snap.Welcome.Channel)
}

func TestSnapshot_CloneIsIndependent(t *testing.T) {
	by := "mod"
	at := time.Now().UTC()
	src := NewSnapshot()
	src.Applications = append(src.Applications, Application{ID: "a1", Status: StatusApproved, DecisionBy: &by, DecisionAt: &at})
	src.Tickets = append(src.Tickets, Ticket{ID: "t1", Status: TicketOpen})

	dup := src.Clone()
	*dup.Applications[0].DecisionBy = "someone-else"
	dup.Tickets[0].Status = TicketClosed
	dup.Settings.Prefix = "?"

	assert.Equal(t, "mod", *src.Applications[0].DecisionBy)
	assert.Equal(t, TicketOpen, src.Tickets[0].Status)
	assert.Equal(t, DefaultPrefix, src.Settings.Prefix)
}

func TestSettings_EffectivePrefix(t *testing.T) {
	assert.Equal(t, "!", Settings{}.EffectivePrefix())
	assert.Equal(t, "?", Settings{Prefix: "?"}.EffectivePrefix())
}

func TestApplication_Decided(t *testing.T) {
	assert.False(t, Application{Status: StatusPending}.Decided())
	assert.True(t, Application{Status: StatusRejected}.Decided())
	assert.True(t, Application{Status: "Interview"}.Decided())
}
