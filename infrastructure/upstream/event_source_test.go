package upstream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"phrasely-backend/domain/core/valueobjects"
)

func TestSocketIDOf(t *testing.T) {
	tests := []struct {
		eventID string
		want    string
	}{
		{"sock1-a1b2c3d4e5f6", "sock1"},
		{"conn-abc-a1b2c3d4e5f6", "conn-abc"},
		{"nodash", "nodash"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, socketIDOf(tt.eventID), tt.eventID)
	}
}

func TestParseEnrichment(t *testing.T) {
	source := NewEventSource("ws://upstream", nil, nil, zap.NewNop())
	sessionID := valueobjects.NewSessionID()
	correlationID, err := valueobjects.NewCorrelationIDFromString("sock1-a1b2c3d4e5f6")
	require.NoError(t, err)

	index := func(i int) *int { return &i }

	t.Run("valid payload", func(t *testing.T) {
		env := envelope{
			Channel: "tagging",
			EventID: "sock1-a1b2c3d4e5f6",
			Index:   index(2),
			Data:    json.RawMessage(`[{"word":"quick","type":"adjective"},{"word":"fox","type":"noun","synonyms":["vixen"]}]`),
		}

		done, event, err := source.parseEnrichment(env, sessionID, correlationID)

		require.NoError(t, err)
		assert.False(t, done)
		assert.Equal(t, 2, event.Index)
		require.Len(t, event.Tokens, 2)
		assert.Equal(t, valueobjects.TagAdjective, event.Tokens[0].Tag)
		assert.Equal(t, []string{"vixen"}, event.Tokens[1].Synonyms)
	})

	t.Run("done sentinel", func(t *testing.T) {
		env := envelope{Channel: "tagging", Data: json.RawMessage(`"[DONE]"`)}

		done, _, err := source.parseEnrichment(env, sessionID, correlationID)

		require.NoError(t, err)
		assert.True(t, done)
	})

	t.Run("rejections fail closed", func(t *testing.T) {
		tests := []struct {
			name string
			env  envelope
		}{
			{"missing index", envelope{Data: json.RawMessage(`[{"word":"x"}]`)}},
			{"negative index", envelope{Index: index(-1), Data: json.RawMessage(`[{"word":"x"}]`)}},
			{"malformed data", envelope{Index: index(0), Data: json.RawMessage(`{not json`)}},
			{"empty array", envelope{Index: index(0), Data: json.RawMessage(`[]`)}},
			{"empty word", envelope{Index: index(0), Data: json.RawMessage(`[{"word":""}]`)}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, _, err := source.parseEnrichment(tt.env, sessionID, correlationID)
				assert.Error(t, err)
			})
		}
	})
}
