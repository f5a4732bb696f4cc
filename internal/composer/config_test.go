package composer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"composed/internal/config"
)

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		learn    bool
		wantRecs []string
	}{
		{"learning", true, []string{"food"}},
		{"not learning", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Engine.Modes = []string{ModeDeadKey, ModeWord}
			cfg.Engine.DefaultMode = ModeWord
			cfg.Engine.DeadKeys = map[string]string{",": "\u0327"}
			cfg.Dictionary.Learn = tt.learn

			rec := &recorder{}
			s, err := FromConfig(cfg, stubLookup{"fo": {"foo", "food"}}, rec, nil)
			require.NoError(t, err)
			assert.Equal(t, []string{ModeDeadKey, ModeWord}, s.Modes())
			assert.Equal(t, ModeWord, s.InputMode())

			typeText(t, s, "fo")
			s.CandidateSelected("food")
			assert.Equal(t, "food", s.DequeueCommitString())
			assert.Equal(t, tt.wantRecs, rec.words)

			require.NoError(t, s.Select(ModeDeadKey))
			typeText(t, s, ",c")
			assert.Equal(t, "ç", s.DequeueCommitString())
		})
	}
}

func TestFromConfigUnknownMode(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Engine.Modes = []string{"hangul"}
	_, err := FromConfig(cfg, nil, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownMode)
}
