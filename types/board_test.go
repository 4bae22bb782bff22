package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationRequest_NormalizeDefaults(t *testing.T) {
	in := GenerationRequest{
		Title:     "  Q3 focus ",
		Goals:     []string{" run a marathon ", "", "  "},
		Tasks:     []string{"", "stretch"},
		Challenge: &ChallengeRef{ID: "c1", Name: "30 days"},
	}

	out := in.Normalize()

	assert.Equal(t, "Q3 focus", out.Title)
	assert.Equal(t, []string{"run a marathon"}, out.Goals)
	assert.Equal(t, []string{"stretch"}, out.Tasks)
	assert.Equal(t, LayoutHorizontal, out.LayoutStyle)
	assert.Equal(t, AestheticModern, out.Aesthetic)
	assert.Equal(t, BoardTypeCustom, out.BoardType)

	// 原请求未被修改
	assert.Len(t, in.Goals, 3)
	out.Challenge.Name = "changed"
	assert.Equal(t, "30 days", in.Challenge.Name)
}

func TestGenerationRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     GenerationRequest
		wantErr bool
	}{
		{"valid", GenerationRequest{Goals: []string{"g"}}, false},
		{"empty goals", GenerationRequest{Goals: []string{"  "}}, true},
		{"bad layout", GenerationRequest{Goals: []string{"g"}, LayoutStyle: "diagonal"}, true},
		{"bad aesthetic", GenerationRequest{Goals: []string{"g"}, Aesthetic: "neon"}, true},
		{"bad board type", GenerationRequest{Goals: []string{"g"}, BoardType: "weekly"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Normalize().Validate()
			if tt.wantErr {
				require.NotNil(t, err)
				assert.Equal(t, ErrInvalidRequest, err.Code)
				assert.Equal(t, 400, err.HTTPStatus)
				return
			}
			assert.Nil(t, err)
		})
	}
}

func TestEnumListings(t *testing.T) {
	assert.Len(t, BoardTypes(), 4)
	assert.Len(t, LayoutStyles(), 3)
	assert.Len(t, Aesthetics(), 5)
	for _, a := range Aesthetics() {
		assert.True(t, a.Valid())
	}
}

func TestAttempt_EffectiveScore(t *testing.T) {
	assert.Equal(t, 0, Attempt{}.EffectiveScore())
	s := 8
	assert.Equal(t, 8, Attempt{Score: &s}.EffectiveScore())
}
