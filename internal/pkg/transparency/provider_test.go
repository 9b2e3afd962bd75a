package transparency

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replygate/ReplyGate/internal/pkg/approval"
)

func TestNewProviderModeFallback(t *testing.T) {
	assert.Equal(t, ModeSignature, NewProvider("").mode)
	assert.Equal(t, ModeSignature, NewProvider("banana").mode)
	assert.Equal(t, ModeCreative, NewProvider(ModeCreative).mode)
	assert.Equal(t, ModeOff, NewProvider(ModeOff).mode)
}

func TestIsRequired(t *testing.T) {
	ctx := context.Background()

	required, err := NewProvider(ModeSignature).IsRequired(ctx, "acct-1", "twitter")
	require.NoError(t, err)
	assert.True(t, required)

	required, err = NewProvider(ModeOff).IsRequired(ctx, "acct-1", "twitter")
	require.NoError(t, err)
	assert.False(t, required)
}

func TestApplyAddsRecognizableMarker(t *testing.T) {
	p := NewProvider(ModeSignature)

	got, err := p.Apply(context.Background(), "thanks for the feedback", "acct-1", "en", 10000)
	require.NoError(t, err)
	assert.True(t, got.Applied)
	assert.NotEqual(t, "thanks for the feedback", got.Text)
	assert.True(t, approval.HasTransparencyMarker(got.Text))
	assert.True(t, strings.HasPrefix(got.Text, "thanks for the feedback"))
}

func TestApplyKeepsExistingMarker(t *testing.T) {
	p := NewProvider(ModeSignature)

	text := "already marked 🤖"
	got, err := p.Apply(context.Background(), text, "acct-1", "en", 280)
	require.NoError(t, err)
	assert.True(t, got.Applied)
	assert.Equal(t, text, got.Text)
}

func TestApplySpanishPool(t *testing.T) {
	p := NewProvider(ModeCreative)

	got, err := p.Apply(context.Background(), "gracias por el comentario", "acct-1", "es-ES", 10000)
	require.NoError(t, err)
	assert.True(t, got.Applied)
	assert.True(t, approval.HasTransparencyMarker(got.Text))
}

func TestApplyDeterministicPerInput(t *testing.T) {
	p := NewProvider(ModeCreative)
	ctx := context.Background()

	a, err := p.Apply(ctx, "same text", "acct-1", "en", 10000)
	require.NoError(t, err)
	b, err := p.Apply(ctx, "same text", "acct-1", "en", 10000)
	require.NoError(t, err)
	assert.Equal(t, a.Text, b.Text)
}

func TestApplyForcesShortMarkerNearLimit(t *testing.T) {
	p := NewProvider(ModeSignature)
	text := strings.Repeat("y", 270)

	got, err := p.Apply(context.Background(), text, "acct-1", "en", 280)
	require.NoError(t, err)
	assert.True(t, got.Applied)
	assert.LessOrEqual(t, len(got.Text), 280)
	assert.Contains(t, got.Text, "🤖")
}

func TestApplyGivesUpWhenNothingFits(t *testing.T) {
	p := NewProvider(ModeSignature)
	text := strings.Repeat("y", 280)

	got, err := p.Apply(context.Background(), text, "acct-1", "en", 280)
	require.NoError(t, err)
	assert.False(t, got.Applied)
	assert.Equal(t, text, got.Text)
}

func TestApplyOffMode(t *testing.T) {
	got, err := NewProvider(ModeOff).Apply(context.Background(), "hello", "acct-1", "en", 280)
	require.NoError(t, err)
	assert.False(t, got.Applied)
	assert.Equal(t, "hello", got.Text)
}
