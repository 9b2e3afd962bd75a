package approval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeDisclosure struct {
	required    bool
	requiredErr error

	applyFn  func(text string) Applied
	applyErr error
}

func (f *fakeDisclosure) IsRequired(ctx context.Context, accountID, platform string) (bool, error) {
	return f.required, f.requiredErr
}

func (f *fakeDisclosure) Apply(ctx context.Context, text, accountID, lang string, platformLimit int) (Applied, error) {
	if f.applyErr != nil {
		return Applied{}, f.applyErr
	}
	if f.applyFn != nil {
		return f.applyFn(text), nil
	}
	return Applied{Text: text, Applied: false}, nil
}

func TestHasTransparencyMarker(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"Great point! 🤖", true},
		{"This reply was AI generated", true},
		{"respuesta generada por IA", true},
		{"I am just a humble bot", true},
		{"automated response follows", true},
		{"respuesta automatizada", true},
		{"plain human reply", false},
		{"robotics is fun", false},
		{"maintain the code", false},
		{"", false},
		{"   ", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HasTransparencyMarker(tc.text), "text %q", tc.text)
	}
}

func TestEnforceNotRequiredPassesThrough(t *testing.T) {
	e := NewTransparencyEnforcer(&fakeDisclosure{required: false})
	res := e.Enforce(context.Background(), "hello", "acct-1", "twitter", "en", 280)
	assert.Empty(t, res.Reason)
	assert.Equal(t, "hello", res.Text)
	assert.False(t, res.Applied)
}

func TestEnforceAppliesAndVerifies(t *testing.T) {
	e := NewTransparencyEnforcer(&fakeDisclosure{
		required: true,
		applyFn: func(text string) Applied {
			return Applied{Text: text + " 🤖", Applied: true}
		},
	})
	res := e.Enforce(context.Background(), "hello", "acct-1", "twitter", "en", 280)
	assert.Empty(t, res.Reason)
	assert.True(t, res.Applied)
	assert.Equal(t, "hello 🤖", res.Text)
}

func TestEnforceAcceptsPreMarkedText(t *testing.T) {
	// Apply would fail, but the text already carries a marker so it is
	// never called.
	e := NewTransparencyEnforcer(&fakeDisclosure{required: true, applyErr: errors.New("boom")})
	res := e.Enforce(context.Background(), "already AI generated 🤖", "acct-1", "twitter", "en", 280)
	assert.Empty(t, res.Reason)
	assert.True(t, res.Applied)
}

func TestEnforceDeniesOnRequirementError(t *testing.T) {
	e := NewTransparencyEnforcer(&fakeDisclosure{requiredErr: errors.New("provider down")})
	res := e.Enforce(context.Background(), "hello", "acct-1", "twitter", "en", 280)
	assert.Equal(t, TransparencyProviderError, res.Reason)
	assert.Equal(t, "hello", res.Text)
}

func TestEnforceDeniesOnApplyError(t *testing.T) {
	e := NewTransparencyEnforcer(&fakeDisclosure{required: true, applyErr: errors.New("boom")})
	res := e.Enforce(context.Background(), "hello", "acct-1", "twitter", "en", 280)
	assert.Equal(t, TransparencyProviderError, res.Reason)
}

func TestEnforceDeniesUnmodifiedText(t *testing.T) {
	e := NewTransparencyEnforcer(&fakeDisclosure{
		required: true,
		applyFn: func(text string) Applied {
			return Applied{Text: text, Applied: true}
		},
	})
	res := e.Enforce(context.Background(), "hello", "acct-1", "twitter", "en", 280)
	assert.Equal(t, TransparencyNotApplied, res.Reason)
}

func TestEnforceDeniesWhenMarkerMissing(t *testing.T) {
	// Provider claims success but injected nothing recognizable.
	e := NewTransparencyEnforcer(&fakeDisclosure{
		required: true,
		applyFn: func(text string) Applied {
			return Applied{Text: text + " (disclosure)", Applied: true}
		},
	})
	res := e.Enforce(context.Background(), "hello", "acct-1", "twitter", "en", 280)
	assert.Equal(t, TransparencyMarkerMissing, res.Reason)
	assert.Equal(t, "hello", res.Text, "denied enforcement returns the original text")
}
