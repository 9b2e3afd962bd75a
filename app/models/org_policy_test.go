package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrgPolicyWordListRoundTrip(t *testing.T) {
	p := &OrgPolicy{AccountID: "acct-1", PolicyType: PolicyTypeContentFilter}
	require.NoError(t, p.SetProhibitedWordList([]string{"spoiler", "giveaway"}))

	words, err := p.ProhibitedWordList()
	require.NoError(t, err)
	assert.Equal(t, []string{"spoiler", "giveaway"}, words)
}

func TestOrgPolicyWordListEmpty(t *testing.T) {
	p := &OrgPolicy{}
	words, err := p.ProhibitedWordList()
	require.NoError(t, err)
	assert.Nil(t, words)

	p.ProhibitedWords = "   "
	words, err = p.ProhibitedWordList()
	require.NoError(t, err)
	assert.Nil(t, words)
}

func TestOrgPolicyWordListMalformed(t *testing.T) {
	p := &OrgPolicy{ProhibitedWords: "{broken"}
	_, err := p.ProhibitedWordList()
	assert.Error(t, err)
}

func TestAccountIsActive(t *testing.T) {
	assert.True(t, (&Account{Status: AccountStatusActive}).IsActive())
	assert.True(t, (&Account{Status: AccountStatusTrialing}).IsActive())
	assert.False(t, (&Account{Status: AccountStatusPastDue}).IsActive())
	assert.False(t, (&Account{Status: AccountStatusCanceled}).IsActive())
	assert.False(t, (&Account{Status: ""}).IsActive())
}
