package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome_IsError(t *testing.T) {
	assert.False(t, OutcomeCreated.IsError())
	assert.False(t, OutcomeUpdated.IsError())
	assert.True(t, OutcomeNotFound.IsError())
	assert.True(t, OutcomeUnreadable.IsError())
	assert.True(t, OutcomeStoreError.IsError())
	assert.True(t, OutcomeCancelled.IsError())
}

func TestOutcome_Validate(t *testing.T) {
	for _, o := range AllOutcomes {
		assert.NoError(t, o.Validate(), "outcome %q", o)
	}

	err := Outcome("exploded").Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownOutcome))
}

func TestFileResult_Reason(t *testing.T) {
	ok := FileResult{Path: "/a.fits", Outcome: OutcomeCreated}
	assert.Equal(t, "created", ok.Reason())

	failed := FileResult{Path: "/b.fits", Outcome: OutcomeUnreadable, Err: errors.New("missing END card")}
	assert.Equal(t, "unreadable: missing END card", failed.Reason())
}

func TestFileResult_Validate(t *testing.T) {
	assert.ErrorIs(t, FileResult{Outcome: OutcomeCreated}.Validate(), ErrEmptyPath)
	assert.NoError(t, FileResult{Path: "/a.fits", Outcome: OutcomeUpdated}.Validate())
}

func TestClientInfo_Validate(t *testing.T) {
	tests := []struct {
		name    string
		info    ClientInfo
		wantErr error
	}{
		{"valid", ClientInfo{Hostname: "obs", MAC: "3c:22:fb:01:02:03"}, nil},
		{"unknown mac is well formed", ClientInfo{Hostname: "obs", MAC: UnknownMAC}, nil},
		{"uppercase mac", ClientInfo{Hostname: "obs", MAC: "3C:22:FB:01:02:03"}, ErrInvalidMAC},
		{"dash separated", ClientInfo{Hostname: "obs", MAC: "3c-22-fb-01-02-03"}, ErrInvalidMAC},
		{"missing hostname", ClientInfo{MAC: UnknownMAC}, ErrEmptyHostname},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClientInfo_ShortMAC(t *testing.T) {
	assert.Equal(t, "02:03", ClientInfo{MAC: "3c:22:fb:01:02:03"}.ShortMAC())
	assert.Equal(t, "ab", ClientInfo{MAC: "ab"}.ShortMAC())
}
