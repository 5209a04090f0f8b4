package domain_test

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermodapp/hermod-backend/internal/domain"
)

func mustEncodeRaw(t *testing.T, v interface{}) []byte {
	t.Helper()

	bb, err := cbor.Marshal(v)
	require.NoError(t, err)
	return bb
}

func TestDirective_Validate(t *testing.T) {
	t.Parallel()

	tt := map[string]struct {
		directive domain.Directive

		ok bool
	}{
		"notification": {domain.Directive{
			Kind:         domain.DirectiveNotification,
			Notification: &domain.Notification{Title: "ping", Text: "you have mail"},
		}, true},
		"vibration": {domain.Directive{
			Kind:      domain.DirectiveVibration,
			Vibration: &domain.Vibration{PatternMs: []int64{0, 200, 100, 200}},
		}, true},
		"sms": {domain.Directive{
			Kind: domain.DirectiveSMS,
			SMS:  &domain.SMS{Number: "+15551234567", Message: "on my way"},
		}, true},
		"no payload": {domain.Directive{
			Kind: domain.DirectiveNotification,
		}, false},
		"two payloads": {domain.Directive{
			Kind:         domain.DirectiveNotification,
			Notification: &domain.Notification{Title: "ping"},
			SMS:          &domain.SMS{Number: "+15551234567"},
		}, false},
		"kind does not match payload": {domain.Directive{
			Kind: domain.DirectiveVibration,
			SMS:  &domain.SMS{Number: "+15551234567"},
		}, false},
		"unknown kind": {domain.Directive{
			Kind:         "carrier-pigeon",
			Notification: &domain.Notification{Title: "coo"},
		}, false},
		"empty vibration pattern": {domain.Directive{
			Kind:      domain.DirectiveVibration,
			Vibration: &domain.Vibration{},
		}, false},
	}

	for scenario, tc := range tt {
		tc := tc
		t.Run(scenario, func(t *testing.T) {
			t.Parallel()

			err := tc.directive.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDecodeDirective(t *testing.T) {
	t.Parallel()

	want := domain.Directive{
		Kind:         domain.DirectiveNotification,
		Notification: &domain.Notification{Title: "ping", Text: "you have mail"},
	}

	payload, err := want.Encode()
	require.NoError(t, err)

	got, err := domain.DecodeDirective(payload)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeDirective_Corrupt(t *testing.T) {
	t.Parallel()

	tt := map[string][]byte{
		"empty":                 {},
		"garbage":               []byte("\xffnot cbor at all"),
		"wrong shape":           {0x01}, // a bare integer
		"valid cbor no payload": mustEncodeRaw(t, map[string]string{"kind": "notification"}),
	}

	for scenario, payload := range tt {
		payload := payload
		t.Run(scenario, func(t *testing.T) {
			t.Parallel()

			_, err := domain.DecodeDirective(payload)
			assert.Error(t, err)
		})
	}
}
