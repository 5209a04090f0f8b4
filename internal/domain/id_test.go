package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermodapp/hermod-backend/internal/domain"
)

func TestParseDeviceID(t *testing.T) {
	t.Parallel()

	tt := map[string]struct {
		id string

		ok bool
	}{
		"plain base64url":         {"YVRFU1RERVZJQ0U", true},
		"padded base64url":        {"YVRFU1RERVZJQ0U=", true},
		"url-safe characters":     {"a-b_c123", true},
		"empty":                   {"", false},
		"too long":                {strings.Repeat("A", 49), false},
		"exactly at length bound": {strings.Repeat("A", 48), true},
		"invalid characters":      {"not+valid/base64!", false},
		"stray padding":           {"YQ=A", false},
	}

	for scenario, tc := range tt {
		tc := tc
		t.Run(scenario, func(t *testing.T) {
			t.Parallel()

			id, err := domain.ParseDeviceID(tc.id)
			if !tc.ok {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidDeviceID)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, domain.DeviceID(tc.id), id)
		})
	}
}

func TestDeviceIdentity_DeviceID(t *testing.T) {
	t.Parallel()

	tt := map[string]struct {
		identity domain.DeviceIdentity

		ok bool
	}{
		"android id":       {domain.DeviceIdentity{AndroidID: "9774d56d682e549c"}, true},
		"imei":             {domain.DeviceIdentity{Telephony: "490154203237518"}, true},
		"wifi mac":         {domain.DeviceIdentity{WifiMAC: "00:11:22:33:44:55"}, true},
		"nothing set":      {domain.DeviceIdentity{}, false},
		"two set":          {domain.DeviceIdentity{AndroidID: "abc", WifiMAC: "00:11"}, false},
		"identity too big": {domain.DeviceIdentity{AndroidID: strings.Repeat("x", 64)}, false},
	}

	for scenario, tc := range tt {
		tc := tc
		t.Run(scenario, func(t *testing.T) {
			t.Parallel()

			id, err := tc.identity.DeviceID()
			if !tc.ok {
				assert.ErrorIs(t, err, domain.ErrInvalidDeviceID)
				return
			}

			require.NoError(t, err)

			// The encoding must itself be a valid device id.
			parsed, err := domain.ParseDeviceID(string(id))
			require.NoError(t, err)
			assert.Equal(t, id, parsed)
		})
	}
}

func TestDeviceIdentity_DistinctKinds(t *testing.T) {
	t.Parallel()

	// The same raw value seen through different providers must not collide.
	a, err := domain.DeviceIdentity{AndroidID: "123456"}.DeviceID()
	require.NoError(t, err)

	b, err := domain.DeviceIdentity{Telephony: "123456"}.DeviceID()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
