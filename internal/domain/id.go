package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// UserID is an opaque identifier handed to us by the identity provider.
type UserID string

// MaxDeviceIDLength bounds the encoded form of a device id.
const MaxDeviceIDLength = 48

// DeviceID is the URL-safe base64 encoding of a provider-specific device
// identity. Always validated at construction; compare by value.
type DeviceID string

func ParseDeviceID(s string) (DeviceID, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDeviceID)
	}

	if len(s) > MaxDeviceIDLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidDeviceID, MaxDeviceIDLength)
	}

	enc := base64.RawURLEncoding
	if strings.ContainsRune(s, '=') {
		enc = base64.URLEncoding
	}

	if _, err := enc.DecodeString(s); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidDeviceID, err)
	}

	return DeviceID(s), nil
}

const (
	identityKindAndroidID = 'a'
	identityKindTelephony = 't'
	identityKindWifiMAC   = 'w'
)

// DeviceIdentity is the raw hardware identity a client derives its device id
// from. Exactly one field must be set.
type DeviceIdentity struct {
	AndroidID string // Settings.Secure.ANDROID_ID
	Telephony string // IMEI or MEID
	WifiMAC   string
}

func (ident DeviceIdentity) DeviceID() (DeviceID, error) {
	var kind byte
	var value string

	for _, candidate := range []struct {
		kind  byte
		value string
	}{
		{identityKindAndroidID, ident.AndroidID},
		{identityKindTelephony, ident.Telephony},
		{identityKindWifiMAC, ident.WifiMAC},
	} {
		if candidate.value == "" {
			continue
		}
		if kind != 0 {
			return "", fmt.Errorf("%w: more than one identity set", ErrInvalidDeviceID)
		}
		kind = candidate.kind
		value = candidate.value
	}

	if kind == 0 {
		return "", fmt.Errorf("%w: no identity set", ErrInvalidDeviceID)
	}

	raw := append([]byte{kind}, value...)
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	if len(encoded) > MaxDeviceIDLength {
		return "", fmt.Errorf("%w: identity too long", ErrInvalidDeviceID)
	}

	return DeviceID(encoded), nil
}
