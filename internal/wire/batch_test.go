package wire_test

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermodapp/hermod-backend/internal/domain"
	"github.com/hermodapp/hermod-backend/internal/wire"
)

func TestBatchRequest_Faults(t *testing.T) {
	t.Parallel()

	req := &wire.BatchRequest{
		Queue: []wire.QueueDirectiveEntry{
			{Device: "bad id!", Directive: domain.Directive{
				Kind:         domain.DirectiveNotification,
				Notification: &domain.Notification{Title: "t"},
			}},
			{Device: "YVRFU1RERVZJQ0U", Directive: domain.Directive{Kind: domain.DirectiveNotification}},
		},
		Register: []wire.RegisterDeviceEntry{
			{Device: "also bad!"},
		},
		Fetch: []wire.FetchDirectivesEntry{
			{Device: "YVRFU1RERVZJQ0U"},
		},
	}

	faults := req.Faults()

	// Every fault is reported, not just the first.
	require.Len(t, faults, 3)
	assert.Contains(t, faults[0], "queue directive entry 0")
	assert.Contains(t, faults[1], "queue directive entry 1")
	assert.Contains(t, faults[2], "register device entry 0")
}

func TestBatchRequest_Faults_Valid(t *testing.T) {
	t.Parallel()

	req := &wire.BatchRequest{
		Register: []wire.RegisterDeviceEntry{
			{Device: "YVRFU1RERVZJQ0U", PushToken: "token", Name: "Nexus One"},
		},
	}

	assert.Empty(t, req.Faults())
}

func TestBatchRequest_RoundTrip(t *testing.T) {
	t.Parallel()

	want := &wire.BatchRequest{
		Queue: []wire.QueueDirectiveEntry{{
			Device: "YVRFU1RERVZJQ0U",
			Directive: domain.Directive{
				Kind: domain.DirectiveSMS,
				SMS:  &domain.SMS{Number: "+15551234567", Message: "hello"},
			},
		}},
	}

	encoded, err := cbor.Marshal(want)
	require.NoError(t, err)

	got, err := wire.DecodeBatchRequest(encoded)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
