package services

import (
	"context"
	"errors"
	"testing"

	"proofofcrab/issuance"
	"proofofcrab/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ownedFrame = &models.Frame{ID: "frame-1", ProofItemID: "item-1"}

func TestOwnershipMatchOnSecondPageStopsPaging(t *testing.T) {
	owners := &pagedOwners{pages: map[string]issuance.OwnersPage{
		"":   {Results: []issuance.Owner{{Address: "0xaaa", Quantity: 1}}, HasMore: true, Cursor: "c2"},
		"c2": {Results: []issuance.Owner{
			{Address: "0xbbb", Quantity: 3},
			{Address: "0xABCDEF", Quantity: 2},
		}, HasMore: true, Cursor: "c3"},
		"c3": {Results: []issuance.Owner{{Address: "0xccc", Quantity: 1}}},
	}}
	gate := NewOwnershipGate(owners, 1)

	owned, err := gate.Check(context.Background(), ownedFrame, "0xabcdef")
	require.NoError(t, err)
	assert.True(t, owned)
	assert.Equal(t, []string{"", "c2"}, owners.fetched)
}

func TestOwnershipEmptyAddressSkipsService(t *testing.T) {
	owners := &pagedOwners{}
	gate := NewOwnershipGate(owners, 1)

	owned, err := gate.Check(context.Background(), ownedFrame)
	require.NoError(t, err)
	assert.False(t, owned)

	owned, err = gate.Check(context.Background(), ownedFrame, "", "  ")
	require.NoError(t, err)
	assert.False(t, owned)
	assert.Empty(t, owners.fetched)
}

func TestOwnershipBelowThresholdKeepsScanning(t *testing.T) {
	owners := &pagedOwners{pages: map[string]issuance.OwnersPage{
		"":     {Results: []issuance.Owner{{Address: "0xabc", Quantity: 1}}, HasMore: true, Cursor: "next"},
		"next": {Results: []issuance.Owner{{Address: "0xdef", Quantity: 5}}},
	}}
	gate := NewOwnershipGate(owners, 2)

	owned, err := gate.Check(context.Background(), ownedFrame, "0xABC")
	require.NoError(t, err)
	assert.False(t, owned)
	assert.Len(t, owners.fetched, 2)

	owners.fetched = nil
	owned, err = gate.Check(context.Background(), ownedFrame, "0xabc", "0xDEF")
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestOwnershipTerminatesOnMissingOrRepeatedCursor(t *testing.T) {
	cases := map[string]map[string]issuance.OwnersPage{
		"empty cursor": {
			"": {HasMore: true},
		},
		"repeated cursor": {
			"":     {HasMore: true, Cursor: "loop"},
			"loop": {HasMore: true, Cursor: "loop"},
		},
	}
	for name, pages := range cases {
		t.Run(name, func(t *testing.T) {
			owners := &pagedOwners{pages: pages}
			owned, err := NewOwnershipGate(owners, 1).Check(context.Background(), ownedFrame, "0xabc")
			require.NoError(t, err)
			assert.False(t, owned)
			assert.LessOrEqual(t, len(owners.fetched), 2)
		})
	}
}

func TestOwnershipFrameWithoutItem(t *testing.T) {
	owners := &pagedOwners{}
	owned, err := NewOwnershipGate(owners, 1).Check(context.Background(), &models.Frame{ID: "f"}, "0xabc")
	require.NoError(t, err)
	assert.False(t, owned)
	assert.Empty(t, owners.fetched)
}

func TestOwnershipPropagatesServiceErrors(t *testing.T) {
	owners := &pagedOwners{err: issuance.ErrAuthorization}
	_, err := NewOwnershipGate(owners, 1).Check(context.Background(), ownedFrame, "0xabc")
	assert.True(t, errors.Is(err, issuance.ErrAuthorization))
}
