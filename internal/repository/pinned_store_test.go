package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/pinned"
)

func TestPinnedStore_SaveEvent(t *testing.T) {
	db := &fakeDynamo{}
	s, err := NewPinnedStore(db, "test-table")
	require.NoError(t, err)

	day := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	err = s.SaveEvent(context.Background(), domain.Event{ID: "e1", Name: "Louvre", Location: "Paris", Date: &day, Priority: 100})
	require.NoError(t, err)

	item := db.lastPutInput.Item
	require.Equal(t, pinnedEventPK, item["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "e1", item["SK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "2026-10-15T00:00:00Z", item["date"].(*types.AttributeValueMemberS).Value)
	require.NotContains(t, item, "url")
}

func TestPinnedStore_ListEvents(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
		{
			"PK":       strVal(pinnedEventPK),
			"SK":       strVal("e1"),
			"name":     strVal("Louvre"),
			"location": strVal("Paris"),
			"category": strVal("museum"),
			"priority": numVal(100),
			"date":     strVal("2026-10-15T00:00:00Z"),
		},
		{"PK": strVal(pinnedEventPK), "SK": strVal("e2"), "name": strVal("Walk")},
		{"PK": strVal(pinnedEventPK), "SK": strVal("e3"), "name": strVal("Opera"), "date": strVal("2026-11-23")},
	}}}
	s, err := NewPinnedStore(db, "test-table")
	require.NoError(t, err)

	events, err := s.ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, "museum", events[0].Category)
	require.Equal(t, 100, events[0].Priority)
	require.NotNil(t, events[0].Date)
	require.Nil(t, events[1].Date)
	require.Equal(t, "2026-11-23", events[2].Date.Format(time.DateOnly))
	require.Equal(t, pinnedEventPK, db.lastQueryIn.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value)
}

func TestPinnedStore_Delete(t *testing.T) {
	db := &fakeDynamo{}
	s, err := NewPinnedStore(db, "test-table")
	require.NoError(t, err)
	require.NoError(t, s.DeleteLocation(context.Background(), "l1"))
	require.Equal(t, pinnedLocationPK, db.lastDeleteIn.Key["PK"].(*types.AttributeValueMemberS).Value)

	db.deleteErr = &types.ConditionalCheckFailedException{}
	require.ErrorIs(t, s.DeleteEvent(context.Background(), "e1"), pinned.ErrNotFound)

	db.deleteErr = errors.New("boom")
	err = s.DeleteEvent(context.Background(), "e1")
	require.Error(t, err)
	require.False(t, errors.Is(err, pinned.ErrNotFound))
}

func TestPinnedStore_Locations(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
		{"PK": strVal(pinnedLocationPK), "SK": strVal("l1"), "name": strVal("Montmartre"), "city": strVal("Paris")},
	}}}
	s, err := NewPinnedStore(db, "test-table")
	require.NoError(t, err)

	require.NoError(t, s.SaveLocation(context.Background(), domain.Location{ID: "l1", Name: "Montmartre", City: "Paris"}))
	require.Equal(t, "Paris", db.lastPutInput.Item["city"].(*types.AttributeValueMemberS).Value)

	locs, err := s.ListLocations(context.Background())
	require.NoError(t, err)
	require.Equal(t, []domain.Location{{ID: "l1", Name: "Montmartre", City: "Paris"}}, locs)
}
