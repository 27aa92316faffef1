package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/pinned"
)

const (
	pinnedEventPK    = "PINNED#EVENT"
	pinnedLocationPK = "PINNED#LOCATION"
)

// PinnedStore keeps curated entries in the same table as sessions, one
// partition per entry kind with the entry id as sort key.
type PinnedStore struct {
	api       dynamodbAPI
	tableName string
}

var _ pinned.Store = (*PinnedStore)(nil)

func NewPinnedStore(api dynamodbAPI, tableName string) (*PinnedStore, error) {
	if err := validateTable(api, tableName); err != nil {
		return nil, err
	}
	return &PinnedStore{api: api, tableName: tableName}, nil
}

func (s *PinnedStore) SaveEvent(ctx context.Context, ev domain.Event) error {
	item := map[string]types.AttributeValue{
		"PK":       strVal(pinnedEventPK),
		"SK":       strVal(ev.ID),
		"name":     strVal(ev.Name),
		"location": strVal(ev.Location),
		"priority": numVal(int64(ev.Priority)),
	}
	putOptional(item, "description", ev.Description)
	putOptional(item, "category", ev.Category)
	putOptional(item, "url", ev.URL)
	putOptional(item, "rating", ev.Rating)
	if ev.Date != nil {
		item["date"] = strVal(ev.Date.UTC().Format(time.RFC3339))
	}
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: SaveEvent: %w", err)
	}
	return nil
}

func (s *PinnedStore) ListEvents(ctx context.Context) ([]domain.Event, error) {
	items, err := s.queryPartition(ctx, pinnedEventPK)
	if err != nil {
		return nil, fmt.Errorf("repository: ListEvents: %w", err)
	}
	events := make([]domain.Event, 0, len(items))
	for _, item := range items {
		ev, err := itemToEvent(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListEvents unmarshal: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *PinnedStore) DeleteEvent(ctx context.Context, id string) error {
	return s.delete(ctx, pinnedEventPK, id)
}

func (s *PinnedStore) SaveLocation(ctx context.Context, loc domain.Location) error {
	item := map[string]types.AttributeValue{
		"PK":   strVal(pinnedLocationPK),
		"SK":   strVal(loc.ID),
		"name": strVal(loc.Name),
		"city": strVal(loc.City),
	}
	putOptional(item, "description", loc.Description)
	putOptional(item, "category", loc.Category)
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: SaveLocation: %w", err)
	}
	return nil
}

func (s *PinnedStore) ListLocations(ctx context.Context) ([]domain.Location, error) {
	items, err := s.queryPartition(ctx, pinnedLocationPK)
	if err != nil {
		return nil, fmt.Errorf("repository: ListLocations: %w", err)
	}
	locs := make([]domain.Location, 0, len(items))
	for _, item := range items {
		id, err := strAttr(item, "SK")
		if err != nil {
			return nil, fmt.Errorf("repository: ListLocations unmarshal: %w", err)
		}
		locs = append(locs, domain.Location{
			ID:          id,
			Name:        optStrAttr(item, "name"),
			City:        optStrAttr(item, "city"),
			Description: optStrAttr(item, "description"),
			Category:    optStrAttr(item, "category"),
		})
	}
	return locs, nil
}

func (s *PinnedStore) DeleteLocation(ctx context.Context, id string) error {
	return s.delete(ctx, pinnedLocationPK, id)
}

func (s *PinnedStore) queryPartition(ctx context.Context, pk string) ([]map[string]types.AttributeValue, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": strVal(pk),
		},
	}
	var items []map[string]types.AttributeValue
	for {
		out, err := s.api.Query(ctx, in)
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (s *PinnedStore) delete(ctx context.Context, pk, id string) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": strVal(pk),
			"SK": strVal(id),
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return pinned.ErrNotFound
		}
		return fmt.Errorf("repository: delete %s: %w", pk, err)
	}
	return nil
}

func putOptional(item map[string]types.AttributeValue, key, value string) {
	if value != "" {
		item[key] = strVal(value)
	}
}

func itemToEvent(item map[string]types.AttributeValue) (domain.Event, error) {
	id, err := strAttr(item, "SK")
	if err != nil {
		return domain.Event{}, err
	}
	ev := domain.Event{
		ID:          id,
		Name:        optStrAttr(item, "name"),
		Location:    optStrAttr(item, "location"),
		Description: optStrAttr(item, "description"),
		Category:    optStrAttr(item, "category"),
		URL:         optStrAttr(item, "url"),
		Rating:      optStrAttr(item, "rating"),
	}
	if p, err := intAttr(item, "priority"); err == nil {
		ev.Priority = int(p)
	}
	if raw := optStrAttr(item, "date"); raw != "" {
		d, err := domain.ParseDate(raw)
		if err != nil {
			return domain.Event{}, fmt.Errorf("parse date: %w", err)
		}
		ev.Date = &d
	}
	return ev, nil
}
