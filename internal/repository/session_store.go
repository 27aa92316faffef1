package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/session"
)

const (
	skMeta          = "META#"
	skPrefixTurn    = "TURN#"
	turnRetention   = 30 * 24 * time.Hour // physical reclaim of turn items
	entitySession   = "session"
	turnSeqTemplate = "%010d"
)

// SessionStore keeps conversation turns in a single DynamoDB table:
//
//	PK=SESSION#<id> SK=META#        last activity, turn count, ttl
//	PK=SESSION#<id> SK=TURN#<seq>   one item per turn
//
// The meta item's `ttl` attribute lets DynamoDB reclaim idle sessions, but
// expiry is always checked against lastActivity before anything is returned.
type SessionStore struct {
	api       dynamodbAPI
	tableName string
	idleTTL   time.Duration
	now       func() time.Time
	closed    atomic.Bool
}

type SessionOption func(*SessionStore)

// WithSessionClock overrides time.Now.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionStore) { s.now = now }
}

// NewSessionStore creates a DynamoDB backed session.Store.
func NewSessionStore(api dynamodbAPI, tableName string, idleTTL time.Duration, opts ...SessionOption) (*SessionStore, error) {
	if err := validateTable(api, tableName); err != nil {
		return nil, err
	}
	if idleTTL <= 0 {
		idleTTL = session.DefaultIdleTTL
	}
	s := &SessionStore{api: api, tableName: tableName, idleTTL: idleTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// sessionPK returns the partition key for a session.
func sessionPK(id string) string {
	return "SESSION#" + id
}

// turnSK returns the sort key of the seq-th turn (1-based); zero padding keeps
// lexical and chronological order identical.
func turnSK(seq int64) string {
	return skPrefixTurn + fmt.Sprintf(turnSeqTemplate, seq)
}

type sessionMeta struct {
	ID           string
	LastActivity time.Time
	Turns        int64
}

func (s *SessionStore) cutoff(now time.Time) int64 {
	return now.Add(-s.idleTTL).UnixMilli()
}

func (s *SessionStore) expiresAt(now time.Time) int64 {
	return now.Add(s.idleTTL).Unix()
}

func (s *SessionStore) getMeta(ctx context.Context, id string) (sessionMeta, bool, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": strVal(sessionPK(id)),
			"SK": strVal(skMeta),
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return sessionMeta{}, false, fmt.Errorf("repository: get session meta: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return sessionMeta{}, false, nil
	}
	meta, err := itemToMeta(out.Item)
	if err != nil {
		return sessionMeta{}, false, fmt.Errorf("repository: decode session meta: %w", err)
	}
	return meta, true, nil
}

func (s *SessionStore) isLive(ctx context.Context, id string) (bool, error) {
	meta, found, err := s.getMeta(ctx, id)
	if err != nil || !found {
		return false, err
	}
	return !session.Expired(meta.LastActivity, s.now(), s.idleTTL), nil
}

// Create writes the meta item and the initial turns in one transaction.
func (s *SessionStore) Create(ctx context.Context, turns ...domain.ChatTurn) (string, error) {
	if s.closed.Load() {
		return "", session.ErrClosed
	}
	if err := session.ValidateTurns(turns); err != nil {
		return "", err
	}
	id, err := session.UniqueID(ctx, s.isLive)
	if err != nil {
		return "", fmt.Errorf("repository: Create: %w", err)
	}
	now := s.now()
	items := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName: aws.String(s.tableName),
			Item:      s.metaItem(id, now, int64(len(turns))),
			// An expired session may still physically exist; its id is free.
			ConditionExpression: aws.String("attribute_not_exists(PK) OR lastActivity < :cutoff"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":cutoff": numVal(s.cutoff(now)),
			},
		},
	}}
	items = append(items, s.turnPuts(id, 0, turns, now)...)

	if _, err := s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		return "", fmt.Errorf("repository: Create: %w", err)
	}
	return id, nil
}

// Append adds turns to a live session and refreshes its activity in one
// transaction. The turn counter doubles as an optimistic lock.
func (s *SessionStore) Append(ctx context.Context, id string, turns ...domain.ChatTurn) error {
	if s.closed.Load() {
		return session.ErrClosed
	}
	if err := session.ValidateTurns(turns); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	meta, found, err := s.getMeta(ctx, id)
	if err != nil {
		return fmt.Errorf("repository: Append: %w", err)
	}
	now := s.now()
	if !found || session.Expired(meta.LastActivity, now, s.idleTTL) {
		return session.ErrNotFound
	}

	next := meta.Turns + int64(len(turns))
	items := []types.TransactWriteItem{{
		Update: &types.Update{
			TableName: aws.String(s.tableName),
			Key: map[string]types.AttributeValue{
				"PK": strVal(sessionPK(id)),
				"SK": strVal(skMeta),
			},
			UpdateExpression:    aws.String("SET lastActivity = :now, turns = :next, #ttl = :ttl"),
			ConditionExpression: aws.String("turns = :prev AND lastActivity >= :cutoff"),
			ExpressionAttributeNames: map[string]string{
				"#ttl": "ttl",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":now":    numVal(now.UnixMilli()),
				":next":   numVal(next),
				":prev":   numVal(meta.Turns),
				":ttl":    numVal(s.expiresAt(now)),
				":cutoff": numVal(s.cutoff(now)),
			},
		},
	}}
	items = append(items, s.turnPuts(id, meta.Turns, turns, now)...)

	_, err = s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if isConditionFailed(err) {
			live, checkErr := s.isLive(ctx, id)
			if checkErr == nil && !live {
				return session.ErrNotFound
			}
			return fmt.Errorf("repository: Append: concurrent write to session: %w", err)
		}
		return fmt.Errorf("repository: Append: %w", err)
	}
	return nil
}

// Read refreshes the session and returns its last limit turns in
// chronological order (all turns when limit <= 0).
//
// Only turns 1..meta.turns are read: an expired id that was reused may still
// hold turn items of the previous session above that range.
func (s *SessionStore) Read(ctx context.Context, id string, limit int) ([]domain.ChatTurn, error) {
	id = strings.TrimSpace(id)
	attrs, err := s.touch(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := intAttr(attrs, "turns")
	if err != nil {
		return nil, fmt.Errorf("repository: Read meta: %w", err)
	}
	if count == 0 {
		return []domain.ChatTurn{}, nil
	}

	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :first AND :last"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":    strVal(sessionPK(id)),
			":first": strVal(turnSK(1)),
			":last":  strVal(turnSK(count)),
		},
		// Read newest first so LIMIT favors the most recent context.
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}

	var turns []domain.ChatTurn
	for {
		out, err := s.api.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("repository: Read query: %w", err)
		}
		for _, item := range out.Items {
			turn, err := itemToTurn(item)
			if err != nil {
				return nil, fmt.Errorf("repository: Read unmarshal: %w", err)
			}
			turns = append(turns, turn)
		}
		if limit > 0 || len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
	// Reverse to chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Exists refreshes and reports whether the session is live.
func (s *SessionStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.touch(ctx, strings.TrimSpace(id))
	if errors.Is(err, session.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List scans the live meta items and orders them by most recent activity.
// It does not refresh any session.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, session.ErrClosed
	}
	now := s.now()
	in := &dynamodb.ScanInput{
		TableName:        aws.String(s.tableName),
		FilterExpression: aws.String("entity = :entity AND lastActivity >= :cutoff"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":entity": strVal(entitySession),
			":cutoff": numVal(s.cutoff(now)),
		},
	}
	var metas []sessionMeta
	for {
		out, err := s.api.Scan(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("repository: List scan: %w", err)
		}
		for _, item := range out.Items {
			meta, err := itemToMeta(item)
			if err != nil {
				return nil, fmt.Errorf("repository: List unmarshal: %w", err)
			}
			metas = append(metas, meta)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
	sort.Slice(metas, func(i, j int) bool {
		if !metas[i].LastActivity.Equal(metas[j].LastActivity) {
			return metas[i].LastActivity.After(metas[j].LastActivity)
		}
		return metas[i].ID < metas[j].ID
	})
	ids := make([]string, 0, len(metas))
	for _, m := range metas {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Close marks the store closed. The DynamoDB client is shared and stays open;
// item expiry is left to the table TTL.
func (s *SessionStore) Close(context.Context) error {
	s.closed.Store(true)
	return nil
}

// touch refreshes lastActivity of a live session and returns the updated
// meta item; unknown and expired sessions yield session.ErrNotFound.
func (s *SessionStore) touch(ctx context.Context, id string) (map[string]types.AttributeValue, error) {
	if s.closed.Load() {
		return nil, session.ErrClosed
	}
	if id == "" {
		return nil, session.ErrNotFound
	}
	now := s.now()
	out, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": strVal(sessionPK(id)),
			"SK": strVal(skMeta),
		},
		UpdateExpression:    aws.String("SET lastActivity = :now, #ttl = :ttl"),
		ConditionExpression: aws.String("attribute_exists(PK) AND lastActivity >= :cutoff"),
		ExpressionAttributeNames: map[string]string{
			"#ttl": "ttl",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now":    numVal(now.UnixMilli()),
			":ttl":    numVal(s.expiresAt(now)),
			":cutoff": numVal(s.cutoff(now)),
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("repository: touch session: %w", err)
	}
	if out == nil {
		return nil, nil
	}
	return out.Attributes, nil
}

func (s *SessionStore) metaItem(id string, now time.Time, turns int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":           strVal(sessionPK(id)),
		"SK":           strVal(skMeta),
		"entity":       strVal(entitySession),
		"sessionId":    strVal(id),
		"createdAt":    strVal(now.UTC().Format(time.RFC3339)),
		"lastActivity": numVal(now.UnixMilli()),
		"turns":        numVal(turns),
		"ttl":          numVal(s.expiresAt(now)),
	}
}

func (s *SessionStore) turnPuts(id string, after int64, turns []domain.ChatTurn, now time.Time) []types.TransactWriteItem {
	out := make([]types.TransactWriteItem, 0, len(turns))
	for i, t := range turns {
		created := t.CreatedAt
		if created.IsZero() {
			created = now
		}
		out = append(out, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(s.tableName),
				Item: map[string]types.AttributeValue{
					"PK":        strVal(sessionPK(id)),
					"SK":        strVal(turnSK(after + int64(i) + 1)),
					"role":      strVal(string(t.Role)),
					"text":      strVal(t.Message),
					"createdAt": strVal(created.UTC().Format(time.RFC3339Nano)),
					"ttl":       numVal(now.Add(turnRetention).Unix()),
				},
			},
		})
	}
	return out
}

func itemToMeta(item map[string]types.AttributeValue) (sessionMeta, error) {
	id, err := strAttr(item, "sessionId")
	if err != nil {
		return sessionMeta{}, err
	}
	last, err := intAttr(item, "lastActivity")
	if err != nil {
		return sessionMeta{}, err
	}
	turns, err := intAttr(item, "turns")
	if err != nil {
		return sessionMeta{}, err
	}
	return sessionMeta{ID: id, LastActivity: time.UnixMilli(last), Turns: turns}, nil
}

func itemToTurn(item map[string]types.AttributeValue) (domain.ChatTurn, error) {
	role, err := strAttr(item, "role")
	if err != nil {
		return domain.ChatTurn{}, err
	}
	text, err := strAttr(item, "text")
	if err != nil {
		return domain.ChatTurn{}, err
	}
	created, _ := time.Parse(time.RFC3339Nano, optStrAttr(item, "createdAt"))
	return domain.ChatTurn{Role: domain.Role(role), Message: text, CreatedAt: created}, nil
}
