package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
)

// DynamoAPI is the subset of the DynamoDB client the store uses
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// dynamoEntry is the item layout in the entries table (partition key "id")
type dynamoEntry struct {
	ID             string   `dynamodbav:"id"`
	Mood           int      `dynamodbav:"mood"`
	Note           string   `dynamodbav:"note"`
	CreatedAt      string   `dynamodbav:"createdAt"` // dynamoTimeLayout, UTC
	SentimentScore *float64 `dynamodbav:"sentimentScore,omitempty"`
}

// batchRetries caps how often a batch with unprocessed items is resubmitted
const batchRetries = 5

// DynamoStore keeps entries in a DynamoDB table
type DynamoStore struct {
	client    DynamoAPI
	tableName string
	backoff   time.Duration
}

// NewDynamoStore creates a store using the default AWS credential chain
func NewDynamoStore(ctx context.Context, tableName string) (*DynamoStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewDynamoStoreWithClient(dynamodb.NewFromConfig(cfg), tableName), nil
}

// NewDynamoStoreWithClient wraps an existing client
func NewDynamoStoreWithClient(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName, backoff: 500 * time.Millisecond}
}

func (d *DynamoStore) Close() error {
	return nil
}

func (d *DynamoStore) Insert(ctx context.Context, entry *MoodEntry) error {
	prepareInsert(entry)

	item, err := attributevalue.MarshalMap(toDynamo(entry))
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to store entry: %w", err)
	}
	return nil
}

func (d *DynamoStore) Update(ctx context.Context, entry *MoodEntry) error {
	values := map[string]types.AttributeValue{
		":mood": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", entry.Mood.Rank)},
		":note": &types.AttributeValueMemberS{Value: entry.Note},
	}
	expr := "SET #mood = :mood, #note = :note"
	if entry.SentimentScore != nil {
		expr += ", #score = :score"
		values[":score"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%g", *entry.SentimentScore)}
	} else {
		expr += " REMOVE #score"
	}

	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(d.tableName),
		Key:                 idKey(entry.ID),
		UpdateExpression:    aws.String(expr),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeNames: map[string]string{
			"#mood":  "mood",
			"#note":  "note",
			"#score": "sentimentScore",
		},
		ExpressionAttributeValues: values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, entry.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return nil
}

func (d *DynamoStore) Get(ctx context.Context, id string) (*MoodEntry, error) {
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key:       idKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var item dynamoEntry
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return fromDynamo(item)
}

func (d *DynamoStore) GetByDate(ctx context.Context, date time.Time) (*MoodEntry, error) {
	start, end := dayBounds(date)
	entries, err := d.ListBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, start.Format("2006-01-02"))
	}
	return &entries[0], nil
}

func (d *DynamoStore) List(ctx context.Context, limit, offset int) ([]MoodEntry, error) {
	entries, err := d.scan(ctx, nil)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return entries, nil
	}
	if offset >= len(entries) {
		return nil, nil
	}
	entries = entries[offset:]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (d *DynamoStore) ListBetween(ctx context.Context, start, end time.Time) ([]MoodEntry, error) {
	return d.scan(ctx, &dynamodb.ScanInput{
		FilterExpression: aws.String("#createdAt >= :start AND #createdAt < :end"),
		ExpressionAttributeNames: map[string]string{
			"#createdAt": "createdAt",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":start": &types.AttributeValueMemberS{Value: formatTime(start)},
			":end":   &types.AttributeValueMemberS{Value: formatTime(end)},
		},
	})
}

func (d *DynamoStore) Delete(ctx context.Context, id string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(d.tableName),
		Key:                 idKey(id),
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}

// DeleteAll removes every entry in batches of 25, the BatchWriteItem maximum.
// Unprocessed deletes are resubmitted with a growing backoff.
func (d *DynamoStore) DeleteAll(ctx context.Context) error {
	entries, err := d.scan(ctx, nil)
	if err != nil {
		return err
	}

	const batchSize = 25
	for i := 0; i < len(entries); i += batchSize {
		end := i + batchSize
		if end > len(entries) {
			end = len(entries)
		}

		requests := make([]types.WriteRequest, 0, end-i)
		for _, e := range entries[i:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: idKey(e.ID)},
			})
		}

		if err := d.writeBatch(ctx, map[string][]types.WriteRequest{d.tableName: requests}); err != nil {
			return err
		}
	}

	logrus.WithField("count", len(entries)).Info("Deleted all mood entries")
	return nil
}

// writeBatch submits a batch and retries whatever DynamoDB reports as unprocessed
func (d *DynamoStore) writeBatch(ctx context.Context, items map[string][]types.WriteRequest) error {
	for retry := 0; ; retry++ {
		result, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: items,
		})
		if err != nil {
			return fmt.Errorf("failed to delete entries batch: %w", err)
		}
		if result == nil || len(result.UnprocessedItems[d.tableName]) == 0 {
			return nil
		}

		items = result.UnprocessedItems
		remaining := len(items[d.tableName])
		if retry+1 >= batchRetries {
			return fmt.Errorf("failed to delete entries batch: %d items unprocessed after %d attempts", remaining, batchRetries)
		}

		backoff := time.Duration(retry+1) * d.backoff
		logrus.WithFields(logrus.Fields{
			"unprocessed": remaining,
			"backoff":     backoff,
		}).Warn("Retrying unprocessed deletes")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func (d *DynamoStore) MoodCounts(ctx context.Context, start, end time.Time) ([]MoodCount, error) {
	entries, err := d.ListBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	byRank := make(map[int]int)
	for _, e := range entries {
		byRank[e.Mood.Rank]++
	}
	return sortCounts(byRank), nil
}

// scan pages through the table and returns entries newest first, ties ordered by id
func (d *DynamoStore) scan(ctx context.Context, input *dynamodb.ScanInput) ([]MoodEntry, error) {
	if input == nil {
		input = &dynamodb.ScanInput{}
	}
	input.TableName = aws.String(d.tableName)

	var entries []MoodEntry
	for {
		result, err := d.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entries: %w", err)
		}

		for _, raw := range result.Items {
			var item dynamoEntry
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
			}
			entry, err := fromDynamo(item)
			if err != nil {
				return nil, fmt.Errorf("failed to read entry %s: %w", item.ID, err)
			}
			entries = append(entries, *entry)
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

func toDynamo(entry *MoodEntry) dynamoEntry {
	return dynamoEntry{
		ID:             entry.ID,
		Mood:           entry.Mood.Rank,
		Note:           entry.Note,
		CreatedAt:      formatTime(entry.CreatedAt),
		SentimentScore: entry.SentimentScore,
	}
}

func fromDynamo(item dynamoEntry) (*MoodEntry, error) {
	createdAt, err := time.Parse(dynamoTimeLayout, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid createdAt %q: %w", item.CreatedAt, err)
	}
	return &MoodEntry{
		ID:             item.ID,
		Mood:           moodFromRank(item.Mood),
		Note:           item.Note,
		CreatedAt:      createdAt.UTC(),
		SentimentScore: item.SentimentScore,
	}, nil
}

// dynamoTimeLayout has a fixed-width fraction so stored strings sort chronologically
const dynamoTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(dynamoTimeLayout)
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return err != nil && errors.As(err, &ccf)
}
