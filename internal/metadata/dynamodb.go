package metadata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

const partitionKey = "pipeline_name"

// DynamoDBAPI is the narrow view over the DynamoDB client this store uses.
type DynamoDBAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoDBStore is the DynamoDB-backed Store implementation, keyed by pipeline
// name with the settings blobs under reserved keys in the same table.
type DynamoDBStore struct {
	client    DynamoDBAPI
	tableName string

	// now is replaced in tests to pin timestamps
	now func() time.Time
}

// NewDynamoDBStore constructs the store. Call EnsureTable before first use.
func NewDynamoDBStore(client DynamoDBAPI, tableName string) *DynamoDBStore {
	return &DynamoDBStore{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

// EnsureTable creates the metadata table when it does not exist yet and waits
// until it is active.
func (s *DynamoDBStore) EnsureTable(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)})
	if err == nil {
		return nil
	}
	var notFound *ddbtypes.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to describe metadata table %s: %w", s.tableName, err)
	}

	log.Ctx(ctx).Info().Str("table", s.tableName).Msg("Creating metadata table")
	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.tableName),
		KeySchema: []ddbtypes.KeySchemaElement{
			{AttributeName: aws.String(partitionKey), KeyType: ddbtypes.KeyTypeHash},
		},
		AttributeDefinitions: []ddbtypes.AttributeDefinition{
			{AttributeName: aws.String(partitionKey), AttributeType: ddbtypes.ScalarAttributeTypeS},
		},
		BillingMode: ddbtypes.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata table %s: %w", s.tableName, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)}, 2*time.Minute); err != nil {
		return fmt.Errorf("metadata table %s did not become active: %w", s.tableName, err)
	}
	return nil
}

func (s *DynamoDBStore) key(name string) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		partitionKey: &ddbtypes.AttributeValueMemberS{Value: name},
	}
}

// GetPipeline reads one record by pipeline name.
func (s *DynamoDBStore) GetPipeline(ctx context.Context, name string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline record %s: %w", name, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrRecordNotFound
	}

	var record Record
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pipeline record %s: %w", name, err)
	}
	return &record, nil
}

// SavePipeline writes the record, refreshing lastUpdated and setting createdAt
// only on first persist.
func (s *DynamoDBStore) SavePipeline(ctx context.Context, record *Record) error {
	if record.Name == "" {
		return errors.New("pipeline record requires a name")
	}

	record.LastUpdated = s.now().UTC()
	if record.CreatedAt.IsZero() {
		if existing, err := s.GetPipeline(ctx, record.Name); err == nil {
			record.CreatedAt = existing.CreatedAt
		}
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = record.LastUpdated
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline record %s: %w", record.Name, err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to save pipeline record %s: %w", record.Name, err)
	}
	return nil
}

// DeletePipeline removes the record; it reports whether a record existed.
func (s *DynamoDBStore) DeletePipeline(ctx context.Context, name string) (bool, error) {
	out, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.tableName),
		Key:          s.key(name),
		ReturnValues: ddbtypes.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete pipeline record %s: %w", name, err)
	}
	return len(out.Attributes) > 0, nil
}

// ListPipelines scans all records, skipping the settings blobs, sorted by
// lastUpdated descending.
func (s *DynamoDBStore) ListPipelines(ctx context.Context) ([]Record, error) {
	var records []Record
	var startKey map[string]ddbtypes.AttributeValue

	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list pipeline records: %w", err)
		}

		for _, item := range out.Items {
			if keyAttr, ok := item[partitionKey].(*ddbtypes.AttributeValueMemberS); ok &&
				strings.HasPrefix(keyAttr.Value, settingsKeyPrefix) {
				continue
			}
			var record Record
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				return nil, fmt.Errorf("failed to unmarshal pipeline record: %w", err)
			}
			records = append(records, record)
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].LastUpdated.After(records[j].LastUpdated)
	})
	return records, nil
}

type settingsItem struct {
	Key          string         `dynamodbav:"pipeline_name"`
	SettingType  string         `dynamodbav:"setting_type"`
	SettingsData map[string]any `dynamodbav:"settings_data"`
	LastUpdated  time.Time      `dynamodbav:"lastUpdated"`
}

// GetSettings reads one settings blob by kind.
func (s *DynamoDBStore) GetSettings(ctx context.Context, kind string) (map[string]any, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(settingsKeyPrefix + kind),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s settings: %w", kind, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrRecordNotFound
	}

	var item settingsItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s settings: %w", kind, err)
	}
	return item.SettingsData, nil
}

// SaveSettings writes one settings blob under its reserved key.
func (s *DynamoDBStore) SaveSettings(ctx context.Context, kind string, settings map[string]any) error {
	item, err := attributevalue.MarshalMap(settingsItem{
		Key:          settingsKeyPrefix + kind,
		SettingType:  kind,
		SettingsData: settings,
		LastUpdated:  s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s settings: %w", kind, err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to save %s settings: %w", kind, err)
	}
	return nil
}
