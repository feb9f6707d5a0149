package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamoDB keeps items in memory keyed by the partition key value.
type fakeDynamoDB struct {
	items map[string]map[string]ddbtypes.AttributeValue
}

func newFakeDynamoDB() *fakeDynamoDB {
	return &fakeDynamoDB{items: map[string]map[string]ddbtypes.AttributeValue{}}
}

func itemKey(item map[string]ddbtypes.AttributeValue) string {
	if attr, ok := item[partitionKey].(*ddbtypes.AttributeValueMemberS); ok {
		return attr.Value
	}
	return ""
}

func (f *fakeDynamoDB) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return &dynamodb.DescribeTableOutput{}, nil
}

func (f *fakeDynamoDB) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeDynamoDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	item, ok := f.items[itemKey(params.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (f *fakeDynamoDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.items[itemKey(params.Item)] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamoDB) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	key := itemKey(params.Key)
	old, existed := f.items[key]
	delete(f.items, key)
	if !existed {
		return &dynamodb.DeleteItemOutput{}, nil
	}
	return &dynamodb.DeleteItemOutput{Attributes: old}, nil
}

func (f *fakeDynamoDB) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	out := &dynamodb.ScanOutput{}
	for _, item := range f.items {
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func newTestStore() (*DynamoDBStore, *time.Time) {
	store := NewDynamoDBStore(newFakeDynamoDB(), "pipeline-builder-metadata")
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }
	return store, &current
}

func Test_SavePipeline_SetsTimestamps(t *testing.T) {
	store, current := newTestStore()
	ctx := context.Background()

	record := &Record{Name: "svc-a", RepositoryName: "org/svc-a", BranchName: "main", ComputeType: "BUILD_GENERAL1_SMALL"}
	require.NoError(t, store.SavePipeline(ctx, record))
	assert.Equal(t, record.CreatedAt, record.LastUpdated)

	fetched, err := store.GetPipeline(ctx, "svc-a")
	require.NoError(t, err)
	assert.Equal(t, "org/svc-a", fetched.RepositoryName)
	assert.Equal(t, record.CreatedAt, fetched.CreatedAt)

	// a later update keeps createdAt and refreshes lastUpdated
	*current = current.Add(time.Hour)
	fetched.BranchName = "develop"
	require.NoError(t, store.SavePipeline(ctx, fetched))

	updated, err := store.GetPipeline(ctx, "svc-a")
	require.NoError(t, err)
	assert.Equal(t, record.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.LastUpdated.After(updated.CreatedAt))
}

func Test_SavePipeline_UpdateWithoutCreatedAtKeepsOriginal(t *testing.T) {
	store, current := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.SavePipeline(ctx, &Record{Name: "svc-a"}))
	original, err := store.GetPipeline(ctx, "svc-a")
	require.NoError(t, err)

	*current = current.Add(time.Hour)
	require.NoError(t, store.SavePipeline(ctx, &Record{Name: "svc-a", BranchName: "main"}))

	updated, err := store.GetPipeline(ctx, "svc-a")
	require.NoError(t, err)
	assert.Equal(t, original.CreatedAt, updated.CreatedAt)
}

func Test_GetPipeline_NotFound(t *testing.T) {
	store, _ := newTestStore()
	_, err := store.GetPipeline(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func Test_DeletePipeline(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.SavePipeline(ctx, &Record{Name: "svc-a"}))

	existed, err := store.DeletePipeline(ctx, "svc-a")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = store.DeletePipeline(ctx, "svc-a")
	require.NoError(t, err)
	assert.False(t, existed)
}

func Test_ListPipelines_SkipsSettingsAndSorts(t *testing.T) {
	store, current := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.SavePipeline(ctx, &Record{Name: "svc-old"}))
	*current = current.Add(time.Hour)
	require.NoError(t, store.SavePipeline(ctx, &Record{Name: "svc-new"}))
	require.NoError(t, store.SaveSettings(ctx, SettingsKindPipeline, map[string]any{"registryUrl": "example"}))

	records, err := store.ListPipelines(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "svc-new", records[0].Name)
	assert.Equal(t, "svc-old", records[1].Name)
}

func Test_Settings_RoundTrip(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	_, err := store.GetSettings(ctx, SettingsKindEnvSuggestions)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	saved := map[string]any{"SMCREDS": []any{"database-secrets"}}
	require.NoError(t, store.SaveSettings(ctx, SettingsKindEnvSuggestions, saved))

	fetched, err := store.GetSettings(ctx, SettingsKindEnvSuggestions)
	require.NoError(t, err)
	assert.Equal(t, saved, fetched)
}
