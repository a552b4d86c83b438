package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoLedger.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// Compile-time check that DynamoLedger implements Ledger.
var _ Ledger = (*DynamoLedger)(nil)

// DynamoLedger implements Ledger on a DynamoDB table keyed by
// (owner_id, video_id).
type DynamoLedger struct {
	client DynamoAPI
	table  string
}

// NewDynamoLedger creates a new DynamoLedger.
func NewDynamoLedger(client DynamoAPI, table string) *DynamoLedger {
	return &DynamoLedger{client: client, table: table}
}

// dynamoRecord is the stored item shape. Timestamps are RFC 3339 strings.
type dynamoRecord struct {
	OwnerID        string `dynamodbav:"owner_id"`
	VideoID        string `dynamodbav:"video_id"`
	Filename       string `dynamodbav:"filename,omitempty"`
	Status         string `dynamodbav:"status"`
	OutputLocation string `dynamodbav:"output_location,omitempty"`
	ErrorDetail    string `dynamodbav:"error_detail,omitempty"`
	CreatedAt      string `dynamodbav:"created_at"`
	UpdatedAt      string `dynamodbav:"updated_at"`
}

// Create registers a new record.
func (l *DynamoLedger) Create(ctx context.Context, rec *Record) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	item, err := attributevalue.MarshalMap(dynamoRecord{
		OwnerID:        rec.OwnerID,
		VideoID:        rec.VideoID,
		Filename:       rec.Filename,
		Status:         string(rec.Status),
		OutputLocation: rec.OutputLocation,
		ErrorDetail:    rec.ErrorDetail,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// UpdateStatus performs a partial UpdateItem, creating the item if absent.
func (l *DynamoLedger) UpdateStatus(ctx context.Context, ownerID, videoID string, status Status, upd Update) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	// "status" is a DynamoDB reserved word
	names := map[string]string{"#status": "status"}
	values := map[string]types.AttributeValue{
		":status":     &types.AttributeValueMemberS{Value: string(status)},
		":updated_at": &types.AttributeValueMemberS{Value: now},
	}

	expr := "SET #status = :status, updated_at = :updated_at, created_at = if_not_exists(created_at, :updated_at)"
	if upd.OutputLocation != nil {
		expr += ", output_location = :output_location"
		values[":output_location"] = &types.AttributeValueMemberS{Value: *upd.OutputLocation}
	}
	if upd.ErrorDetail != nil {
		expr += ", error_detail = :error_detail"
		values[":error_detail"] = &types.AttributeValueMemberS{Value: *upd.ErrorDetail}
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(l.table),
		Key: map[string]types.AttributeValue{
			"owner_id": &types.AttributeValueMemberS{Value: ownerID},
			"video_id": &types.AttributeValueMemberS{Value: videoID},
		},
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}

	// A stale ERROR must not overwrite a COMPLETED record
	if status == StatusError {
		input.ConditionExpression = aws.String("attribute_not_exists(#status) OR #status <> :completed")
		values[":completed"] = &types.AttributeValueMemberS{Value: string(StatusCompleted)}
	}

	_, err := l.client.UpdateItem(ctx, input)
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrTerminalState
		}
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

// Get retrieves the record for (ownerID, videoID).
func (l *DynamoLedger) Get(ctx context.Context, ownerID, videoID string) (*Record, error) {
	out, err := l.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(l.table),
		Key: map[string]types.AttributeValue{
			"owner_id": &types.AttributeValueMemberS{Value: ownerID},
			"video_id": &types.AttributeValueMemberS{Value: videoID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrRecordNotFound
	}

	var item dynamoRecord
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}

	rec := &Record{
		OwnerID:        item.OwnerID,
		VideoID:        item.VideoID,
		Filename:       item.Filename,
		Status:         Status(item.Status),
		OutputLocation: item.OutputLocation,
		ErrorDetail:    item.ErrorDetail,
	}
	if t, err := time.Parse(time.RFC3339Nano, item.CreatedAt); err == nil {
		rec.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, item.UpdatedAt); err == nil {
		rec.UpdatedAt = t
	}
	return rec, nil
}
