package ddb

import (
	"context"

	"clipsync/internal/types"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/oklog/ulid/v2"
)

// ClipStore implements ports.ClipStore on DynamoDB. One item per clip:
// PK `ROOM#<target>`, SK `CLIP#<ulid>`, the payload flattened next to the
// keys. ULIDs stand in for the hosted store's creation-ordered push ids.
type ClipStore struct {
	table string
	cli   *dynamodb.Client
}

type clipItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Text      string `dynamodbav:"text"`
	Timestamp int64  `dynamodbav:"timestamp"`
}

func NewClipStore(table string, cli *dynamodb.Client) *ClipStore {
	// Creates the table only if it doesn't exist.
	// We ignore the error if the table already exists.
	createTableIfNotExists(cli, table)
	return &ClipStore{table: table, cli: cli}
}

func (s *ClipStore) Append(ctx context.Context, target string, data types.ClipData) (string, error) {
	if err := data.Validate(); err != nil {
		return "", err
	}
	id := ulid.Make().String()
	item := clipItem{
		PK:        pkRoom(target),
		SK:        skClip(id),
		Text:      data.Text,
		Timestamp: data.Timestamp,
	}
	av, _ := attributevalue.MarshalMap(item)
	_, err := s.cli.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.table,
		Item:                av,
		ConditionExpression: awsString("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return "", types.Err(types.ErrRemoteWrite, err, "put %s", target)
	}
	return id, nil
}

func (s *ClipStore) Remove(ctx context.Context, target, id string) error {
	// DeleteItem on an absent key is a no-op, keeping Remove idempotent.
	_, err := s.cli.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.table,
		Key: map[string]ddbTypes.AttributeValue{
			"PK": &ddbTypes.AttributeValueMemberS{Value: pkRoom(target)},
			"SK": &ddbTypes.AttributeValueMemberS{Value: skClip(id)},
		},
	})
	if err != nil {
		return types.Err(types.ErrRemoteWrite, err, "delete %s/%s", target, id)
	}
	return nil
}

func (s *ClipStore) ReadAll(ctx context.Context, target string) (map[string]types.ClipData, error) {
	var clips map[string]types.ClipData
	var startKey map[string]ddbTypes.AttributeValue
	for {
		out, err := s.cli.Query(ctx, &dynamodb.QueryInput{
			TableName:              &s.table,
			ConsistentRead:         awsBool(true),
			KeyConditionExpression: awsString("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]ddbTypes.AttributeValue{
				":pk": &ddbTypes.AttributeValueMemberS{Value: pkRoom(target)},
				":sk": &ddbTypes.AttributeValueMemberS{Value: SClip + "#"},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, types.Err(types.ErrRemoteRead, err, "query %s", target)
		}
		for _, raw := range out.Items {
			var item clipItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, types.Err(types.ErrRemoteRead, err, "unmarshal clip in %s", target)
			}
			id, err := parseClipID(item.SK)
			if err != nil {
				return nil, types.Err(types.ErrRemoteRead, err, "")
			}
			if clips == nil {
				clips = make(map[string]types.ClipData, len(out.Items))
			}
			clips[id] = types.ClipData{Text: item.Text, Timestamp: item.Timestamp}
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return clips, nil
}

func (s *ClipStore) ClearAll(ctx context.Context, target string) error {
	clips, err := s.ReadAll(ctx, target)
	if err != nil {
		return err
	}
	for id := range clips {
		if err := s.Remove(ctx, target, id); err != nil {
			return err
		}
	}
	return nil
}

func awsBool(b bool) *bool { return &b }
