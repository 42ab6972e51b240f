package relay

import (
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	awssession "github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"

	"github.com/sentrylink/relay/lib/env"
)

var dbAccess DbAccess = DynamodbAccess{}

// DbAccess persists which user is watching which agent, and the recording
// rows, so support can answer "who was looking" later.
type DbAccess interface {
	SaveMonitorSession(sessionId, owner, tenantId, agentId, room string) error
	DeleteMonitorSession(sessionId string) error
	SaveRecording(tenantId, agentId, key string) error
}

type DynamodbAccess struct{}

func sessionTable() string {
	if t := os.Getenv("MONITOR_SESSION_TABLE"); t != "" {
		return t
	}
	return "monitor-sessions"
}

func recordingTable() string {
	if t := os.Getenv("RECORDING_TABLE"); t != "" {
		return t
	}
	return "monitor-recordings"
}

func dynamoClient() (*dynamodb.DynamoDB, error) {
	sess, err := awssession.NewSession(&aws.Config{Region: aws.String(env.Region)})
	if err != nil {
		return nil, err
	}
	return dynamodb.New(sess), nil
}

func (d DynamodbAccess) SaveMonitorSession(sessionId, owner, tenantId, agentId, room string) error {
	cli, err := dynamoClient()
	if err != nil {
		return err
	}
	_, err = cli.PutItem(&dynamodb.PutItemInput{
		TableName: aws.String(sessionTable()),
		Item: map[string]*dynamodb.AttributeValue{
			"id":        {S: aws.String(sessionId)},
			"owner":     {S: aws.String(owner)},
			"tenantId":  {S: aws.String(tenantId)},
			"agentId":   {S: aws.String(agentId)},
			"room":      {S: aws.String(room)},
			"createdAt": {S: aws.String(time.Now().Format(time.RFC3339))},
		},
	})
	return err
}

func (d DynamodbAccess) DeleteMonitorSession(sessionId string) error {
	cli, err := dynamoClient()
	if err != nil {
		return err
	}
	_, err = cli.DeleteItem(&dynamodb.DeleteItemInput{
		TableName: aws.String(sessionTable()),
		Key: map[string]*dynamodb.AttributeValue{
			"id": {S: aws.String(sessionId)},
		},
	})
	return err
}

func (d DynamodbAccess) SaveRecording(tenantId, agentId, key string) error {
	cli, err := dynamoClient()
	if err != nil {
		return err
	}
	_, err = cli.PutItem(&dynamodb.PutItemInput{
		TableName: aws.String(recordingTable()),
		Item: map[string]*dynamodb.AttributeValue{
			"key":       {S: aws.String(key)},
			"tenantId":  {S: aws.String(tenantId)},
			"agentId":   {S: aws.String(agentId)},
			"createdAt": {S: aws.String(time.Now().Format(time.RFC3339))},
		},
	})
	return err
}
