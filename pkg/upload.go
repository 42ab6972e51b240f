package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/sentrylink/relay/lib/env"
	"github.com/sentrylink/relay/lib/logging"
)

var queueDB *redis.Client
var queueCtx context.Context

const queueName = "recording-upload-queue"

var theNumberOfQueues int

var queueCount int64

func init() {
	queueCtx = context.Background()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	queueDB = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	if os.Getenv("NUMBER_OF_UPLOAD_QUEUES") != "" {
		count, e := strconv.Atoi(os.Getenv("NUMBER_OF_UPLOAD_QUEUES"))
		if e != nil {
			panic(e)
		}
		theNumberOfQueues = count
	} else {
		theNumberOfQueues = 1
	}
}

// nextQueueIndex rotates pushes across the upload queues. Stops from
// concurrent panels land here at the same time.
func nextQueueIndex() int {
	return int(atomic.AddInt64(&queueCount, 1) % int64(theNumberOfQueues))
}

// PushRecording queues a finished recording artifact for upload.
func PushRecording(info logging.RecordingInfo) {
	index := nextQueueIndex()
	logrus.Infof("push %s to queue %d", info.Key, index)

	data, _ := json.Marshal(info)
	_, err := queueDB.RPush(queueCtx, GetQueueName(index), string(data)).Result()
	if err != nil {
		logrus.Errorf("push to redis failed %v", err)
		return
	}
}

// PeekRecording returns the head of an upload queue without removing it.
func PeekRecording(index int) *logging.RecordingInfo {
	r, err := queueDB.LRange(queueCtx, GetQueueName(index), 0, 0).Result()
	if err != nil {
		logrus.Errorf("lrange redis failed %v", err)
		return nil
	}
	if len(r) > 0 {
		var result logging.RecordingInfo
		if e := json.Unmarshal([]byte(r[0]), &result); e == nil {
			return &result
		}
		logrus.Errorf("unmarshal recording info failed")
		return nil
	}
	return nil
}

// PopRecording removes the head of an upload queue.
func PopRecording(index int) {
	result, e := queueDB.LPop(queueCtx, GetQueueName(index)).Result()
	if e != nil {
		logrus.Infof("pop result %s, e: %v", result, e)
	}
}

func GetQueueName(index int) string {
	return fmt.Sprintf("%s-%d", queueName, index)
}

// RunUploadWorker drains one upload queue: peek, upload to the recording
// bucket, log, pop. Artifacts whose local file has vanished are skipped.
func RunUploadWorker(index int) {
	for {
		info := PeekRecording(index)
		if info == nil {
			time.Sleep(5 * time.Second)
			continue
		}
		if _, e := os.Stat(info.LocalPath); e != nil {
			logrus.Infof("file %s not found, skip", info.LocalPath)
			PopRecording(index)
			continue
		}
		if err := UploadRecording(*info); err != nil {
			logrus.Errorf("upload %s failed %v", info.Key, err)
			time.Sleep(5 * time.Second)
			continue
		}
		PopRecording(index)
	}
}

// UploadRecording pushes one artifact to S3 and removes the local file on
// success.
func UploadRecording(info logging.RecordingInfo) error {
	bucket := os.Getenv("RECORDING_BUCKET")
	if bucket == "" {
		bucket = "sentrylink-recordings"
	}

	f, err := os.Open(info.LocalPath)
	if err != nil {
		return err
	}
	defer f.Close()

	sess, err := session.NewSession(&aws.Config{Region: aws.String(env.Region)})
	if err != nil {
		return err
	}
	uploader := s3manager.NewUploader(sess)
	key := fmt.Sprintf("recordings/%s/%s/%s.mjpeg", info.TenantID, info.UserEmail, info.Key)
	_, err = uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return err
	}

	logging.LogRecording(info, bucket)
	if err := dbAccess.SaveRecording(info.TenantID, info.AgentID, key); err != nil {
		logrus.Errorf("save recording row failed %v", err)
	}
	os.Remove(info.LocalPath)
	return nil
}
