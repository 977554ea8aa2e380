package fulfillment

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"taquilla/src/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
)

// Publisher writes a rendered ticket document to blob storage and mints a
// time-limited retrieval URL. The key carries a timestamp, so a resend
// never clobbers the artifact of an earlier run.
type Publisher struct {
	s3     *s3.Client
	rdb    *redis.Client
	bucket string
}

func NewPublisher(client *s3.Client, rdb *redis.Client, bucket string) *Publisher {
	return &Publisher{s3: client, rdb: rdb, bucket: bucket}
}

func artifactKey(movementId string, ts time.Time) string {
	return fmt.Sprintf("boletos/%s/%d.pdf", movementId, ts.Unix())
}

func (p *Publisher) Publish(ctx context.Context, document []byte, movementId string) (string, error) {
	key := artifactKey(movementId, time.Now())
	_, err := p.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(document),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		log.Printf("Could not put object to S3 bucket: %s\n", err.Error())
		return "", err
	}
	err = s3.NewObjectExistsWaiter(p.s3).Wait(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, time.Minute)
	if err != nil {
		log.Printf("Failed attempt to wait for object %s to exist: %s\n", key, err.Error())
		return "", err
	}
	log.Printf("Added object '%s' to bucket '%s'", key, p.bucket)
	url, err := p.presign(ctx, key)
	if err != nil {
		return "", err
	}
	if p.rdb != nil {
		if err := p.rdb.SetEx(ctx, fmt.Sprintf("artifact:%s", movementId), url, config.ARTIFACT_URL_TTL*time.Hour).Err(); err != nil {
			log.Printf("Error caching signed URL for %s: %s\n", movementId, err.Error())
		}
	}
	return url, nil
}

func (p *Publisher) presign(ctx context.Context, key string) (string, error) {
	pre := s3.NewPresignClient(p.s3)
	r, err := pre.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, func(po *s3.PresignOptions) {
		po.Expires = config.ARTIFACT_URL_TTL * time.Hour
	})
	if err != nil {
		log.Printf("Could not generate presigned URL for object [%s]: %s\n", key, err.Error())
		return "", err
	}
	return r.URL, nil
}

// LatestURL re-presigns the most recent artifact of a movement, backing
// the persistent download link after the emailed URL has expired.
func (p *Publisher) LatestURL(ctx context.Context, movementId string) (string, error) {
	prefix := fmt.Sprintf("boletos/%s/", movementId)
	out, err := p.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return "", err
	}
	if len(out.Contents) == 0 {
		return "", fmt.Errorf("no artifact published for movement %s", movementId)
	}
	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		keys = append(keys, aws.ToString(obj.Key))
	}
	sort.Strings(keys)
	return p.presign(ctx, keys[len(keys)-1])
}
