/*
Copyright (C) 2026  MemCP Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package objstore holds concrete store.ObjectStore backends: an S3-compatible
// client, a local filesystem tree, and an in-memory map for tests.
package objstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	klstore "github.com/launix-de/klog/store"
)

// S3Config describes how to reach an S3-compatible bucket: AWS proper or a
// self-hosted compatible service (MinIO and similar) via a custom endpoint
// and path-style addressing.
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
	Bucket          string
	ForcePathStyle  bool
}

// S3Store is an ObjectStore backed by an S3-compatible bucket. The client is
// constructed lazily on first use so a zero-value S3Store built from config
// alone never touches the network before it is needed.
type S3Store struct {
	cfg S3Config

	mu     sync.Mutex
	client *s3.Client
}

// NewS3Store builds an S3Store for cfg. The underlying client is created on
// first call to Put/Get/Delete/ListPage.
func NewS3Store(cfg S3Config) *S3Store {
	return &S3Store{cfg: cfg}
}

func (s *S3Store) ensureClient(ctx context.Context) (*s3.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	var opts []func(*config.LoadOptions) error
	if s.cfg.Region != "" {
		opts = append(opts, config.WithRegion(s.cfg.Region))
	}
	if s.cfg.AccessKeyID != "" && s.cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKeyID, s.cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, klstore.NewIOError("loading AWS config: %v", err)
	}

	var s3Opts []func(*s3.Options)
	if s.cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(s.cfg.Endpoint) })
	}
	if s.cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	s.client = s3.NewFromConfig(awsCfg, s3Opts...)
	return s.client, nil
}

// Put implements store.ObjectStore.
func (s *S3Store) Put(key string, body []byte) error {
	ctx := context.Background()
	client, err := s.ensureClient(ctx)
	if err != nil {
		return err
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return klstore.NewIOError("putting %s: %v", key, err)
	}
	return nil
}

// Get implements store.ObjectStore.
func (s *S3Store) Get(key string) ([]byte, bool, error) {
	ctx := context.Background()
	client, err := s.ensureClient(ctx)
	if err != nil {
		return nil, false, err
	}
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, klstore.NewIOError("getting %s: %v", key, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, klstore.NewIOError("reading %s: %v", key, err)
	}
	return data, true, nil
}

// Delete implements store.ObjectStore. Deleting a missing key is not an error
// on S3 either, so no existence check is needed first.
func (s *S3Store) Delete(key string) error {
	ctx := context.Background()
	client, err := s.ensureClient(ctx)
	if err != nil {
		return err
	}
	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return klstore.NewIOError("deleting %s: %v", key, err)
	}
	return nil
}

// ListPage implements store.ObjectStore. startAfter is only meaningful when
// continuation is empty: once a continuation token exists it alone anchors
// the next page, matching S3's own ListObjectsV2 semantics.
func (s *S3Store) ListPage(prefix, startAfter, continuation string, maxResults int) (klstore.ListPageResult, error) {
	ctx := context.Background()
	client, err := s.ensureClient(ctx)
	if err != nil {
		return klstore.ListPageResult{}, err
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
		Prefix: aws.String(prefix),
	}
	if maxResults > 0 {
		input.MaxKeys = aws.Int32(int32(maxResults))
	}
	if continuation != "" {
		input.ContinuationToken = aws.String(continuation)
	} else if startAfter != "" {
		input.StartAfter = aws.String(startAfter)
	}

	resp, err := client.ListObjectsV2(ctx, input)
	if err != nil {
		return klstore.ListPageResult{}, klstore.NewIOError("listing %s: %v", prefix, err)
	}

	objects := make([]klstore.ListedObject, 0, len(resp.Contents))
	for _, obj := range resp.Contents {
		size := int64(0)
		if obj.Size != nil {
			size = *obj.Size
		}
		objects = append(objects, klstore.ListedObject{Key: aws.ToString(obj.Key), Size: size})
	}

	result := klstore.ListPageResult{Objects: objects}
	if resp.NextContinuationToken != nil {
		result.Continuation = resp.NextContinuationToken
	}
	return result, nil
}

func isNotFound(err error) bool {
	var nsk *s3.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

var _ klstore.ObjectStore = (*S3Store)(nil)
