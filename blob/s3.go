/*
 * s3.go, part of disloc.
 *
 *
 * Copyright 2026 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

//S3 is a Store on an S3 compatible bucket (AWS S3, MinIO). Keys are prefixed with
//the configured prefix.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

//NewS3 returns an S3 store. Credentials come from the default AWS chain
//(AWS_ACCESS_KEY_ID, shared config files, instance roles...).
func NewS3(ctx context.Context, c Config) (*S3, error) {
	if c.Bucket == "" {
		return nil, fmt.Errorf("blob: s3 bucket required")
	}
	region := c.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = c.PathStyle
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return newS3(client, c.Bucket, c.Prefix), nil
}

func newS3(client *s3.Client, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: prefix}
}

//Driver returns DriverS3.
func (s *S3) Driver() Driver { return DriverS3 }

func (s *S3) object(key string) string { return Key(s.prefix, key) }

//Put uploads r under key, unless the key already exists. Artifacts are small, so r
//is read into memory first.
func (s *S3) Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error) {
	if err := checkKey(key); err != nil {
		return Info{}, err
	}
	obj := s.object(key)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &obj})
	if err == nil {
		return Info{}, ErrExists
	}
	//anything but a 404 means we can't tell.
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if !errors.As(err, &nf) && !errors.As(err, &nsk) {
		return Info{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Info{}, err
	}
	in := &s3.PutObjectInput{Bucket: &s.bucket, Key: &obj, Body: bytes.NewReader(data), ContentLength: aws.Int64(int64(len(data)))}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return Info{}, err
	}
	return Info{Key: key, Size: int64(len(data)), ContentType: contentType, LastModified: time.Now().UTC()}, nil
}

//Get downloads the blob for key.
func (s *S3) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	obj := s.object(key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &obj})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

//List returns the blobs whose keys, without the store prefix, start with prefix.
func (s *S3) List(ctx context.Context, prefix string) ([]Info, error) {
	var ret []Info
	full := prefix
	if s.prefix != "" {
		full = Key(s.prefix) + "/" + strings.TrimPrefix(prefix, "/")
	}
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &full, ContinuationToken: token})
		if err != nil {
			return nil, err
		}
		for _, o := range out.Contents {
			key := aws.ToString(o.Key)
			if s.prefix != "" {
				key = key[len(Key(s.prefix))+1:]
			}
			ret = append(ret, Info{Key: key, Size: aws.ToInt64(o.Size), LastModified: aws.ToTime(o.LastModified)})
		}
		if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Key < ret[j].Key })
	return ret, nil
}
