package storage

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"tcm-diagnosis/config"
)

// S3Store lädt Exporte und Backups in einen S3-kompatiblen Bucket.
type S3Store struct {
	Client *s3.Client
	Bucket string
	URL    string
}

// NewS3Client erstellt einen S3-Client für einen beliebigen S3-kompatiblen Endpunkt.
func NewS3Client(ctx context.Context, url, region, key, secret string) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, r string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               url,
				SigningRegion:     region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg), nil
}

// NewS3Store baut den Store aus der S3-Konfiguration des Dienstes.
func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	client, err := NewS3Client(ctx, cfg.S3URL, cfg.S3Region, cfg.S3Key, cfg.S3Secret)
	if err != nil {
		return nil, err
	}
	return &S3Store{Client: client, Bucket: cfg.S3Bucket, URL: cfg.S3URL}, nil
}

// Upload lädt ein Objekt hoch und gibt den Link zurück.
func (s *S3Store) Upload(ctx context.Context, key string, data []byte) (string, error) {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.URL, "/"), s.Bucket, key), nil
}

// Rotate behält unter prefix die keep neuesten Objekte und löscht den Rest.
// Gelöschte Keys werden zurückgegeben.
func (s *S3Store) Rotate(ctx context.Context, prefix string, keep int) ([]string, error) {
	var objects []StoredObject
	paginator := s3.NewListObjectsV2Paginator(s.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			objects = append(objects, StoredObject{
				Key:          aws.ToString(obj.Key),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	expired := ExpiredKeys(objects, keep)
	var deleted []string
	for _, key := range expired {
		_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return deleted, fmt.Errorf("delete %s: %w", key, err)
		}
		deleted = append(deleted, key)
	}
	return deleted, nil
}

// StoredObject beschreibt ein Objekt im Bucket.
type StoredObject struct {
	Key          string
	LastModified time.Time
}

// ExpiredKeys liefert die Keys aller Objekte außer den keep neuesten.
// Bei gleichem Zeitstempel gilt der lexikalisch größere Key als neuer.
func ExpiredKeys(objects []StoredObject, keep int) []string {
	if keep < 0 {
		keep = 0
	}
	if len(objects) <= keep {
		return nil
	}
	sorted := make([]StoredObject, len(objects))
	copy(sorted, objects)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].LastModified.Equal(sorted[j].LastModified) {
			return sorted[i].LastModified.After(sorted[j].LastModified)
		}
		return sorted[i].Key > sorted[j].Key
	})
	keys := make([]string, 0, len(sorted)-keep)
	for _, obj := range sorted[keep:] {
		keys = append(keys, obj.Key)
	}
	return keys
}
