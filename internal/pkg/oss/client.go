package oss

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/qs3c/yardconnect/config"
)

var ErrNotConfigured = errors.New("oss is not configured")

type Client struct {
	client     *oss.Client
	bucket     *oss.Bucket
	bucketName string
	endpoint   string
	cdnDomain  string
}

// NewClient 创建 OSS 客户端，未配置 endpoint 或 bucket 时返回 ErrNotConfigured
func NewClient(cfg *config.OSSConfig) (*Client, error) {
	if cfg.Endpoint == "" || cfg.BucketName == "" {
		return nil, ErrNotConfigured
	}

	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &Client{
		client:     client,
		bucket:     bucket,
		bucketName: cfg.BucketName,
		endpoint:   cfg.Endpoint,
		cdnDomain:  cfg.CDNDomain,
	}, nil
}

// ProfilePhotoKey 资料照片的 object key
func ProfilePhotoKey(accountID int64, at time.Time, ext string) string {
	return fmt.Sprintf("profiles/%d/%d%s", accountID, at.Unix(), ext)
}

// UploadProfilePhoto 上传资料照片，返回访问 URL
func (c *Client) UploadProfilePhoto(accountID int64, data []byte, ext, contentType string) (string, error) {
	objectKey := ProfilePhotoKey(accountID, time.Now(), ext)

	err := c.bucket.PutObject(objectKey, bytes.NewReader(data), oss.ContentType(contentType))
	if err != nil {
		return "", fmt.Errorf("failed to upload profile photo: %w", err)
	}

	return c.GetURL(objectKey), nil
}

// Delete 删除文件
func (c *Client) Delete(objectKey string) error {
	if err := c.bucket.DeleteObject(objectKey); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// GetURL 获取文件访问 URL
func (c *Client) GetURL(objectKey string) string {
	return buildURL(c.cdnDomain, c.bucketName, c.endpoint, objectKey)
}

// ExtractObjectKey 从 URL 中提取 object key，非本 bucket 的 URL 返回空字符串
func (c *Client) ExtractObjectKey(url string) string {
	return extractKey(c.cdnDomain, c.bucketName, c.endpoint, url)
}

func buildURL(cdnDomain, bucketName, endpoint, objectKey string) string {
	if cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", cdnDomain, objectKey)
	}
	return fmt.Sprintf("https://%s.%s/%s", bucketName, hostOf(endpoint), objectKey)
}

func extractKey(cdnDomain, bucketName, endpoint, url string) string {
	prefixes := []string{fmt.Sprintf("https://%s.%s/", bucketName, hostOf(endpoint))}
	if cdnDomain != "" {
		prefixes = append(prefixes, fmt.Sprintf("https://%s/", cdnDomain))
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(url, prefix) {
			return url[len(prefix):]
		}
	}
	return ""
}

// hostOf 去掉 endpoint 上的协议前缀
func hostOf(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	return strings.TrimPrefix(endpoint, "http://")
}
