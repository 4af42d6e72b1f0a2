package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ReportArchiver 把生成的报表归档到对象存储。可选组件：
// 未配置endpoint时为nil，调用方跳过归档。归档失败不影响响应。
type ReportArchiver struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// ArchiverConfig 对象存储连接参数
type ArchiverConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func NewReportArchiver(cfg ArchiverConfig, logger *zap.Logger) (*ReportArchiver, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init report archiver: %w", err)
	}

	return &ReportArchiver{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// EnsureBucket 启动时确保归档桶存在
func (a *ReportArchiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// Archive 上传一份报表，按日期+随机键归档。失败记日志后返回，不向上传播。
func (a *ReportArchiver) Archive(ctx context.Context, data []byte, ext, contentType string) {
	objectName := fmt.Sprintf("reports/%s/%s.%s",
		time.Now().Format("2006-01-02"), uuid.New().String(), ext)

	_, err := a.client.PutObject(ctx, a.bucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		a.logger.Warn("report archive upload failed",
			zap.String("object", objectName),
			zap.Error(err),
		)
		return
	}

	a.logger.Info("report archived",
		zap.String("bucket", a.bucket),
		zap.String("object", objectName),
		zap.Int("bytes", len(data)),
	)
}
