package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/sirupsen/logrus"
)

const (
	TuneTypePacks  = "packs"
	TuneTypeTune   = "tune"
	PackQueryUsers = "users"
)

type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"3000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DBType     string `env:"DBType" envDefault:"sqlite"`
	DSNURL     string `env:"DSN_URL" envDefault:""`
	DBUser     string `env:"DBUser" envDefault:""`
	DBPassword string `env:"DBPassword" envDefault:""`
	DBAddr     string `env:"DBAddr" envDefault:""`
	DBName     string `env:"DBName" envDefault:"headshots"`
	DBPath     string `env:"DBPath" envDefault:"datas/headshots.db"`
	DBPort     string `env:"DBPort" envDefault:"3306"`

	StorageType          string `env:"STORAGE_TYPE" envDefault:"local"`
	StorageLocalDir      string `env:"STORAGE_LOCAL_DIR" envDefault:"datas/images"`
	StoragePublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL" envDefault:"/files"`
	// 训练结果是否转存到自有存储
	StorageMirrorOutputs bool `env:"STORAGE_MIRROR_OUTPUTS" envDefault:"false"`

	// S3 兼容存储配置
	StorageS3Region          string `env:"STORAGE_S3_REGION"`
	StorageS3Bucket          string `env:"STORAGE_S3_BUCKET"`
	StorageS3Prefix          string `env:"STORAGE_S3_PREFIX"`
	StorageS3Endpoint        string `env:"STORAGE_S3_ENDPOINT"`
	StorageS3AccessKeyID     string `env:"STORAGE_S3_ACCESS_KEY_ID"`
	StorageS3SecretAccessKey string `env:"STORAGE_S3_SECRET_ACCESS_KEY"`
	StorageS3SessionToken    string `env:"STORAGE_S3_SESSION_TOKEN"`
	StorageS3ForcePathStyle  bool   `env:"STORAGE_S3_FORCE_PATH_STYLE" envDefault:"false"`

	// 阿里云 OSS 存储配置
	StorageOSSEndpoint        string `env:"STORAGE_OSS_ENDPOINT"`
	StorageOSSBucket          string `env:"STORAGE_OSS_BUCKET"`
	StorageOSSPrefix          string `env:"STORAGE_OSS_PREFIX"`
	StorageOSSAccessKeyID     string `env:"STORAGE_OSS_ACCESS_KEY_ID"`
	StorageOSSAccessKeySecret string `env:"STORAGE_OSS_ACCESS_KEY_SECRET"`

	// 腾讯云 COS 存储配置
	StorageCOSBucketURL string `env:"STORAGE_COS_BUCKET_URL"`
	StorageCOSPrefix    string `env:"STORAGE_COS_PREFIX"`
	StorageCOSSecretID  string `env:"STORAGE_COS_SECRET_ID"`
	StorageCOSSecretKey string `env:"STORAGE_COS_SECRET_KEY"`

	// Cloudflare R2 存储配置
	StorageR2AccountID       string `env:"STORAGE_R2_ACCOUNT_ID"`
	StorageR2Endpoint        string `env:"STORAGE_R2_ENDPOINT"`
	StorageR2Region          string `env:"STORAGE_R2_REGION" envDefault:"auto"`
	StorageR2Bucket          string `env:"STORAGE_R2_BUCKET"`
	StorageR2Prefix          string `env:"STORAGE_R2_PREFIX"`
	StorageR2AccessKeyID     string `env:"STORAGE_R2_ACCESS_KEY_ID"`
	StorageR2SecretAccessKey string `env:"STORAGE_R2_SECRET_ACCESS_KEY"`

	// Astria
	AstriaAPIKey         string `env:"ASTRIA_API_KEY" envDefault:""`
	AstriaBaseURL        string `env:"ASTRIA_BASE_URL" envDefault:"https://api.astria.ai"`
	AstriaTimeoutSeconds int    `env:"ASTRIA_TIMEOUT_SECONDS" envDefault:"60"`
	AppWebhookSecret     string `env:"APP_WEBHOOK_SECRET" envDefault:""`
	DeploymentURL        string `env:"DEPLOYMENT_URL" envDefault:""`
	TuneType             string `env:"NEXT_PUBLIC_TUNE_TYPE" envDefault:""`
	PackQueryType        string `env:"PACK_QUERY_TYPE" envDefault:""`
	StripeEnabled        bool   `env:"NEXT_PUBLIC_STRIPE_IS_ENABLED" envDefault:"false"`
	BlobReadWriteToken   string `env:"BLOB_READ_WRITE_TOKEN" envDefault:""`

	// 邮件
	ResendAPIKey string `env:"RESEND_API_KEY" envDefault:""`
	ResendFrom   string `env:"RESEND_FROM" envDefault:"Headshots <noreply@headshots.local>"`

	JWTSecret            string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTIssuer            string `env:"JWT_ISSUER" envDefault:"headshots"`
	JWTExpirationMinutes int    `env:"JWT_EXPIRATION_MINUTES" envDefault:"1440"`

	SessionCookieName   string `env:"SESSION_COOKIE_NAME" envDefault:"sb-session"`
	SessionCookieSecure bool   `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	AuthCodeTTLMinutes  int    `env:"AUTH_CODE_TTL_MINUTES" envDefault:"60"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID" envDefault:""`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET" envDefault:""`

	// Redis 为空时使用进程内广播
	RedisAddr     string `env:"REDIS_ADDR" envDefault:""`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	ReconcileInterval       time.Duration `env:"RECONCILE_INTERVAL" envDefault:"5m"`
	ReconcilePendingTimeout time.Duration `env:"RECONCILE_PENDING_TIMEOUT" envDefault:"30m"`
}

// Features 由配置推导出的功能开关
type Features struct {
	PacksEnabled   bool
	BillingEnabled bool
}

func (c Config) Features() Features {
	return Features{
		PacksEnabled:   strings.EqualFold(strings.TrimSpace(c.TuneType), TuneTypePacks),
		BillingEnabled: c.StripeEnabled,
	}
}

// PublicBaseURL 返回 webhook 回调使用的站点地址
func (c Config) PublicBaseURL() string {
	raw := strings.TrimRight(strings.TrimSpace(c.DeploymentURL), "/")
	if raw == "" || strings.Contains(raw, "localhost") {
		return fmt.Sprintf("http://localhost:%s", c.HTTPPort)
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "https://" + raw
	}
	return raw
}

func (c Config) AstriaTimeout() time.Duration {
	if c.AstriaTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.AstriaTimeoutSeconds) * time.Second
}

func (c Config) AuthCodeTTL() time.Duration {
	if c.AuthCodeTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.AuthCodeTTLMinutes) * time.Minute
}

func ParseConfig() (Config, error) {
	var Conf Config
	err := env.Parse(&Conf)
	if err != nil {
		logrus.WithError(err).Error("env.Parse error")
		return Config{}, err
	}
	logrus.Debugf("%#v\n", Conf)
	return Conf, nil
}
