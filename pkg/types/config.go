package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	DatabaseSchema  string `envconfig:"DB_SCHEMA" default:"public"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// Supabase project the storage bucket lives in
	SupabaseURL string `envconfig:"SUPABASE_URL"`
	SupabaseKey string `envconfig:"SUPABASE_KEY"`

	// Object storage
	StorageDriver     string `envconfig:"STORAGE_DRIVER" default:"supabase"` // supabase | s3
	StorageBucketName string `envconfig:"STORAGE_BUCKET" default:"maintenance-images"`
	S3Endpoint        string `envconfig:"S3_ENDPOINT"`
	S3Region          string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKeyID     string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `envconfig:"S3_SECRET_ACCESS_KEY"`

	// Cognito Auth
	CognitoClientID  string `envconfig:"COGNITO_CLIENT_ID"`
	CognitoIssuerURL string `envconfig:"COGNITO_ISSUER_URL"`

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes

	// Postgres channel that triggers a refresh of the in-memory mirrors
	NotifyChannel string `envconfig:"NOTIFY_CHANNEL" default:"maintenance_changes"`

	// Service order letterhead
	OrderOrgName     string `envconfig:"ORDER_ORG_NAME" default:"Comando de Fronteira Jauru"`
	OrderUnitName    string `envconfig:"ORDER_UNIT_NAME" default:"66º Batalhão de Infantaria"`
	OrderSectionName string `envconfig:"ORDER_SECTION_NAME" default:"Seção de Manutenção de PNR"`
}
