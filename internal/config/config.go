package config

import (
	"os"
	"strconv"
)

type Config struct {
	AppPort       string
	DBDSN         string
	JWTSecret     string
	JWTExpiresMin int

	RedisAddr     string
	RedisPassword string

	UploadDir     string
	MaxUploadSize int64

	// Daraja (M-Pesa) client credentials; deposits fall back to an
	// immediately-completed transaction when these are empty.
	MpesaConsumerKey    string
	MpesaConsumerSecret string
	MpesaTokenURL       string
	MpesaShortCode      string
}

func Load() Config {
	expires, _ := strconv.Atoi(get("JWT_EXPIRES_MIN", "10080"))
	maxUpload, _ := strconv.ParseInt(get("MAX_FILE_UPLOAD", "1000000"), 10, 64)
	return Config{
		AppPort:       get("APP_PORT", "5000"),
		DBDSN:         must("DB_DSN"),
		JWTSecret:     must("JWT_SECRET"),
		JWTExpiresMin: expires,

		RedisAddr:     get("REDIS_ADDR", "localhost:6379"),
		RedisPassword: get("REDIS_PASSWORD", ""),

		UploadDir:     get("UPLOAD_DIR", "./uploads"),
		MaxUploadSize: maxUpload,

		MpesaConsumerKey:    get("MPESA_CONSUMER_KEY", ""),
		MpesaConsumerSecret: get("MPESA_CONSUMER_SECRET", ""),
		MpesaTokenURL:       get("MPESA_TOKEN_URL", "https://sandbox.safaricom.co.ke/oauth/v1/generate?grant_type=client_credentials"),
		MpesaShortCode:      get("MPESA_SHORT_CODE", ""),
	}
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
