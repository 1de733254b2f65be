package snowflake

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/pem"
	"fmt"
	"os"
	"strings"
	"time"

	gosnowflake "github.com/snowflakedb/gosnowflake"
	"github.com/youmark/pkcs8"

	"github.com/semgen/semgen/internal/config"
)

// Open establishes a warehouse session from the snowflake config block.
// Password, key-pair, OAuth token and external authenticators are supported.
func Open(ctx context.Context, cfg config.SnowflakeConfig) (*sql.DB, error) {
	if strings.TrimSpace(cfg.Account) == "" {
		return nil, fmt.Errorf("snowflake account is required")
	}
	if strings.TrimSpace(cfg.User) == "" {
		return nil, fmt.Errorf("snowflake user is required")
	}

	dsnCfg := &gosnowflake.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Password:  cfg.Password,
		Role:      cfg.Role,
		Warehouse: cfg.Warehouse,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Host:      cfg.Host,
	}

	if cfg.PrivateKeyPath != "" {
		key, err := loadPrivateKey(cfg.PrivateKeyPath, cfg.PrivateKeyPassphrase)
		if err != nil {
			return nil, fmt.Errorf("load private key: %w", err)
		}
		dsnCfg.PrivateKey = key
		dsnCfg.Authenticator = gosnowflake.AuthTypeJwt
	}
	if cfg.Token != "" {
		dsnCfg.Token = cfg.Token
		dsnCfg.Authenticator = gosnowflake.AuthTypeOAuth
	}
	if cfg.Authenticator != "" {
		auth, err := parseAuthenticator(cfg.Authenticator)
		if err != nil {
			return nil, err
		}
		dsnCfg.Authenticator = auth
	}

	dsn, err := gosnowflake.DSN(dsnCfg)
	if err != nil {
		return nil, fmt.Errorf("build snowflake dsn: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snowflake session: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping snowflake: %w", err)
	}

	return db, nil
}

func parseAuthenticator(raw string) (gosnowflake.AuthType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "snowflake":
		return gosnowflake.AuthTypeSnowflake, nil
	case "oauth":
		return gosnowflake.AuthTypeOAuth, nil
	case "externalbrowser":
		return gosnowflake.AuthTypeExternalBrowser, nil
	case "snowflake_jwt", "jwt":
		return gosnowflake.AuthTypeJwt, nil
	default:
		return 0, fmt.Errorf("unsupported authenticator: %q", raw)
	}
}

func loadPrivateKey(path, passphrase string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %q", path)
	}

	if passphrase != "" {
		key, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("parse encrypted private key: %w", err)
		}
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return key, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + path[1:]
}
