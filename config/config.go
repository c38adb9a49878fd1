// Package config loads the gateway's configuration from an INI file with
// environment variable overrides, the same shape as the teacher's
// config.Load/loadProxyConfig, generalized from a MariaDB/Postgres
// dual-protocol proxy config to the single Postgres-wire-to-IRIS gateway
// enumerated in spec.md §6.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// AuthMethod names one entry in the ordered authentication chain.
type AuthMethod string

const (
	AuthTrust    AuthMethod = "trust"
	AuthSCRAM    AuthMethod = "scram"
	AuthOAuth    AuthMethod = "oauth"
	AuthVault    AuthMethod = "vault"
	AuthKerberos AuthMethod = "kerberos"
)

// IdentifierCasePolicy controls how the translator folds unquoted SQL
// identifiers before sending them to IRIS.
type IdentifierCasePolicy string

const (
	CasePreserve IdentifierCasePolicy = "preserve"
	CaseUpper    IdentifierCasePolicy = "upper"
	CaseLower    IdentifierCasePolicy = "lower"
)

// BackendVariant selects which backend.Dialer implementation serves
// connections.
type BackendVariant string

const (
	BackendInProcess BackendVariant = "in-process"
	BackendPooled    BackendVariant = "pooled"
)

// TLSConfig carries the optional certificate/key pair offered on an
// SSLRequest. Both fields empty means TLS is never offered.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

// PoolConfig controls the pooled backend variant's sizing, mirroring
// backend/pooled.Config's fields one for one.
type PoolConfig struct {
	BaseSize            int32
	OverflowSize        int32
	AcquireTimeout      time.Duration
	RecycleAge          time.Duration
	ReconnectMinBackoff time.Duration
	ReconnectMaxBackoff time.Duration
}

// TranslateCacheConfig controls the translation cache's size and entry
// lifetime, mirroring translate.CacheConfig.
type TranslateCacheConfig struct {
	MaxMemory int64
	Workers   int
	TTL       time.Duration
}

// CopyConfig controls COPY defaults, mirroring copyproto.Options.
type CopyConfig struct {
	BatchSize int
}

// AuthProvidersConfig carries the settings each configured auth.Provider
// needs to construct itself; entries not named in AuthChain are ignored.
type AuthProvidersConfig struct {
	SCRAMVerifierFile string

	OAuthIntrospectionURL  string
	OAuthClientID          string
	OAuthClientSecret      string
	OAuthTokenURL          string
	OAuthCacheTTL          time.Duration

	VaultAddr        string
	VaultToken       string
	VaultMountPath   string
	VaultNegativeTTL time.Duration

	KerberosKeytabFile       string
	KerberosServicePrincipal string
}

// Config holds every knob spec.md §6 enumerates.
type Config struct {
	Listen string
	TLS    TLSConfig

	AuthChain []AuthMethod
	Auth      AuthProvidersConfig

	BackendVariant BackendVariant
	DriverName     string // database/sql driver name registered for IRIS; ignored by in-process
	DSN            string // pooled variant's database/sql DSN; ignored by in-process
	Pool           PoolConfig

	TranslateCache   TranslateCacheConfig
	StatementTimeout time.Duration
	CasePolicy       IdentifierCasePolicy
	Copy             CopyConfig
	MaxMessageBytes  int

	ServerVersion string
	TimeZone      string
}

// Load reads path as an INI file and applies TQPGWIRE_-prefixed
// environment variable overrides, generalizing the teacher's
// loadProxyConfig from a per-protocol section to the gateway's single
// flat configuration.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	sec := f.Section("")

	cfg := &Config{
		Listen: sec.Key("listen").MustString(":5432"),
		TLS: TLSConfig{
			CertFile: sec.Key("tls_cert_file").String(),
			KeyFile:  sec.Key("tls_key_file").String(),
		},
		AuthChain: parseAuthChain(sec.Key("auth_chain").MustString("trust")),
		Auth: AuthProvidersConfig{
			SCRAMVerifierFile:        sec.Key("scram_verifier_file").String(),
			OAuthIntrospectionURL:    sec.Key("oauth_introspection_url").String(),
			OAuthClientID:            sec.Key("oauth_client_id").String(),
			OAuthClientSecret:        sec.Key("oauth_client_secret").String(),
			OAuthTokenURL:            sec.Key("oauth_token_url").String(),
			OAuthCacheTTL:            sec.Key("oauth_cache_ttl").MustDuration(30 * time.Second),
			VaultAddr:                sec.Key("vault_addr").String(),
			VaultToken:               sec.Key("vault_token").String(),
			VaultMountPath:           sec.Key("vault_mount_path").MustString("secret/data"),
			VaultNegativeTTL:         sec.Key("vault_negative_ttl").MustDuration(30 * time.Second),
			KerberosKeytabFile:       sec.Key("kerberos_keytab_file").String(),
			KerberosServicePrincipal: sec.Key("kerberos_service_principal").String(),
		},
		BackendVariant: BackendVariant(sec.Key("backend_variant").MustString(string(BackendInProcess))),
		DriverName:     sec.Key("driver_name").MustString("iris"),
		DSN:            sec.Key("dsn").String(),
		Pool: PoolConfig{
			BaseSize:            int32(sec.Key("pool_base_size").MustInt(4)),
			OverflowSize:        int32(sec.Key("pool_overflow_size").MustInt(4)),
			AcquireTimeout:      sec.Key("pool_acquire_timeout").MustDuration(5 * time.Second),
			RecycleAge:          sec.Key("pool_recycle_age").MustDuration(30 * time.Minute),
			ReconnectMinBackoff: sec.Key("pool_reconnect_min_backoff").MustDuration(100 * time.Millisecond),
			ReconnectMaxBackoff: sec.Key("pool_reconnect_max_backoff").MustDuration(5 * time.Second),
		},
		TranslateCache: TranslateCacheConfig{
			MaxMemory: sec.Key("translate_cache_max_memory").MustInt64(16 * 1024 * 1024),
			Workers:   sec.Key("translate_cache_workers").MustInt(4),
			TTL:       sec.Key("translate_cache_ttl").MustDuration(10 * time.Minute),
		},
		StatementTimeout: sec.Key("statement_timeout").MustDuration(0),
		CasePolicy:       IdentifierCasePolicy(sec.Key("identifier_case_policy").MustString(string(CasePreserve))),
		Copy: CopyConfig{
			BatchSize: sec.Key("copy_batch_size").MustInt(100),
		},
		MaxMessageBytes: sec.Key("max_message_bytes").MustInt(64 * 1024 * 1024),
		ServerVersion:   sec.Key("server_version").MustString("16.0"),
		TimeZone:        sec.Key("timezone").MustString("UTC"),
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseAuthChain(raw string) []AuthMethod {
	parts := strings.Split(raw, ",")
	chain := make([]AuthMethod, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			chain = append(chain, AuthMethod(p))
		}
	}
	return chain
}

// applyEnvOverrides mirrors the teacher's TQDBPROXY_*_LISTEN overrides,
// generalized to every scalar field a deployment is likely to need to
// override without touching the INI file: listen address, DSN, auth
// chain, backend variant, and statement timeout in milliseconds.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TQPGWIRE_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("TQPGWIRE_DSN"); v != "" {
		cfg.DSN = v
	}
	if v := os.Getenv("TQPGWIRE_AUTH_CHAIN"); v != "" {
		cfg.AuthChain = parseAuthChain(v)
	}
	if v := os.Getenv("TQPGWIRE_BACKEND_VARIANT"); v != "" {
		cfg.BackendVariant = BackendVariant(v)
	}
	if v := os.Getenv("TQPGWIRE_STATEMENT_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.StatementTimeout = time.Duration(ms) * time.Millisecond
		}
	}
}

func (c *Config) validate() error {
	switch c.BackendVariant {
	case BackendInProcess, BackendPooled:
	default:
		return fmt.Errorf("config: unknown backend_variant %q", c.BackendVariant)
	}
	switch c.CasePolicy {
	case CasePreserve, CaseUpper, CaseLower:
	default:
		return fmt.Errorf("config: unknown identifier_case_policy %q", c.CasePolicy)
	}
	if len(c.AuthChain) == 0 {
		return fmt.Errorf("config: auth_chain must name at least one provider")
	}
	for _, m := range c.AuthChain {
		switch m {
		case AuthTrust, AuthSCRAM, AuthOAuth, AuthVault, AuthKerberos:
		default:
			return fmt.Errorf("config: unknown auth method %q", m)
		}
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return fmt.Errorf("config: tls_cert_file and tls_key_file must be set together")
	}
	return nil
}
