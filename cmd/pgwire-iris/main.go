// Command pgwire-iris runs the PostgreSQL-wire-protocol gateway to
// InterSystems IRIS: it loads configuration, wires the backend executor,
// authentication chain, translation cache and catalog shim together, and
// serves client connections until a shutdown signal arrives, the same
// overall shape as the teacher's cmd/tqdbproxy/main.go.
package main

import (
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/mevdschee/pgwire-iris/accept"
	"github.com/mevdschee/pgwire-iris/auth"
	"github.com/mevdschee/pgwire-iris/backend"
	"github.com/mevdschee/pgwire-iris/backend/pooled"
	"github.com/mevdschee/pgwire-iris/cancel"
	"github.com/mevdschee/pgwire-iris/catalog"
	"github.com/mevdschee/pgwire-iris/config"
	"github.com/mevdschee/pgwire-iris/copyproto"
	"github.com/mevdschee/pgwire-iris/metrics"
	"github.com/mevdschee/pgwire-iris/session"
	"github.com/mevdschee/pgwire-iris/translate"
	"github.com/mevdschee/pgwire-iris/typecodec"
)

func main() {
	configPath := flag.String("config", "config.ini", "Path to configuration file")
	metricsAddr := flag.String("metrics", ":9090", "Metrics endpoint address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	metrics.Init()
	collector := metrics.Collector{}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		log.Printf("Metrics endpoint at http://localhost%s/metrics", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	dialer, err := buildDialer(cfg, collector)
	if err != nil {
		log.Fatalf("Failed to build backend dialer: %v", err)
	}
	if d, ok := dialer.(*pooled.Dialer); ok {
		go pollPoolStats(d, collector)
	}

	chain, err := buildAuthChain(cfg)
	if err != nil {
		log.Fatalf("Failed to build auth chain: %v", err)
	}

	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to load TLS certificate: %v", err)
	}

	tcache, err := translate.NewCache(translate.CacheConfig{
		MaxMemory: cfg.TranslateCache.MaxMemory,
		Workers:   cfg.TranslateCache.Workers,
		TTL:       cfg.TranslateCache.TTL,
	}, collector)
	if err != nil {
		log.Fatalf("Failed to build translation cache: %v", err)
	}
	defer tcache.Close()

	listener := &accept.Listener{
		Name:            "pgwire-iris",
		Addr:            cfg.Listen,
		TLSConfig:       tlsConfig,
		MaxMessageBytes: cfg.MaxMessageBytes,
		Dialer:          dialer,
		Chain:           chain,
		Types:           typecodec.NewRegistry(),
		TCache:          tcache,
		Catalog:         catalog.New(cfg.ServerVersion),
		Metrics:         collector,
		Options: session.Options{
			CasePolicy:       casePolicyFrom(cfg.CasePolicy),
			StatementTimeout: cfg.StatementTimeout.Milliseconds(),
			Copy:             copyproto.Options{Delimiter: ',', NullString: `\N`, BatchSize: cfg.Copy.BatchSize},
		},
		Cancel: cancel.NewRegistry(),
		ServerParams: accept.ServerParams{
			"server_version":              cfg.ServerVersion,
			"client_encoding":             "UTF8",
			"server_encoding":             "UTF8",
			"DateStyle":                   "ISO, MDY",
			"integer_datetimes":           "on",
			"standard_conforming_strings": "on",
			"IntervalStyle":               "postgres",
			"TimeZone":                    cfg.TimeZone,
			"is_superuser":                "off",
		},
		ConnMetrics: collector,
	}

	addr, err := listener.Start()
	if err != nil {
		log.Fatalf("Failed to start listener: %v", err)
	}
	log.Printf("pgwire-iris listening on %s (backend variant: %s)", addr, cfg.BackendVariant)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")
}

// buildDialer selects backend.Dialer implementation by cfg.BackendVariant.
// The in-process variant needs a concrete inproc.Embedded implementation,
// which is only available when this binary is linked inside InterSystems
// IRIS's own embedded Go environment (that environment supplies its own
// entry point, not this flag-parsing main); here it is reported as
// unavailable rather than faked with a stub that would silently behave
// like no backend at all.
func buildDialer(cfg *config.Config, sink backend.MetricsSink) (backend.Dialer, error) {
	switch cfg.BackendVariant {
	case config.BackendPooled:
		return pooled.NewDialer(pooled.Config{
			DriverName:          cfg.DriverName,
			DSN:                 cfg.DSN,
			BaseSize:            cfg.Pool.BaseSize,
			OverflowSize:        cfg.Pool.OverflowSize,
			AcquireTimeout:      cfg.Pool.AcquireTimeout,
			RecycleAge:          cfg.Pool.RecycleAge,
			ReconnectMinBackoff: cfg.Pool.ReconnectMinBackoff,
			ReconnectMaxBackoff: cfg.Pool.ReconnectMaxBackoff,
		}, sink)
	case config.BackendInProcess:
		return nil, fmt.Errorf("backend_variant=in-process requires linking an inproc.Embedded implementation supplied by the IRIS embedded Go runtime; this standalone binary only wires the pooled variant")
	default:
		return nil, fmt.Errorf("unknown backend_variant %q", cfg.BackendVariant)
	}
}

func buildTLSConfig(cfg *config.Config) (*tls.Config, error) {
	if cfg.TLS.CertFile == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func buildAuthChain(cfg *config.Config) (*auth.Chain, error) {
	var providers []auth.Provider
	for _, method := range cfg.AuthChain {
		switch method {
		case config.AuthTrust:
			providers = append(providers, auth.TrustProvider{})
		case config.AuthSCRAM:
			if cfg.Auth.SCRAMVerifierFile == "" {
				log.Printf("[auth] scram configured with no scram_verifier_file, skipping")
				continue
			}
			store, err := auth.LoadFileVerifierStore(cfg.Auth.SCRAMVerifierFile)
			if err != nil {
				return nil, err
			}
			providers = append(providers, &auth.SCRAMProvider{Store: store})
		case config.AuthOAuth:
			providers = append(providers, &auth.OAuthProvider{
				Config: clientcredentials.Config{
					ClientID:     cfg.Auth.OAuthClientID,
					ClientSecret: cfg.Auth.OAuthClientSecret,
					TokenURL:     cfg.Auth.OAuthTokenURL,
				},
				IntrospectionURL: cfg.Auth.OAuthIntrospectionURL,
				CacheTTL:         cfg.Auth.OAuthCacheTTL,
			})
		case config.AuthVault:
			vcfg := vaultapi.DefaultConfig()
			vcfg.Address = cfg.Auth.VaultAddr
			client, err := vaultapi.NewClient(vcfg)
			if err != nil {
				return nil, err
			}
			client.SetToken(cfg.Auth.VaultToken)
			providers = append(providers, &auth.VaultProvider{
				Client:      client,
				MountPath:   cfg.Auth.VaultMountPath,
				NegativeTTL: cfg.Auth.VaultNegativeTTL,
			})
		case config.AuthKerberos:
			kt, err := keytab.Load(cfg.Auth.KerberosKeytabFile)
			if err != nil {
				return nil, err
			}
			providers = append(providers, &auth.KerberosProvider{
				Keytab:           kt,
				ServicePrincipal: cfg.Auth.KerberosServicePrincipal,
			})
		}
	}
	return &auth.Chain{Providers: providers}, nil
}

func casePolicyFrom(p config.IdentifierCasePolicy) translate.IdentifierCasePolicy {
	switch p {
	case config.CaseUpper:
		return translate.CaseUpper
	case config.CaseLower:
		return translate.CaseLower
	default:
		return translate.CasePreserve
	}
}

func pollPoolStats(d *pooled.Dialer, collector metrics.Collector) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		collector.SetPoolConnectionsActive(int(d.ActiveConnections()))
	}
}
