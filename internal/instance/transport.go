package instance

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"

	"driftsync/pkg/logging"
)

// TLSConfig describes the transport security settings for the instance API.
type TLSConfig struct {
	// CABundle is a path to a PEM bundle of additional trusted roots.
	CABundle string

	// InsecureSkipVerify disables certificate verification. Test setups
	// only.
	InsecureSkipVerify bool
}

// transportCache memoizes built transports keyed by a content fingerprint
// of their configuration. Changing the CA bundle on disk yields a new
// fingerprint and therefore a fresh transport; an unchanged configuration
// is built at most once per process.
var transportCache = struct {
	mu sync.Mutex
	m  map[string]*http.Transport
	g  singleflight.Group
}{m: make(map[string]*http.Transport)}

// transportFor returns the shared transport for the given TLS configuration.
func transportFor(cfg TLSConfig) (*http.Transport, error) {
	fingerprint, caPEM, err := fingerprintTLS(cfg)
	if err != nil {
		return nil, err
	}

	transportCache.mu.Lock()
	if t, ok := transportCache.m[fingerprint]; ok {
		transportCache.mu.Unlock()
		return t, nil
	}
	transportCache.mu.Unlock()

	v, err, _ := transportCache.g.Do(fingerprint, func() (interface{}, error) {
		t, err := buildTransport(cfg, caPEM)
		if err != nil {
			return nil, err
		}
		transportCache.mu.Lock()
		transportCache.m[fingerprint] = t
		transportCache.mu.Unlock()
		logging.Debug("Transport", "Configured transport %s", fingerprint[:12])
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*http.Transport), nil
}

// fingerprintTLS hashes the effective configuration content, not the file
// path, so that a rotated CA bundle reconfigures the transport.
func fingerprintTLS(cfg TLSConfig) (string, []byte, error) {
	h := sha256.New()
	var caPEM []byte
	if cfg.CABundle != "" {
		var err error
		caPEM, err = os.ReadFile(cfg.CABundle)
		if err != nil {
			return "", nil, fmt.Errorf("reading CA bundle %s: %w", cfg.CABundle, err)
		}
		h.Write(caPEM)
	}
	if cfg.InsecureSkipVerify {
		h.Write([]byte("insecure"))
	}
	return hex.EncodeToString(h.Sum(nil)), caPEM, nil
}

func buildTransport(cfg TLSConfig, caPEM []byte) (*http.Transport, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}
	if len(caPEM) > 0 {
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("CA bundle %s contains no usable certificates", cfg.CABundle)
		}
		tlsConfig.RootCAs = pool
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	return transport, nil
}
