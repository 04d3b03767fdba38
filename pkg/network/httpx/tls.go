package httpx

import "golang.org/x/crypto/acme/autocert"

const certCacheDir = "assets/cache"

type TLS struct {
	CertManager *autocert.Manager
}

// NewTLSConfig makes a Let's Encrypt certificate manager
// limited to the host (if set).
func NewTLSConfig(host string) *TLS {
	m := &autocert.Manager{
		Prompt: autocert.AcceptTOS,
		Cache:  autocert.DirCache(certCacheDir),
	}
	if host != "" {
		m.HostPolicy = autocert.HostWhitelist(host)
	}
	return &TLS{CertManager: m}
}
