package transport

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

type TLS struct {
	cfg *tls.Config
	TCP
}

func NewTLS(cfg *tls.Config) *TLS {
	return &TLS{cfg: cfg}
}

func (t *TLS) Bind(addr string) error {
	tcp, err := bindTCP(addr)
	if err != nil {
		return err
	}

	l := tls.NewListener(tcp, t.cfg)
	t.TCP = newTCP(tlsAdapter{tcp, l})

	return nil
}

type tlsAdapter struct {
	*net.TCPListener
	tls net.Listener
}

func (t tlsAdapter) Accept() (net.Conn, error) {
	return t.tls.Accept()
}

// Certificates returns a TLS config serving the passed certificates.
func Certificates(certs ...tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: certs,
	}
}

// LoadCertificate reads a PEM-encoded key pair.
func LoadCertificate(cert, key string) (*tls.Config, error) {
	certificate, err := tls.LoadX509KeyPair(cert, key)
	if err != nil {
		return nil, err
	}

	return Certificates(certificate), nil
}

// AutoTLS returns a TLS config obtaining certificates from Let's Encrypt for the domains. The
// certificates are cached in cacheDir; an empty one stands for the user cache directory.
func AutoTLS(cacheDir string, domains ...string) (*tls.Config, error) {
	m := &autocert.Manager{
		Prompt: autocert.AcceptTOS,
	}

	if len(domains) > 0 {
		m.HostPolicy = autocert.HostWhitelist(domains...)
	}

	if cacheDir == "" {
		cacheDir = defaultCacheDir()
	}

	if err := os.MkdirAll(cacheDir, 0o700); err != nil {
		return nil, err
	}

	m.Cache = autocert.DirCache(cacheDir)

	return m.TLSConfig(), nil
}

// SelfSigned generates an in-memory certificate for the hosts, which may be either domain
// names or IP addresses.
func SelfSigned(hosts ...string) (tls.Certificate, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	notBefore := time.Now()
	template := x509.Certificate{
		SerialNumber:          big.NewInt(notBefore.UnixNano()),
		Subject:               pkix.Name{Organization: []string{"ember"}},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(10 * 365 * 24 * time.Hour), // 10 years validity
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	for _, host := range hosts {
		if ip := net.ParseIP(host); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, host)
		}
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  priv,
	}, nil
}

func defaultCacheDir() string {
	const base = "ember-autocert"

	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, base)
	}

	if runtime.GOOS == "windows" {
		return filepath.Join(os.TempDir(), base)
	}

	return filepath.Join(os.Getenv("HOME"), ".cache", base)
}
