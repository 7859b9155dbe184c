package serve

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chirino/social-service/internal/config"
	"github.com/soheilhy/cmux"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const defaultReadHeaderTimeout = 5 * time.Second

// RunningServers is a bound listener and the HTTP servers attached to it.
type RunningServers struct {
	Addr  net.Addr
	Port  int
	Close func(ctx context.Context) error
}

// StartSinglePortHTTP serves handler on cfg.Port. TLS handshakes go to an
// HTTP/1.1+h2 server; everything else is served as plaintext HTTP/1.1 or h2c.
// Port 0 binds a random port, reported in RunningServers.Port.
func StartSinglePortHTTP(_ context.Context, cfg config.ListenerConfig, handler http.Handler) (*RunningServers, error) {
	if !cfg.EnablePlainText && !cfg.EnableTLS {
		return nil, errors.New("listener needs plaintext, tls or both enabled")
	}
	timeout := cfg.ReadHeaderTimeout
	if timeout == 0 {
		timeout = defaultReadHeaderTimeout
	}

	var cert tls.Certificate
	if cfg.EnableTLS {
		var err error
		if cert, err = loadServerCertificate(cfg.TLSCertFile, cfg.TLSKeyFile); err != nil {
			return nil, err
		}
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", cfg.Port, err)
	}
	mux := cmux.New(lis)

	var servers []*http.Server
	if cfg.EnableTLS {
		srv := &http.Server{Handler: handler, ReadHeaderTimeout: timeout}
		tlsLis := tls.NewListener(mux.Match(cmux.TLS()), &tls.Config{
			Certificates: []tls.Certificate{cert},
			NextProtos:   []string{"h2", "http/1.1"},
			MinVersion:   tls.VersionTLS12,
		})
		go serveHTTP("tls", srv, tlsLis)
		servers = append(servers, srv)
	}
	if cfg.EnablePlainText {
		srv := &http.Server{Handler: h2c.NewHandler(handler, &http2.Server{}), ReadHeaderTimeout: timeout}
		go serveHTTP("plaintext", srv, mux.Match(cmux.Any()))
		servers = append(servers, srv)
	}
	go func() {
		if err := mux.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Error("Connection multiplexer stopped", "err", err)
		}
	}()

	var once sync.Once
	closeFn := func(ctx context.Context) error {
		var errs []error
		once.Do(func() {
			for _, srv := range servers {
				if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
					errs = append(errs, err)
				}
			}
			_ = lis.Close()
		})
		return errors.Join(errs...)
	}

	running := &RunningServers{Addr: lis.Addr(), Close: closeFn}
	if tcp, ok := lis.Addr().(*net.TCPAddr); ok {
		running.Port = tcp.Port
	}
	return running, nil
}

func serveHTTP(kind string, srv *http.Server, lis net.Listener) {
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("HTTP server stopped", "listener", kind, "err", err)
	}
}

// loadServerCertificate loads the configured key pair, or issues a throwaway
// self-signed one when either file is unset.
func loadServerCertificate(certFile, keyFile string) (tls.Certificate, error) {
	if strings.TrimSpace(certFile) == "" || strings.TrimSpace(keyFile) == "" {
		log.Warn("No TLS key pair configured; using a self-signed certificate")
		return generateSelfSignedCertificate()
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("load tls key pair: %w", err)
	}
	return cert, nil
}

func generateSelfSignedCertificate() (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate tls key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate tls serial: %w", err)
	}

	now := time.Now()
	leaf := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "localhost", Organization: []string{"social-service"}},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.AddDate(1, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}
	der, err := x509.CreateCertificate(rand.Reader, leaf, leaf, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("sign tls certificate: %w", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}, nil
}
