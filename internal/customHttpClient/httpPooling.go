package customHttpClient

import (
	"net/http"
	"sync"
	"time"

	"github.com/akolanti/ExamAPI/internal/config"
)

var (
	once   sync.Once
	client *http.Client
)

// Shared returns one pooled client for every provider SDK so connections are reused across calls.
func Shared() *http.Client {
	once.Do(func() {
		client = New(config.MaxIdleConns, config.MaxIdleConnsPerHost, config.IdleConnTimeout, 0)
	})
	return client
}

// New builds a pooled client; timeout 0 leaves deadlines to the request context.
func New(maxIdle int, maxIdlePerHost int, idleTimeout time.Duration, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = maxIdle
	transport.MaxIdleConnsPerHost = maxIdlePerHost
	transport.IdleConnTimeout = idleTimeout
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
