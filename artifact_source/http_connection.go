package artifact_source

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/rs/dnscache"
	"golang.org/x/sync/semaphore"

	"github.com/plerkle-io/snapshot-geyser/constants"
)

const dnsLookupMaxParallel = 25

// HttpConnection tunes the transport shared by the http(s) and s3 sources
type HttpConnection struct {
	// MaxConnsPerHost limits connections to a single host, 0 for the default
	MaxConnsPerHost *int `hcl:"max_conns_per_host"`
	// DnsCacheRefreshSecs is the DNS cache refresh interval. 0 disables refresh, -1 disables the cache
	DnsCacheRefreshSecs *int `hcl:"dns_cache_refresh_secs"`
}

func (c *HttpConnection) Validate() error {
	if c.MaxConnsPerHost != nil && *c.MaxConnsPerHost < 0 {
		return fmt.Errorf("max_conns_per_host must not be negative")
	}
	if c.DnsCacheRefreshSecs != nil && *c.DnsCacheRefreshSecs < -1 {
		return fmt.Errorf("dns_cache_refresh_secs must be -1 or greater")
	}
	return nil
}

func (c *HttpConnection) Identifier() string {
	return "http"
}

func (c *HttpConnection) maxConnsPerHost() int {
	if c.MaxConnsPerHost != nil {
		return *c.MaxConnsPerHost
	}
	return constants.DefaultMaxConnsPerHost
}

func (c *HttpConnection) dnsCacheRefreshSecs() int {
	if c.DnsCacheRefreshSecs != nil {
		return *c.DnsCacheRefreshSecs
	}
	return constants.DefaultDNSCacheRefreshSecs
}

var (
	// one resolver for the process, refreshed in the background
	sharedResolver     *dnscache.Resolver
	sharedResolverOnce sync.Once
)

func resolver(refreshSecs int) *dnscache.Resolver {
	sharedResolverOnce.Do(func() {
		sharedResolver = &dnscache.Resolver{}
		if refreshSecs > 0 {
			go func() {
				t := time.NewTicker(time.Duration(refreshSecs) * time.Second)
				defer t.Stop()
				for range t.C {
					sharedResolver.Refresh(true)
				}
			}()
		}
	})
	return sharedResolver
}

// dialContext returns a dialer which resolves hosts through the DNS cache, limiting parallel lookups.
// It returns nil when the cache is disabled
func (c *HttpConnection) dialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	refreshSecs := c.dnsCacheRefreshSecs()
	if refreshSecs < 0 {
		return nil
	}
	r := resolver(refreshSecs)
	sem := semaphore.NewWeighted(dnsLookupMaxParallel)

	return func(ctx context.Context, network string, addr string) (conn net.Conn, err error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		ips, err := r.LookupHost(ctx, host)
		sem.Release(1)
		if err != nil {
			return nil, err
		}

		// try each address in turn until one connects
		for _, ip := range ips {
			conn, err = dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				break
			}
		}
		return
	}
}

// applyTransport sets the connection limits and the caching dialer on tr
func (c *HttpConnection) applyTransport(tr *http.Transport, dialer *net.Dialer) {
	if n := c.maxConnsPerHost(); n > 0 {
		tr.MaxConnsPerHost = n
	}
	if dial := c.dialContext(dialer); dial != nil {
		tr.DialContext = dial
	}
}

// NewClient returns a pooled http client for streaming downloads, without an overall timeout
func (c *HttpConnection) NewClient() *http.Client {
	tr := cleanhttp.DefaultPooledTransport()
	c.applyTransport(tr, &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	})
	return &http.Client{Transport: tr}
}
