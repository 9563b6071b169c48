package network

import (
	"math/rand"
	"net/url"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	fhttpcookiejar "github.com/bogdanfinn/fhttp/cookiejar"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// Client wraps a tls-client with a Chrome fingerprint, a cookie jar, rotating
// user agents and optional proxy rotation. One Client is one browsing
// identity; ResetSession swaps in a fresh one after a block.
type Client struct {
	http       tls_client.HttpClient
	rotator    *Rotator
	userAgents []string
	rand       *rand.Rand
}

func NewClient(rotator *Rotator, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	jar, _ := fhttpcookiejar.New(nil)

	client, err := tls_client.NewHttpClient(
		tls_client.NewNoopLogger(),
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithTimeoutSeconds(int(timeout.Seconds())),
		tls_client.WithCookieJar(jar),
	)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Client{
		http:       client,
		rotator:    rotator,
		userAgents: append([]string{}, userAgents...),
		rand:       rng,
	}, nil
}

func (c *Client) Do(req *fhttp.Request) (*fhttp.Response, error) {
	proxy, _ := c.rotateProxy()
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.randomUA())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if proxy != nil {
		c.rotator.Report(proxy, resp.StatusCode)
	}
	return resp, nil
}

// ResetSession discards the current cookie jar so the next request starts a
// fresh identity. The per-request proxy rotation picks the next proxy anyway.
func (c *Client) ResetSession() {
	jar, _ := fhttpcookiejar.New(nil)
	c.http.SetCookieJar(jar)
}

func (c *Client) rotateProxy() (*url.URL, error) {
	if c.rotator == nil {
		return nil, nil
	}
	proxy, err := c.rotator.Next()
	if err != nil {
		return nil, err
	}

	if proxy != nil {
		_ = c.http.SetProxy(proxy.String())
	}
	return proxy, nil
}

func (c *Client) randomUA() string {
	if len(c.userAgents) == 0 {
		return ""
	}
	return c.userAgents[c.rand.Intn(len(c.userAgents))]
}
