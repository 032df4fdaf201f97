// Package server is the HTTP edge of the upload gateway. Handlers glue the
// request surface (multipart forms, JSON bodies, remote blob fetches) to the
// core pipeline: authenticate the caller's detached signature, confirm the
// identity is registered in the user directory, then hand the payload to the
// uploader. All upload outcomes are rendered as {"url", "error"} objects;
// the process never surfaces a raw fault to a client.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wordcelclub/upload-gateway/pkg/auth"
	"github.com/wordcelclub/upload-gateway/pkg/config"
	"github.com/wordcelclub/upload-gateway/pkg/funding"
	"github.com/wordcelclub/upload-gateway/pkg/upload"
)

// Uploader runs one upload attempt end to end. *upload.Uploader is the
// production implementation.
type Uploader interface {
	Upload(ctx context.Context, src upload.Source) upload.Result
}

// Directory answers whether a public key belongs to a registered user.
type Directory interface {
	Exists(ctx context.Context, publicKey string) bool
}

// CacheWarmer primes the CDN for a freshly uploaded URL. Failures are
// non-fatal to the upload.
type CacheWarmer interface {
	Warm(ctx context.Context, arweaveURL string) error
}

// BlobFetcher downloads remote content for the /url variant.
type BlobFetcher interface {
	Fetch(ctx context.Context, url string) (contentType string, data []byte, err error)
}

// Server wires the gateway's HTTP routes to the core pipeline.
type Server struct {
	cfg       *config.Config
	auth      *auth.Authenticator
	uploader  Uploader
	directory Directory
	cdn       CacheWarmer
	fetcher   BlobFetcher

	imagePolicy funding.Policy
	jsonPolicy  funding.Policy
}

// New builds a Server from its collaborators. cfg must already be validated.
func New(cfg *config.Config, authn *auth.Authenticator, uploader Uploader, directory Directory, cdn CacheWarmer, fetcher BlobFetcher) *Server {
	return &Server{
		cfg:         cfg,
		auth:        authn,
		uploader:    uploader,
		directory:   directory,
		cdn:         cdn,
		fetcher:     fetcher,
		imagePolicy: funding.NewPolicy(cfg.Funding.ImageSafety, cfg.Funding.ImageFund),
		jsonPolicy:  funding.NewPolicy(cfg.Funding.JSONSafety, cfg.Funding.JSONFund),
	}
}

// Router assembles the gin engine: request-id and logging middleware, CORS,
// panic recovery, the three upload routes, liveness, and Prometheus metrics.
func (s *Server) Router() *gin.Engine {
	engine := gin.New()
	engine.Use(RequestID(), Logger(), gin.Recovery())
	engine.Use(cors.New(s.corsConfig()))

	engine.GET("/", s.handleLiveness)
	engine.POST("/upload", s.handleFormUpload)
	engine.POST("/url", s.handleBlobUpload)
	engine.POST("/json", s.handleJSONUpload)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return engine
}

func (s *Server) corsConfig() cors.Config {
	cc := cors.DefaultConfig()
	if len(s.cfg.AllowedOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = s.cfg.AllowedOrigins
	}
	cc.AllowHeaders = append(cc.AllowHeaders, "Authorization")
	return cc
}

// httpBlobFetcher is the production BlobFetcher: a plain GET bounded by the
// configured fetch timeout.
type httpBlobFetcher struct {
	http *http.Client
}

// NewBlobFetcher returns a BlobFetcher with the given per-request timeout.
func NewBlobFetcher(timeout time.Duration) BlobFetcher {
	return &httpBlobFetcher{http: &http.Client{Timeout: timeout}}
}

func (f *httpBlobFetcher) Fetch(ctx context.Context, url string) (string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	// Cap the read at one byte past the payload ceiling; the uploader turns
	// an at-limit overrun into the size rejection.
	data, err := io.ReadAll(io.LimitReader(resp.Body, upload.MaxPayloadBytes+1))
	if err != nil {
		return "", nil, err
	}
	return resp.Header.Get("Content-Type"), data, nil
}
