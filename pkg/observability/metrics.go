// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the attaché service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// TransferBuckets defines histogram buckets suited for file transfer
// latencies, ranging from 10ms to 2 minutes.
var TransferBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attache_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attache_request_duration_seconds",
			Help:    "Request duration",
			Buckets: TransferBuckets,
		},
		[]string{"method"},
	)

	// UploadsTotal counts accepted uploads.
	UploadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attache_uploads_total",
			Help: "Accepted uploads",
		},
	)

	// UploadBytesTotal counts accepted upload bytes.
	UploadBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attache_upload_bytes_total",
			Help: "Accepted upload bytes",
		},
	)

	// DownloadsTotal counts served downloads by access path
	// (authenticated or signed link).
	DownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attache_downloads_total",
			Help: "Served downloads",
		},
		[]string{"access"},
	)

	// QuotaRejectionsTotal counts uploads rejected by quota, by reason.
	QuotaRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attache_quota_rejections_total",
			Help: "Quota rejections",
		},
		[]string{"reason"},
	)

	// SignedLinksIssuedTotal counts issued download links.
	SignedLinksIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attache_signed_links_issued_total",
			Help: "Issued signed links",
		},
	)

	// SignedLinkRejectionsTotal counts rejected public download requests.
	SignedLinkRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attache_signed_link_rejections_total",
			Help: "Rejected signed link verifications",
		},
	)

	// AuthFailuresTotal counts failed authentication attempts.
	AuthFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attache_auth_failures_total",
			Help: "Authentication failures",
		},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attache_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		UploadsTotal,
		UploadBytesTotal,
		DownloadsTotal,
		QuotaRejectionsTotal,
		SignedLinksIssuedTotal,
		SignedLinkRejectionsTotal,
		AuthFailuresTotal,
		RateLimitRejectedTotal,
	)
}
