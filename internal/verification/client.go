package verification

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"conectasat/internal/platform/metrics"
)

// DefaultEndpoint is SAT's public consulta service.
const DefaultEndpoint = "https://consultaqr.facturaelectronica.sat.gob.mx/ConsultaCFDIService.svc"

const (
	soapAction     = "http://tempuri.org/IConsultaCFDIService/Consulta"
	contentTypeXML = "text/xml;charset=UTF-8"
	requestTimeout = 15 * time.Second
)

// Client performs consulta calls against the SAT verification service. It
// holds only fixed configuration, so one value can be shared by any number of
// goroutines; there is no package-level singleton.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the SAT endpoint, mainly for tests and staging.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. The caller owns the
// timeout in that case.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMetrics attaches prometheus instrumentation to consulta calls.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient builds a consulta client with the fixed 15 second timeout and a
// single attempt per call. No retries, no backoff: a failed call is reported
// once and immediately.
func NewClient(logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
		tracer:     otel.Tracer("conectasat/verification"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verify performs one consulta and normalizes whatever SAT answered.
// Failures surface as *TransportError, *ServiceError or *ParseError; an empty
// Estado on a nil error means SAT answered but the status could not be
// resolved, which is a valid outcome, not an error.
func (c *Client) Verify(ctx context.Context, req Request) (Result, error) {
	ctx, span := c.tracer.Start(ctx, "verification.Consulta", trace.WithAttributes(
		attribute.String("cfdi.uuid", req.UUID),
		attribute.String("cfdi.emisor_rfc", req.EmisorRFC),
		attribute.String("cfdi.receptor_rfc", req.ReceptorRFC),
	))
	defer span.End()

	c.logger.InfoContext(ctx, "verifying CFDI",
		"uuid", req.UUID,
		"emisor_rfc", req.EmisorRFC,
		"receptor_rfc", req.ReceptorRFC,
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(BuildEnvelope(req)))
	if err != nil {
		return Result{}, c.fail(ctx, req, &TransportError{Cause: err})
	}
	httpReq.Header.Set("Content-Type", contentTypeXML)
	httpReq.Header.Set("SOAPAction", soapAction)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	c.metrics.ObserveConsultaDuration(time.Since(start).Seconds())
	if err != nil {
		return Result{}, c.fail(ctx, req, &TransportError{Cause: err})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, c.fail(ctx, req, &TransportError{Cause: err})
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, c.fail(ctx, req, &ServiceError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	raw, err := prettyXML(body)
	if err != nil {
		return Result{}, c.fail(ctx, req, &ParseError{Cause: err})
	}
	root, err := parseDocument(body)
	if err != nil {
		return Result{}, c.fail(ctx, req, &ParseError{Cause: err})
	}

	result := normalize(extract(root), raw)
	c.metrics.IncVerification(metrics.OutcomeOK)
	c.logger.InfoContext(ctx, "CFDI verification completed",
		"uuid", req.UUID,
		"estado", result.Estado,
	)
	return result, nil
}

func (c *Client) fail(ctx context.Context, req Request, err error) error {
	c.metrics.IncVerification(outcomeFor(err))
	c.logger.ErrorContext(ctx, "CFDI verification failed",
		"uuid", req.UUID,
		"error", err.Error(),
	)
	return err
}

func outcomeFor(err error) string {
	switch err.(type) {
	case *TransportError:
		return metrics.OutcomeTransportError
	case *ServiceError:
		return metrics.OutcomeServiceError
	case *ParseError:
		return metrics.OutcomeParseError
	default:
		return metrics.OutcomeTransportError
	}
}
