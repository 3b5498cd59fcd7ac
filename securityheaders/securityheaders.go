// Package securityheaders applies a fixed catalogue of security response
// headers to HTTP, grpc-gateway and gRPC responses.
package securityheaders

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// Config holds the configuration for the security headers middleware
type Config struct {
	// Options overrides the per-rule defaults
	Options Options `json:"options" yaml:"options" toml:"options"`
	// SkipPaths defines URL paths and gRPC methods left untouched.
	// Middleware matches the URL path and the interceptors the full method.
	// Gateway hooks match the full method, the route pattern
	// (e.g. /v1/things/{id}) and, for errors, the URL path.
	SkipPaths []string `json:"skip_paths" yaml:"skip_paths" toml:"skip_paths"`
	// Debug enables debug logging
	Debug bool `json:"debug" yaml:"debug" toml:"debug"`
}

const (
	hookAfter = "after"
	hookError = "error"
)

// SecurityHeaders applies the rule catalogue with a fixed set of effective
// options. It is safe for concurrent use.
type SecurityHeaders struct {
	config    *Config
	effective EffectiveOptions
	skipPaths map[string]bool
	logger    Logger
	metrics   *Metrics

	responses      atomic.Int64
	htmlResponses  atomic.Int64
	errorResponses atomic.Int64
	lastUpdated    atomic.Int64
}

// Logger interface for logging (can be implemented by any logger)
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
}

// NoOpLogger is a no-operation logger
type NoOpLogger struct{}

func (n NoOpLogger) Debug(args ...interface{}) {}
func (n NoOpLogger) Info(args ...interface{})  {}
func (n NoOpLogger) Warn(args ...interface{})  {}
func (n NoOpLogger) Error(args ...interface{}) {}

// New creates a SecurityHeaders with the given configuration
func New(config *Config) *SecurityHeaders {
	if config == nil {
		config = &Config{}
	}

	skipPaths := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	return &SecurityHeaders{
		config:    config,
		effective: config.Options.Resolve(),
		skipPaths: skipPaths,
		logger:    NoOpLogger{},
	}
}

// SetLogger sets a custom logger
func (s *SecurityHeaders) SetLogger(logger Logger) {
	if logger == nil {
		logger = NoOpLogger{}
	}
	s.logger = logger
}

// SetMetrics enables Prometheus instrumentation
func (s *SecurityHeaders) SetMetrics(m *Metrics) {
	s.metrics = m
}

// Effective returns the resolved options used for every response
func (s *SecurityHeaders) Effective() EffectiveOptions {
	return s.effective
}

// Process applies the catalogue to h using opts merged over the defaults.
// A nil opts applies the defaults.
func Process(h http.Header, opts *Options) {
	if h == nil {
		return
	}
	eff := opts.Resolve()
	applyRules(h, &eff, nil)
}

// IsHTML reports whether the Content-Type of h contains text/html
func IsHTML(h http.Header) bool {
	return strings.Contains(h.Get("Content-Type"), "text/html")
}

// applyRules runs every Always rule, then every HTMLOnly rule when the
// response is HTML. It reports whether the HTML rules ran.
func applyRules(h http.Header, opts *EffectiveOptions, observe func(RuleID)) bool {
	for _, rule := range catalogue {
		if rule.Class != Always {
			continue
		}
		rule.apply(h, opts)
		if observe != nil {
			observe(rule.ID)
		}
	}

	if !IsHTML(h) {
		return false
	}

	for _, rule := range catalogue {
		if rule.Class != HTMLOnly {
			continue
		}
		rule.apply(h, opts)
		if observe != nil {
			observe(rule.ID)
		}
	}
	return true
}

// Apply applies the catalogue to h
func (s *SecurityHeaders) Apply(h http.Header) {
	s.process(h, hookAfter)
}

func (s *SecurityHeaders) process(h http.Header, hook string) {
	if h == nil {
		s.logger.Warn("securityheaders: response has no header collection, skipping")
		return
	}

	var observe func(RuleID)
	if s.metrics != nil {
		observe = s.metrics.observeRule
	}

	html := applyRules(h, &s.effective, observe)

	s.responses.Add(1)
	if html {
		s.htmlResponses.Add(1)
	}
	if hook == hookError {
		s.errorResponses.Add(1)
	}
	s.lastUpdated.Store(time.Now().UnixNano())

	if s.metrics != nil {
		s.metrics.observeResponse(hook, html)
	}

	if s.config.Debug {
		s.logger.Debug("Applied security headers:", hook, "html:", html)
	}
}

// Response is a response whose headers can still be changed
type Response interface {
	Header() http.Header
}

// After applies the catalogue to a completed response
func (s *SecurityHeaders) After(r Response) {
	if r == nil {
		s.logger.Warn("securityheaders: nil response, skipping")
		return
	}
	s.process(r.Header(), hookAfter)
}

// OnError applies the catalogue to a response whose handler failed. The
// headers are identical to the ones After would set.
func (s *SecurityHeaders) OnError(r Response, err error) {
	if r == nil {
		s.logger.Warn("securityheaders: nil response, skipping")
		return
	}
	if s.config.Debug && err != nil {
		s.logger.Debug("Handler failed, applying security headers:", err)
	}
	s.process(r.Header(), hookError)
}

// Middleware returns net/http middleware. Headers are applied right before
// the response header is written, so the handler's Content-Type is visible.
// When the handler sets no Content-Type, up to the first 512 body bytes are
// held back and sniffed the way net/http does.
func (s *SecurityHeaders) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		rw := &responseWriter{ResponseWriter: w, s: s, hook: hookAfter}

		defer func() {
			if p := recover(); p != nil {
				// Headers still go out with whatever response an outer
				// recovery handler writes.
				rw.hook = hookError
				rw.abandon()
				if s.config.Debug {
					s.logger.Debug("Handler panicked:", fmt.Sprint(p))
				}
				panic(p)
			}
		}()

		next.ServeHTTP(rw, r)
		if err := rw.release(); err != nil && s.config.Debug {
			s.logger.Debug("Failed to write buffered response:", err)
		}
	})
}

// sniffLen matches the prefix http.DetectContentType looks at
const sniffLen = 512

// responseWriter runs the pipeline once, before the header is sent. Without a
// Content-Type it holds back the status and the body prefix until there is
// enough to sniff.
type responseWriter struct {
	http.ResponseWriter
	s       *SecurityHeaders
	hook    string
	applied bool
	status  int
	buf     []byte
}

// sniffing reports whether net/http would detect the Content-Type itself
func (w *responseWriter) sniffing() bool {
	h := w.ResponseWriter.Header()
	if _, ok := h["Content-Type"]; ok || h.Get("Content-Encoding") != "" {
		return false
	}
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}
	return status >= 200 && status != http.StatusNoContent && status != http.StatusNotModified
}

func (w *responseWriter) applyRules(prefix []byte) {
	w.applied = true
	h := w.ResponseWriter.Header()
	if len(prefix) > 0 && w.sniffing() {
		h.Set("Content-Type", http.DetectContentType(prefix))
	}
	w.s.process(h, w.hook)
}

// release applies the rules, then sends the pending status and body prefix
func (w *responseWriter) release() error {
	if w.applied {
		return nil
	}
	w.applyRules(w.buf)
	if w.status != 0 {
		w.ResponseWriter.WriteHeader(w.status)
	}
	if len(w.buf) == 0 {
		return nil
	}
	buf := w.buf
	w.buf = nil
	_, err := w.ResponseWriter.Write(buf)
	return err
}

// abandon applies the rules and drops whatever was held back
func (w *responseWriter) abandon() {
	if w.applied {
		return
	}
	w.status = 0
	w.buf = nil
	w.applyRules(nil)
}

func (w *responseWriter) WriteHeader(code int) {
	if w.applied {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	if w.status != 0 {
		// superfluous, the first status wins
		return
	}
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		w.ResponseWriter.WriteHeader(code)
		return
	}

	w.status = code
	if !w.sniffing() {
		w.release()
	}
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if w.applied {
		return w.ResponseWriter.Write(b)
	}
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if !w.sniffing() {
		if err := w.release(); err != nil {
			return 0, err
		}
		return w.ResponseWriter.Write(b)
	}

	w.buf = append(w.buf, b...)
	if len(w.buf) >= sniffLen {
		if err := w.release(); err != nil {
			return 0, err
		}
	}
	return len(b), nil
}

func (w *responseWriter) Flush() {
	w.release()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Builder provides a fluent API for creating SecurityHeaders configurations

// Builder helps build SecurityHeaders configurations
type Builder struct {
	config *Config
}

// NewBuilder creates a new configuration builder
func NewBuilder() *Builder {
	return &Builder{config: &Config{}}
}

// AllowDNSPrefetch sets dnsPrefetchControl.allow
func (b *Builder) AllowDNSPrefetch(allow bool) *Builder {
	b.config.Options.DNSPrefetchControl = &DNSPrefetchControlOptions{Allow: Bool(allow)}
	return b
}

// PoweredBy sets hidePoweredBy.setTo. An empty value removes the headers.
func (b *Builder) PoweredBy(value string) *Builder {
	b.config.Options.HidePoweredBy = &HidePoweredByOptions{SetTo: String(value)}
	return b
}

func (b *Builder) hsts() *HSTSOptions {
	if b.config.Options.HSTS == nil {
		b.config.Options.HSTS = &HSTSOptions{}
	}
	return b.config.Options.HSTS
}

// HSTSMaxAge sets hsts.maxAge in seconds
func (b *Builder) HSTSMaxAge(maxAge time.Duration) *Builder {
	b.hsts().MaxAge = Float(maxAge.Seconds())
	return b
}

// HSTSIncludeSubDomains sets hsts.includeSubDomains
func (b *Builder) HSTSIncludeSubDomains(include bool) *Builder {
	b.hsts().IncludeSubDomains = Bool(include)
	return b
}

// HSTSPreload sets hsts.preload
func (b *Builder) HSTSPreload(preload bool) *Builder {
	b.hsts().Preload = Bool(preload)
	return b
}

// DownloadOptions sets ieNoOpen.action
func (b *Builder) DownloadOptions(action string) *Builder {
	b.config.Options.IENoOpen = &IENoOpenOptions{Action: String(action)}
	return b
}

// ContentTypeOptions sets noSniff.action
func (b *Builder) ContentTypeOptions(action string) *Builder {
	b.config.Options.NoSniff = &NoSniffOptions{Action: String(action)}
	return b
}

// ReferrerPolicy sets referrerPolicy.policy
func (b *Builder) ReferrerPolicy(policy string) *Builder {
	b.config.Options.ReferrerPolicy = &ReferrerPolicyOptions{Policy: String(policy)}
	return b
}

// CrossDomainPolicy sets permittedCrossDomainPolicies.policy
func (b *Builder) CrossDomainPolicy(policy string) *Builder {
	b.config.Options.PermittedCrossDomainPolicies = &PermittedCrossDomainPoliciesOptions{Policy: String(policy)}
	return b
}

// FrameOptions sets frameguard.action
func (b *Builder) FrameOptions(action string) *Builder {
	b.config.Options.Frameguard = &FrameguardOptions{Action: String(action)}
	return b
}

// XSSReportURI sets xssFilter.reportUri
func (b *Builder) XSSReportURI(uri string) *Builder {
	b.config.Options.XSSFilter = &XSSFilterOptions{ReportURI: String(uri)}
	return b
}

// SkipPaths sets paths and gRPC methods to skip
func (b *Builder) SkipPaths(paths ...string) *Builder {
	b.config.SkipPaths = paths
	return b
}

// Debug enables debug logging
func (b *Builder) Debug(debug bool) *Builder {
	b.config.Debug = debug
	return b
}

// Build creates the SecurityHeaders
func (b *Builder) Build() *SecurityHeaders {
	return New(b.config)
}

// Validate validates the configuration
func (s *SecurityHeaders) Validate() error {
	return ValidateConfig(s.config)
}

// Stats provides statistics about processed responses
type Stats struct {
	Responses      int64
	HTMLResponses  int64
	ErrorResponses int64
	LastUpdated    time.Time
}

// GetStats returns statistics about processed responses
func (s *SecurityHeaders) GetStats() *Stats {
	stats := &Stats{
		Responses:      s.responses.Load(),
		HTMLResponses:  s.htmlResponses.Load(),
		ErrorResponses: s.errorResponses.Load(),
	}
	if ns := s.lastUpdated.Load(); ns != 0 {
		stats.LastUpdated = time.Unix(0, ns)
	}
	return stats
}
