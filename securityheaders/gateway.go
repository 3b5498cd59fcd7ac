package securityheaders

import (
	"context"
	"net/http"
	"strings"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"
)

// ResponseModifier creates a forward response option for successful gateway
// responses. The gateway sets Content-Type before running it.
func (s *SecurityHeaders) ResponseModifier() func(context.Context, http.ResponseWriter, proto.Message) error {
	return func(ctx context.Context, w http.ResponseWriter, msg proto.Message) error {
		if s.skipGateway(ctx, nil) {
			return nil
		}

		// Behind our own Middleware the pending write would apply the
		// catalogue again.
		if rw, ok := w.(*responseWriter); ok && rw.s == s {
			return rw.release()
		}

		s.After(w)
		return nil
	}
}

// ErrorHandler creates a gateway error handler that applies the security
// headers and then delegates to runtime.DefaultHTTPErrorHandler.
func (s *SecurityHeaders) ErrorHandler() runtime.ErrorHandlerFunc {
	return func(ctx context.Context, mux *runtime.ServeMux, marshaler runtime.Marshaler, w http.ResponseWriter, r *http.Request, err error) {
		if s.skipGateway(ctx, r) {
			runtime.DefaultHTTPErrorHandler(ctx, mux, marshaler, w, r, err)
			return
		}

		if s.config.Debug {
			s.logger.Debug("Gateway error, applying security headers:", err)
		}

		rw, wrapped := s.wrapError(w)
		runtime.DefaultHTTPErrorHandler(ctx, mux, marshaler, rw, r, err)
		if wrapped {
			s.releaseError(rw)
		}
	}
}

// RoutingErrorHandler creates a gateway routing error handler (404, 405, ...)
// that applies the security headers and then delegates to
// runtime.DefaultRoutingErrorHandler.
func (s *SecurityHeaders) RoutingErrorHandler() runtime.RoutingErrorHandlerFunc {
	return func(ctx context.Context, mux *runtime.ServeMux, marshaler runtime.Marshaler, w http.ResponseWriter, r *http.Request, httpStatus int) {
		if s.skipGateway(ctx, r) {
			runtime.DefaultRoutingErrorHandler(ctx, mux, marshaler, w, r, httpStatus)
			return
		}

		rw, wrapped := s.wrapError(w)
		runtime.DefaultRoutingErrorHandler(ctx, mux, marshaler, rw, r, httpStatus)
		if wrapped {
			s.releaseError(rw)
		}
	}
}

// skipGateway matches SkipPaths against the RPC method and the route pattern
// recorded in ctx, and against the request path when there is a request.
// Forward response options never see the request.
func (s *SecurityHeaders) skipGateway(ctx context.Context, r *http.Request) bool {
	if method, ok := runtime.RPCMethod(ctx); ok && s.skipPaths[method] {
		return true
	}
	if pattern, ok := runtime.HTTPPathPattern(ctx); ok && s.skipPaths[pattern] {
		return true
	}
	return r != nil && s.skipPaths[r.URL.Path]
}

func (s *SecurityHeaders) releaseError(rw *responseWriter) {
	if err := rw.release(); err != nil {
		s.logger.Warn("Failed to write gateway error response:", err)
	}
}

// wrapError wraps w unless an outer handler of ours already did. The default
// routing error handler calls the mux error handler, which would otherwise
// apply the catalogue a second time.
func (s *SecurityHeaders) wrapError(w http.ResponseWriter) (*responseWriter, bool) {
	if rw, ok := w.(*responseWriter); ok && rw.s == s {
		rw.hook = hookError
		return rw, false
	}
	return &responseWriter{ResponseWriter: w, s: s, hook: hookError}, true
}

// OutgoingHeaderMatcher forwards security headers found in gRPC header
// metadata under their HTTP names. Other keys keep the gateway's default
// Grpc-Metadata- prefix.
func (s *SecurityHeaders) OutgoingHeaderMatcher() runtime.HeaderMatcherFunc {
	known := make(map[string]string, len(catalogue))
	for _, rule := range catalogue {
		known[strings.ToLower(rule.Header)] = rule.Header
	}

	return func(key string) (string, bool) {
		if name, ok := known[strings.ToLower(key)]; ok {
			return name, true
		}
		return runtime.MetadataHeaderPrefix + key, true
	}
}

// UnaryServerInterceptor creates a gRPC unary server interceptor. Headers are
// sent for both successful and failed calls.
func (s *SecurityHeaders) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if s.skipPaths[info.FullMethod] {
			return handler(ctx, req)
		}

		resp, err := handler(ctx, req)

		hook := hookAfter
		if err != nil {
			hook = hookError
		}
		if setErr := grpc.SetHeader(ctx, s.headerMetadata(hook)); setErr != nil {
			s.logger.Warn("Failed to set security header metadata:", info.FullMethod, setErr)
		}

		return resp, err
	}
}

// StreamServerInterceptor creates a gRPC stream server interceptor. Headers
// are queued before the handler runs and go out with the first message.
func (s *SecurityHeaders) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if s.skipPaths[info.FullMethod] {
			return handler(srv, ss)
		}

		if err := ss.SetHeader(s.headerMetadata(hookAfter)); err != nil {
			s.logger.Warn("Failed to set security header metadata:", info.FullMethod, err)
		}

		return handler(srv, ss)
	}
}

// headerMetadata runs the catalogue on an empty collection. gRPC responses are
// never HTML and removals have nothing to act on.
func (s *SecurityHeaders) headerMetadata(hook string) metadata.MD {
	h := make(http.Header)
	s.process(h, hook)
	return HeaderToMetadata(h)
}

// HeaderToMetadata converts an HTTP header collection to gRPC metadata
func HeaderToMetadata(h http.Header) metadata.MD {
	md := metadata.MD{}
	for name, values := range h {
		md.Append(name, values...)
	}
	return md
}

// Helper functions for common use cases

// CreateGatewayMux creates a new gRPC gateway ServeMux that applies security
// headers to forwarded responses and to errors
func CreateGatewayMux(s *SecurityHeaders, opts ...runtime.ServeMuxOption) *runtime.ServeMux {
	allOpts := []runtime.ServeMuxOption{
		runtime.WithForwardResponseOption(s.ResponseModifier()),
		runtime.WithErrorHandler(s.ErrorHandler()),
		runtime.WithRoutingErrorHandler(s.RoutingErrorHandler()),
		runtime.WithOutgoingHeaderMatcher(s.OutgoingHeaderMatcher()),
	}

	allOpts = append(allOpts, opts...)

	return runtime.NewServeMux(allOpts...)
}
