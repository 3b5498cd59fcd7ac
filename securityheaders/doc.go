package securityheaders

// Package securityheaders sets well-known security response headers on HTTP,
// grpc-gateway and gRPC responses.
//
// A fixed catalogue of rules is applied to every response. Rules in the
// Always class run unconditionally; rules in the HTMLOnly class run only when
// the response Content-Type contains text/html. Each rule owns one header and
// overwrites it, so applying the catalogue twice gives the same result as
// applying it once.
//
// # Rules
//
//   - dnsPrefetchControl: X-DNS-Prefetch-Control (off)
//   - hidePoweredBy: removes X-Powered-By and Server, or sets X-Powered-By
//   - hsts: Strict-Transport-Security (max-age=15552000; includeSubDomains; preload)
//   - ieNoOpen: X-Download-Options (noopen)
//   - noSniff: X-Content-Type-Options (nosniff)
//   - referrerPolicy: Referrer-Policy (no-referrer)
//   - permittedCrossDomainPolicies: X-Permitted-Cross-Domain-Policies (none)
//   - frameguard (HTML only): X-Frame-Options (DENY)
//   - xssFilter (HTML only): X-XSS-Protection (1; mode=block)
//
// # Basic Usage
//
//	headers := securityheaders.NewBuilder().
//		FrameOptions("sameorigin").
//		XSSReportURI("https://example.com/r").
//		Build()
//
//	http.ListenAndServe(":8080", headers.Middleware(mux))
//
// # Configuration
//
// Overrides are keyed by rule id and merged one key deep over the defaults.
// Omitted keys keep their default value:
//
//	options:
//	  hsts:
//	    maxAge: 31536000
//	  frameguard:
//	    action: sameorigin
//
// Configuration can be loaded from YAML, JSON or TOML with LoadConfigFromFile,
// or decoded from a map with OptionsFromMap.
//
// # gRPC Integration
//
// CreateGatewayMux installs the forward response option, error handlers and
// outgoing header matcher on a grpc-gateway ServeMux. gRPC servers can send
// the Always headers as header metadata:
//
//	grpcServer := grpc.NewServer(
//		grpc.UnaryInterceptor(headers.UnaryServerInterceptor()),
//		grpc.StreamInterceptor(headers.StreamServerInterceptor()),
//	)
