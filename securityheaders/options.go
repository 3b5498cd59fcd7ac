package securityheaders

// Resolved per-rule configuration. Every field holds a concrete value.

// DNSPrefetchControlConfig configures X-DNS-Prefetch-Control.
type DNSPrefetchControlConfig struct {
	Allow bool `json:"allow" yaml:"allow" toml:"allow"`
}

// HidePoweredByConfig configures X-Powered-By. An empty SetTo removes both
// X-Powered-By and Server.
type HidePoweredByConfig struct {
	SetTo string `json:"setTo" yaml:"setTo" toml:"setTo"`
}

// HSTSConfig configures Strict-Transport-Security.
type HSTSConfig struct {
	// MaxAge is in seconds and is rounded to the nearest integer.
	MaxAge            float64 `json:"maxAge" yaml:"maxAge" toml:"maxAge"`
	IncludeSubDomains bool    `json:"includeSubDomains" yaml:"includeSubDomains" toml:"includeSubDomains"`
	Preload           bool    `json:"preload" yaml:"preload" toml:"preload"`
}

// IENoOpenConfig configures X-Download-Options.
type IENoOpenConfig struct {
	Action string `json:"action" yaml:"action" toml:"action"`
}

// NoSniffConfig configures X-Content-Type-Options.
type NoSniffConfig struct {
	Action string `json:"action" yaml:"action" toml:"action"`
}

// ReferrerPolicyConfig configures Referrer-Policy.
type ReferrerPolicyConfig struct {
	Policy string `json:"policy" yaml:"policy" toml:"policy"`
}

// PermittedCrossDomainPoliciesConfig configures X-Permitted-Cross-Domain-Policies.
// Policy is one of none, master-only, by-content-type, by-ftp-filename or all.
// It is written verbatim.
type PermittedCrossDomainPoliciesConfig struct {
	Policy string `json:"policy" yaml:"policy" toml:"policy"`
}

// FrameguardConfig configures X-Frame-Options. Action is uppercased.
type FrameguardConfig struct {
	Action string `json:"action" yaml:"action" toml:"action"`
}

// XSSFilterConfig configures X-XSS-Protection. An empty ReportURI omits the
// report clause.
type XSSFilterConfig struct {
	ReportURI string `json:"reportUri" yaml:"reportUri" toml:"reportUri"`
}

// EffectiveOptions is the fully resolved configuration for one application of
// the catalogue.
type EffectiveOptions struct {
	DNSPrefetchControl           DNSPrefetchControlConfig
	HidePoweredBy                HidePoweredByConfig
	HSTS                         HSTSConfig
	IENoOpen                     IENoOpenConfig
	NoSniff                      NoSniffConfig
	ReferrerPolicy               ReferrerPolicyConfig
	PermittedCrossDomainPolicies PermittedCrossDomainPoliciesConfig
	Frameguard                   FrameguardConfig
	XSSFilter                    XSSFilterConfig
}

// DefaultHSTSMaxAge is 180 days.
const DefaultHSTSMaxAge = 180 * 24 * 60 * 60

var defaultOptions = EffectiveOptions{
	DNSPrefetchControl: DNSPrefetchControlConfig{Allow: false},
	HidePoweredBy:      HidePoweredByConfig{SetTo: ""},
	HSTS: HSTSConfig{
		MaxAge:            DefaultHSTSMaxAge,
		IncludeSubDomains: true,
		Preload:           true,
	},
	IENoOpen:                     IENoOpenConfig{Action: "noopen"},
	NoSniff:                      NoSniffConfig{Action: "nosniff"},
	ReferrerPolicy:               ReferrerPolicyConfig{Policy: "no-referrer"},
	PermittedCrossDomainPolicies: PermittedCrossDomainPoliciesConfig{Policy: "none"},
	Frameguard:                   FrameguardConfig{Action: "deny"},
	XSSFilter:                    XSSFilterConfig{ReportURI: ""},
}

// DefaultOptions returns the default configuration of every rule.
func DefaultOptions() EffectiveOptions {
	return defaultOptions
}

// Caller overrides. A nil field keeps the default value of that key.

// DNSPrefetchControlOptions overrides DNSPrefetchControlConfig.
type DNSPrefetchControlOptions struct {
	Allow *bool `json:"allow,omitempty" yaml:"allow,omitempty" toml:"allow,omitempty"`
}

func (o *DNSPrefetchControlOptions) merge(c DNSPrefetchControlConfig) DNSPrefetchControlConfig {
	if o == nil {
		return c
	}
	if o.Allow != nil {
		c.Allow = *o.Allow
	}
	return c
}

// HidePoweredByOptions overrides HidePoweredByConfig. A nil SetTo behaves
// like null: the headers are removed.
type HidePoweredByOptions struct {
	SetTo *string `json:"setTo,omitempty" yaml:"setTo,omitempty" toml:"setTo,omitempty"`
}

func (o *HidePoweredByOptions) merge(c HidePoweredByConfig) HidePoweredByConfig {
	if o == nil {
		return c
	}
	if o.SetTo != nil {
		c.SetTo = *o.SetTo
	}
	return c
}

// HSTSOptions overrides HSTSConfig.
type HSTSOptions struct {
	MaxAge            *float64 `json:"maxAge,omitempty" yaml:"maxAge,omitempty" toml:"maxAge,omitempty"`
	IncludeSubDomains *bool    `json:"includeSubDomains,omitempty" yaml:"includeSubDomains,omitempty" toml:"includeSubDomains,omitempty"`
	Preload           *bool    `json:"preload,omitempty" yaml:"preload,omitempty" toml:"preload,omitempty"`
}

func (o *HSTSOptions) merge(c HSTSConfig) HSTSConfig {
	if o == nil {
		return c
	}
	if o.MaxAge != nil {
		c.MaxAge = *o.MaxAge
	}
	if o.IncludeSubDomains != nil {
		c.IncludeSubDomains = *o.IncludeSubDomains
	}
	if o.Preload != nil {
		c.Preload = *o.Preload
	}
	return c
}

// IENoOpenOptions overrides IENoOpenConfig.
type IENoOpenOptions struct {
	Action *string `json:"action,omitempty" yaml:"action,omitempty" toml:"action,omitempty"`
}

func (o *IENoOpenOptions) merge(c IENoOpenConfig) IENoOpenConfig {
	if o != nil && o.Action != nil {
		c.Action = *o.Action
	}
	return c
}

// NoSniffOptions overrides NoSniffConfig.
type NoSniffOptions struct {
	Action *string `json:"action,omitempty" yaml:"action,omitempty" toml:"action,omitempty"`
}

func (o *NoSniffOptions) merge(c NoSniffConfig) NoSniffConfig {
	if o != nil && o.Action != nil {
		c.Action = *o.Action
	}
	return c
}

// ReferrerPolicyOptions overrides ReferrerPolicyConfig.
type ReferrerPolicyOptions struct {
	Policy *string `json:"policy,omitempty" yaml:"policy,omitempty" toml:"policy,omitempty"`
}

func (o *ReferrerPolicyOptions) merge(c ReferrerPolicyConfig) ReferrerPolicyConfig {
	if o != nil && o.Policy != nil {
		c.Policy = *o.Policy
	}
	return c
}

// PermittedCrossDomainPoliciesOptions overrides PermittedCrossDomainPoliciesConfig.
type PermittedCrossDomainPoliciesOptions struct {
	Policy *string `json:"policy,omitempty" yaml:"policy,omitempty" toml:"policy,omitempty"`
}

func (o *PermittedCrossDomainPoliciesOptions) merge(c PermittedCrossDomainPoliciesConfig) PermittedCrossDomainPoliciesConfig {
	if o != nil && o.Policy != nil {
		c.Policy = *o.Policy
	}
	return c
}

// FrameguardOptions overrides FrameguardConfig.
type FrameguardOptions struct {
	Action *string `json:"action,omitempty" yaml:"action,omitempty" toml:"action,omitempty"`
}

func (o *FrameguardOptions) merge(c FrameguardConfig) FrameguardConfig {
	if o != nil && o.Action != nil {
		c.Action = *o.Action
	}
	return c
}

// XSSFilterOptions overrides XSSFilterConfig.
type XSSFilterOptions struct {
	ReportURI *string `json:"reportUri,omitempty" yaml:"reportUri,omitempty" toml:"reportUri,omitempty"`
}

func (o *XSSFilterOptions) merge(c XSSFilterConfig) XSSFilterConfig {
	if o != nil && o.ReportURI != nil {
		c.ReportURI = *o.ReportURI
	}
	return c
}

// Options holds caller overrides keyed by rule id. Omitted rules and omitted
// keys fall back to DefaultOptions.
type Options struct {
	DNSPrefetchControl           *DNSPrefetchControlOptions           `json:"dnsPrefetchControl,omitempty" yaml:"dnsPrefetchControl,omitempty" toml:"dnsPrefetchControl,omitempty"`
	HidePoweredBy                *HidePoweredByOptions                `json:"hidePoweredBy,omitempty" yaml:"hidePoweredBy,omitempty" toml:"hidePoweredBy,omitempty"`
	HSTS                         *HSTSOptions                         `json:"hsts,omitempty" yaml:"hsts,omitempty" toml:"hsts,omitempty"`
	IENoOpen                     *IENoOpenOptions                     `json:"ieNoOpen,omitempty" yaml:"ieNoOpen,omitempty" toml:"ieNoOpen,omitempty"`
	NoSniff                      *NoSniffOptions                      `json:"noSniff,omitempty" yaml:"noSniff,omitempty" toml:"noSniff,omitempty"`
	ReferrerPolicy               *ReferrerPolicyOptions               `json:"referrerPolicy,omitempty" yaml:"referrerPolicy,omitempty" toml:"referrerPolicy,omitempty"`
	PermittedCrossDomainPolicies *PermittedCrossDomainPoliciesOptions `json:"permittedCrossDomainPolicies,omitempty" yaml:"permittedCrossDomainPolicies,omitempty" toml:"permittedCrossDomainPolicies,omitempty"`
	Frameguard                   *FrameguardOptions                   `json:"frameguard,omitempty" yaml:"frameguard,omitempty" toml:"frameguard,omitempty"`
	XSSFilter                    *XSSFilterOptions                    `json:"xssFilter,omitempty" yaml:"xssFilter,omitempty" toml:"xssFilter,omitempty"`
}

// Resolve merges the overrides over the defaults. A nil receiver yields the
// defaults.
func (o *Options) Resolve() EffectiveOptions {
	eff := defaultOptions
	if o == nil {
		return eff
	}

	eff.DNSPrefetchControl = o.DNSPrefetchControl.merge(eff.DNSPrefetchControl)
	eff.HidePoweredBy = o.HidePoweredBy.merge(eff.HidePoweredBy)
	eff.HSTS = o.HSTS.merge(eff.HSTS)
	eff.IENoOpen = o.IENoOpen.merge(eff.IENoOpen)
	eff.NoSniff = o.NoSniff.merge(eff.NoSniff)
	eff.ReferrerPolicy = o.ReferrerPolicy.merge(eff.ReferrerPolicy)
	eff.PermittedCrossDomainPolicies = o.PermittedCrossDomainPolicies.merge(eff.PermittedCrossDomainPolicies)
	eff.Frameguard = o.Frameguard.merge(eff.Frameguard)
	eff.XSSFilter = o.XSSFilter.merge(eff.XSSFilter)

	return eff
}

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
