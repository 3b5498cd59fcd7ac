package securityheaders

import (
	"math"
	"net/http"
	"strconv"
	"strings"
)

// RuleID identifies a rule in the catalogue. The values double as the
// configuration keys.
type RuleID string

const (
	DNSPrefetchControl           RuleID = "dnsPrefetchControl"
	HidePoweredBy                RuleID = "hidePoweredBy"
	HSTS                         RuleID = "hsts"
	IENoOpen                     RuleID = "ieNoOpen"
	NoSniff                      RuleID = "noSniff"
	ReferrerPolicy               RuleID = "referrerPolicy"
	PermittedCrossDomainPolicies RuleID = "permittedCrossDomainPolicies"
	Frameguard                   RuleID = "frameguard"
	XSSFilter                    RuleID = "xssFilter"
)

// Class defines when a rule applies
type Class int

const (
	// Always rules apply to every response
	Always Class = iota
	// HTMLOnly rules apply only when Content-Type contains text/html
	HTMLOnly
)

func (c Class) String() string {
	switch c {
	case Always:
		return "always"
	case HTMLOnly:
		return "html_only"
	default:
		return "unknown"
	}
}

// Header names written by the catalogue.
const (
	HeaderDNSPrefetchControl           = "X-DNS-Prefetch-Control"
	HeaderPoweredBy                    = "X-Powered-By"
	HeaderServer                       = "Server"
	HeaderStrictTransportSecurity      = "Strict-Transport-Security"
	HeaderDownloadOptions              = "X-Download-Options"
	HeaderContentTypeOptions           = "X-Content-Type-Options"
	HeaderReferrerPolicy               = "Referrer-Policy"
	HeaderPermittedCrossDomainPolicies = "X-Permitted-Cross-Domain-Policies"
	HeaderFrameOptions                 = "X-Frame-Options"
	HeaderXSSProtection                = "X-XSS-Protection"
)

// ruleFunc mutates headers in place using its own section of the options.
type ruleFunc func(h http.Header, opts *EffectiveOptions)

// Rule describes one catalogue entry
type Rule struct {
	ID     RuleID
	Class  Class
	Header string
	apply  ruleFunc
}

// catalogue is in declaration order; ListRules and the pipeline iterate it as is.
var catalogue = []Rule{
	{ID: DNSPrefetchControl, Class: Always, Header: HeaderDNSPrefetchControl, apply: dnsPrefetchControl},
	{ID: HidePoweredBy, Class: Always, Header: HeaderPoweredBy, apply: hidePoweredBy},
	{ID: HSTS, Class: Always, Header: HeaderStrictTransportSecurity, apply: hsts},
	{ID: IENoOpen, Class: Always, Header: HeaderDownloadOptions, apply: ieNoOpen},
	{ID: NoSniff, Class: Always, Header: HeaderContentTypeOptions, apply: noSniff},
	{ID: ReferrerPolicy, Class: Always, Header: HeaderReferrerPolicy, apply: referrerPolicy},
	{ID: PermittedCrossDomainPolicies, Class: Always, Header: HeaderPermittedCrossDomainPolicies, apply: permittedCrossDomainPolicies},
	{ID: Frameguard, Class: HTMLOnly, Header: HeaderFrameOptions, apply: frameguard},
	{ID: XSSFilter, Class: HTMLOnly, Header: HeaderXSSProtection, apply: xssFilter},
}

var (
	catalogueIndex = make(map[RuleID]int, len(catalogue))
	alwaysRules    []RuleID
	htmlOnlyRules  []RuleID
)

func init() {
	for i, rule := range catalogue {
		if _, exists := catalogueIndex[rule.ID]; exists {
			panic("securityheaders: duplicate rule " + string(rule.ID))
		}
		catalogueIndex[rule.ID] = i

		switch rule.Class {
		case Always:
			alwaysRules = append(alwaysRules, rule.ID)
		case HTMLOnly:
			htmlOnlyRules = append(htmlOnlyRules, rule.ID)
		}
	}
}

// ListRules returns the ids of the rules in the given class, in catalogue order
func ListRules(class Class) []RuleID {
	var ids []RuleID
	switch class {
	case Always:
		ids = alwaysRules
	case HTMLOnly:
		ids = htmlOnlyRules
	}
	return append([]RuleID(nil), ids...)
}

// Rules returns every rule descriptor in catalogue order
func Rules() []Rule {
	return append([]Rule(nil), catalogue...)
}

// Lookup returns the descriptor of a rule
func Lookup(id RuleID) (Rule, bool) {
	i, ok := catalogueIndex[id]
	if !ok {
		return Rule{}, false
	}
	return catalogue[i], true
}

// DefaultRuleConfig returns the default configuration struct of a single rule,
// e.g. an HSTSConfig for HSTS.
func DefaultRuleConfig(id RuleID) (any, bool) {
	d := defaultOptions
	switch id {
	case DNSPrefetchControl:
		return d.DNSPrefetchControl, true
	case HidePoweredBy:
		return d.HidePoweredBy, true
	case HSTS:
		return d.HSTS, true
	case IENoOpen:
		return d.IENoOpen, true
	case NoSniff:
		return d.NoSniff, true
	case ReferrerPolicy:
		return d.ReferrerPolicy, true
	case PermittedCrossDomainPolicies:
		return d.PermittedCrossDomainPolicies, true
	case Frameguard:
		return d.Frameguard, true
	case XSSFilter:
		return d.XSSFilter, true
	default:
		return nil, false
	}
}

// Apply runs a single rule against h and returns h. Unknown ids leave h as is.
func Apply(id RuleID, h http.Header, opts EffectiveOptions) http.Header {
	if rule, ok := Lookup(id); ok && h != nil {
		rule.apply(h, &opts)
	}
	return h
}

func dnsPrefetchControl(h http.Header, opts *EffectiveOptions) {
	if opts.DNSPrefetchControl.Allow {
		h.Set(HeaderDNSPrefetchControl, "on")
	} else {
		h.Set(HeaderDNSPrefetchControl, "off")
	}
}

func hidePoweredBy(h http.Header, opts *EffectiveOptions) {
	if opts.HidePoweredBy.SetTo != "" {
		h.Set(HeaderPoweredBy, opts.HidePoweredBy.SetTo)
		return
	}
	h.Del(HeaderServer)
	h.Del(HeaderPoweredBy)
}

func hsts(h http.Header, opts *EffectiveOptions) {
	var b strings.Builder
	b.WriteString("max-age=")
	b.WriteString(formatMaxAge(opts.HSTS.MaxAge))
	if opts.HSTS.IncludeSubDomains {
		b.WriteString("; includeSubDomains")
	}
	if opts.HSTS.Preload {
		b.WriteString("; preload")
	}
	h.Set(HeaderStrictTransportSecurity, b.String())
}

// formatMaxAge rounds half toward positive infinity and never uses exponent
// notation.
func formatMaxAge(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	r := math.Floor(v)
	if v-r >= 0.5 {
		r++
	}
	if r == 0 {
		// avoid "-0"
		r = 0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func ieNoOpen(h http.Header, opts *EffectiveOptions) {
	h.Set(HeaderDownloadOptions, opts.IENoOpen.Action)
}

func noSniff(h http.Header, opts *EffectiveOptions) {
	h.Set(HeaderContentTypeOptions, opts.NoSniff.Action)
}

func referrerPolicy(h http.Header, opts *EffectiveOptions) {
	h.Set(HeaderReferrerPolicy, opts.ReferrerPolicy.Policy)
}

func permittedCrossDomainPolicies(h http.Header, opts *EffectiveOptions) {
	h.Set(HeaderPermittedCrossDomainPolicies, opts.PermittedCrossDomainPolicies.Policy)
}

func frameguard(h http.Header, opts *EffectiveOptions) {
	h.Set(HeaderFrameOptions, strings.ToUpper(opts.Frameguard.Action))
}

func xssFilter(h http.Header, opts *EffectiveOptions) {
	value := "1; mode=block"
	if opts.XSSFilter.ReportURI != "" {
		value += "; report=" + opts.XSSFilter.ReportURI
	}
	h.Set(HeaderXSSProtection, value)
}
