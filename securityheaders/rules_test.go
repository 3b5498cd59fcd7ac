package securityheaders

import (
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRules(t *testing.T) {
	assert.Equal(t, []RuleID{
		DNSPrefetchControl,
		HidePoweredBy,
		HSTS,
		IENoOpen,
		NoSniff,
		ReferrerPolicy,
		PermittedCrossDomainPolicies,
	}, ListRules(Always))

	assert.Equal(t, []RuleID{Frameguard, XSSFilter}, ListRules(HTMLOnly))
	assert.Empty(t, ListRules(Class(42)))
}

func TestListRules_ReturnsCopy(t *testing.T) {
	ids := ListRules(Always)
	ids[0] = "changed"

	assert.Equal(t, DNSPrefetchControl, ListRules(Always)[0])
}

func TestRules_UniqueIDs(t *testing.T) {
	seen := make(map[RuleID]Class)
	for _, rule := range Rules() {
		_, exists := seen[rule.ID]
		assert.False(t, exists, "duplicate rule %s", rule.ID)
		seen[rule.ID] = rule.Class
		assert.NotEmpty(t, rule.Header)
	}
	assert.Len(t, seen, 9)
}

func TestLookup(t *testing.T) {
	rule, ok := Lookup(Frameguard)
	require.True(t, ok)
	assert.Equal(t, HTMLOnly, rule.Class)
	assert.Equal(t, HeaderFrameOptions, rule.Header)

	_, ok = Lookup("contentSecurityPolicy")
	assert.False(t, ok)
}

func TestDefaultRuleConfig(t *testing.T) {
	tests := []struct {
		id   RuleID
		want any
	}{
		{DNSPrefetchControl, DNSPrefetchControlConfig{Allow: false}},
		{HidePoweredBy, HidePoweredByConfig{}},
		{HSTS, HSTSConfig{MaxAge: 15552000, IncludeSubDomains: true, Preload: true}},
		{IENoOpen, IENoOpenConfig{Action: "noopen"}},
		{NoSniff, NoSniffConfig{Action: "nosniff"}},
		{ReferrerPolicy, ReferrerPolicyConfig{Policy: "no-referrer"}},
		{PermittedCrossDomainPolicies, PermittedCrossDomainPoliciesConfig{Policy: "none"}},
		{Frameguard, FrameguardConfig{Action: "deny"}},
		{XSSFilter, XSSFilterConfig{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			got, ok := DefaultRuleConfig(tt.id)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := DefaultRuleConfig("expectCt")
	assert.False(t, ok)
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		id     RuleID
		modify func(*EffectiveOptions)
		header string
		want   string
	}{
		{"dns prefetch off", DNSPrefetchControl, nil, HeaderDNSPrefetchControl, "off"},
		{"dns prefetch on", DNSPrefetchControl, func(o *EffectiveOptions) { o.DNSPrefetchControl.Allow = true }, HeaderDNSPrefetchControl, "on"},
		{"powered by set", HidePoweredBy, func(o *EffectiveOptions) { o.HidePoweredBy.SetTo = "PHP 4.2.0" }, HeaderPoweredBy, "PHP 4.2.0"},
		{"hsts default", HSTS, nil, HeaderStrictTransportSecurity, "max-age=15552000; includeSubDomains; preload"},
		{"hsts bare", HSTS, func(o *EffectiveOptions) {
			o.HSTS = HSTSConfig{MaxAge: 60}
		}, HeaderStrictTransportSecurity, "max-age=60"},
		{"hsts preload only", HSTS, func(o *EffectiveOptions) {
			o.HSTS.IncludeSubDomains = false
		}, HeaderStrictTransportSecurity, "max-age=15552000; preload"},
		{"hsts rounds", HSTS, func(o *EffectiveOptions) {
			o.HSTS = HSTSConfig{MaxAge: 99.5}
		}, HeaderStrictTransportSecurity, "max-age=100"},
		{"hsts rounds half up for negatives", HSTS, func(o *EffectiveOptions) {
			o.HSTS = HSTSConfig{MaxAge: -2.5}
		}, HeaderStrictTransportSecurity, "max-age=-2"},
		{"hsts negative zero", HSTS, func(o *EffectiveOptions) {
			o.HSTS = HSTSConfig{MaxAge: -0.2}
		}, HeaderStrictTransportSecurity, "max-age=0"},
		{"hsts nan", HSTS, func(o *EffectiveOptions) {
			o.HSTS = HSTSConfig{MaxAge: math.NaN()}
		}, HeaderStrictTransportSecurity, "max-age=NaN"},
		{"hsts infinity", HSTS, func(o *EffectiveOptions) {
			o.HSTS = HSTSConfig{MaxAge: math.Inf(1)}
		}, HeaderStrictTransportSecurity, "max-age=Infinity"},
		{"hsts just below half", HSTS, func(o *EffectiveOptions) {
			o.HSTS = HSTSConfig{MaxAge: 0.49999999999999994}
		}, HeaderStrictTransportSecurity, "max-age=0"},
		{"hsts odd integer above 2^52", HSTS, func(o *EffectiveOptions) {
			o.HSTS = HSTSConfig{MaxAge: 4503599627370497}
		}, HeaderStrictTransportSecurity, "max-age=4503599627370497"},
		{"hsts large", HSTS, func(o *EffectiveOptions) {
			o.HSTS = HSTSConfig{MaxAge: 63072000}
		}, HeaderStrictTransportSecurity, "max-age=63072000"},
		{"ie no open", IENoOpen, nil, HeaderDownloadOptions, "noopen"},
		{"no sniff", NoSniff, nil, HeaderContentTypeOptions, "nosniff"},
		{"referrer policy", ReferrerPolicy, func(o *EffectiveOptions) { o.ReferrerPolicy.Policy = "same-origin" }, HeaderReferrerPolicy, "same-origin"},
		{"cross domain", PermittedCrossDomainPolicies, func(o *EffectiveOptions) {
			o.PermittedCrossDomainPolicies.Policy = "master-only"
		}, HeaderPermittedCrossDomainPolicies, "master-only"},
		{"frameguard uppercases", Frameguard, func(o *EffectiveOptions) { o.Frameguard.Action = "sameorigin" }, HeaderFrameOptions, "SAMEORIGIN"},
		{"xss default", XSSFilter, nil, HeaderXSSProtection, "1; mode=block"},
		{"xss report", XSSFilter, func(o *EffectiveOptions) { o.XSSFilter.ReportURI = "https://example.com/r" }, HeaderXSSProtection, "1; mode=block; report=https://example.com/r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			if tt.modify != nil {
				tt.modify(&opts)
			}

			h := http.Header{}
			got := Apply(tt.id, h, opts)

			assert.Equal(t, tt.want, h.Get(tt.header))
			assert.Len(t, h, 1, "rule must only touch its own header")
			got.Set("X-Chained", "1")
			assert.Equal(t, "1", h.Get("X-Chained"), "Apply must return the same collection")
		})
	}
}

func TestApply_HidePoweredByRemoves(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderServer, "nginx")
	h.Set(HeaderPoweredBy, "Express")
	h.Set("Content-Type", "text/plain")

	Apply(HidePoweredBy, h, DefaultOptions())

	assert.Empty(t, h.Values(HeaderServer))
	assert.Empty(t, h.Values(HeaderPoweredBy))
	assert.Equal(t, "text/plain", h.Get("Content-Type"))

	empty := http.Header{}
	assert.NotPanics(t, func() { Apply(HidePoweredBy, empty, DefaultOptions()) })
	assert.Empty(t, empty)
}

func TestApply_HidePoweredBySetKeepsServer(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderServer, "nginx")

	opts := DefaultOptions()
	opts.HidePoweredBy.SetTo = "PHP 4.2.0"
	Apply(HidePoweredBy, h, opts)

	assert.Equal(t, "nginx", h.Get(HeaderServer))
	assert.Equal(t, "PHP 4.2.0", h.Get(HeaderPoweredBy))
}

func TestApply_UnknownRule(t *testing.T) {
	h := http.Header{"X-Existing": {"1"}}
	got := Apply("unknown", h, DefaultOptions())

	assert.Equal(t, http.Header{"X-Existing": {"1"}}, got)
	assert.Nil(t, Apply(HSTS, nil, DefaultOptions()))
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "always", Always.String())
	assert.Equal(t, "html_only", HTMLOnly.String())
	assert.Equal(t, "unknown", Class(9).String())
}
