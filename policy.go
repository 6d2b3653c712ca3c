package lookanalyst

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultProxyTimeout bounds a proxy round trip, which is slower than a direct fetch
const DefaultProxyTimeout = 60 * time.Second

// pinterestTLDs lists the regional top-level domains Pinterest pages are served from
var pinterestTLDs = []string{
	"com", "co.uk", "de", "fr", "it", "es", "nl", "se", "ch", "co.in", "br", "au",
	"at", "cl", "jp", "ru", "ie", "ca", "mx", "nz", "pt", "ph",
}

var pinterestPageURL = regexp.MustCompile(
	`^https://((\w+\.)?pinterest\.(` + strings.ReplaceAll(strings.Join(pinterestTLDs, "|"), ".", `\.`) + `)/.+|pin\.it/.+)`,
)

// IsPinterestURL reports whether rawURL is a pin page on a known Pinterest domain or the shortlink domain
func IsPinterestURL(rawURL string) bool {
	return pinterestPageURL.MatchString(rawURL)
}

// HostPolicy describes how requests to one family of hosts are made and rescued
type HostPolicy struct {
	Family       string        `yaml:"family"`
	Hosts        []string      `yaml:"hosts"` // exact hosts or parent domains
	Referer      string        `yaml:"referer"`
	Origin       string        `yaml:"origin"`
	ProxyURL     string        `yaml:"proxy_url"` // empty disables the fallback
	ProxyTimeout time.Duration `yaml:"proxy_timeout"`
}

// Matches reports whether host belongs to the policy's family
func (p *HostPolicy) Matches(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, h := range p.Hosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// ProxyRequestURL builds the proxy URL that retrieves target on our behalf
func (p *HostPolicy) ProxyRequestURL(target string) (string, error) {
	u, err := url.Parse(p.ProxyURL)
	if err != nil {
		return "", fmt.Errorf("invalid proxy URL for %s: %w", p.Family, err)
	}
	q := u.Query()
	q.Set("url", target)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Policies is an ordered policy table; the first matching entry wins
type Policies []HostPolicy

// Match returns the policy for host, if any
func (ps Policies) Match(host string) (*HostPolicy, bool) {
	for i := range ps {
		if ps[i].Matches(host) {
			return &ps[i], true
		}
	}
	return nil, false
}

// MatchURL returns the policy for the host of rawURL, if any
func (ps Policies) MatchURL(rawURL string) (*HostPolicy, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, false
	}
	return ps.Match(u.Hostname())
}

// DefaultPolicies returns the built-in table: Pinterest pages and its image CDN
// get Pinterest's referer and fall back to a retrieval proxy on 403.
func DefaultPolicies() Policies {
	hosts := []string{"pinimg.com", "pin.it"}
	for _, tld := range pinterestTLDs {
		hosts = append(hosts, "pinterest."+tld)
	}

	return Policies{
		{
			Family:       "pinterest",
			Hosts:        hosts,
			Referer:      "https://www.pinterest.com/",
			Origin:       "https://www.pinterest.com",
			ProxyURL:     "https://dl.klickpin.com",
			ProxyTimeout: DefaultProxyTimeout,
		},
	}
}

type policyFile struct {
	Policies []HostPolicy `yaml:"policies"`
}

// LoadPolicies reads a YAML policy table:
//
//	policies:
//	  - family: pinterest
//	    hosts: [pinimg.com, pinterest.com]
//	    referer: https://www.pinterest.com/
//	    proxy_url: https://dl.klickpin.com
//	    proxy_timeout: 60s
func LoadPolicies(r io.Reader) (Policies, error) {
	var file policyFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode policies: %w", err)
	}

	for i := range file.Policies {
		p := &file.Policies[i]
		if p.Family == "" {
			return nil, fmt.Errorf("policy %d: family is required", i)
		}
		if len(p.Hosts) == 0 {
			return nil, fmt.Errorf("policy %s: at least one host is required", p.Family)
		}
		if p.ProxyURL != "" {
			if _, err := url.ParseRequestURI(p.ProxyURL); err != nil {
				return nil, fmt.Errorf("policy %s: invalid proxy_url: %w", p.Family, err)
			}
		}
		if p.ProxyTimeout <= 0 {
			p.ProxyTimeout = DefaultProxyTimeout
		}
	}

	return Policies(file.Policies), nil
}
