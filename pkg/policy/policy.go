// Package policy holds the content-policy tables the pipeline consults:
// spam and news blocklists, generic-path patterns, event-page markers and
// the bilingual keyword tables used by duplicate detection and relevance
// checks. Tables are loaded once at startup and injected into components;
// nothing here mutates after load.
package policy

import (
	"net/url"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy is an immutable set of lookup tables.
type Policy struct {
	SpamDomains   []string `yaml:"spam_domains"`
	NewsDomains   []string `yaml:"news_domains"`
	SocialDomains []string `yaml:"social_domains"`

	// Path fragments that indicate a page is generic (landing, contact,
	// listing) rather than a specific event.
	GenericPaths []string `yaml:"generic_paths"`

	// Keywords that suggest an event page even without a detail marker.
	EventKeywords []string `yaml:"event_keywords"`

	// Topic phrases that disqualify a record outright.
	IrrelevantTopics []string `yaml:"irrelevant_topics"`

	// City markers for local events, the allow-listed cities, and the
	// qualifiers that lift a local event to national scope.
	LocalCityMarkers   []string `yaml:"local_city_markers"`
	AllowedCities      []string `yaml:"allowed_cities"`
	NationalQualifiers []string `yaml:"national_qualifiers"`

	// Stop words removed during title normalization.
	StopWords []string `yaml:"stop_words"`

	// Ukrainian keyword -> English equivalents, used for cross-language
	// duplicate detection.
	SemanticEquivalents map[string][]string `yaml:"semantic_equivalents"`

	stopWordSet    map[string]struct{}
	genericPathRes []*regexp.Regexp
}

// eventDetailRe matches the explicit event-detail markers that always
// override a generic-path classification.
var eventDetailRe = regexp.MustCompile(`(?i)eventdetail|/event/|/events/[^/]+`)

// eventIDRe matches a path segment carrying a numeric event ID.
var eventIDRe = regexp.MustCompile(`/[^/]*\d{4,}`)

// archiveRe matches bare year or year/month archive paths, which carry four
// digits without identifying an event.
var archiveRe = regexp.MustCompile(`^/\d{4}(/\d{1,2})?/?$`)

// Default returns the tables the pipeline ships with.
func Default() *Policy {
	p := &Policy{
		SpamDomains: []string{
			"conferencealerts.co.in", "allconferencealert.net",
			"internationalconferencealerts.com", "conferencealert.com",
			"waset.org", "conferenceseries.com", "researchera.org",
		},
		NewsDomains: []string{
			"pravda.com.ua", "unian.ua", "ukrinform.ua", "suspilne.media",
			"hromadske.ua", "nv.ua", "interfax.com.ua",
		},
		SocialDomains: []string{
			"facebook.com", "instagram.com", "linkedin.com", "t.me",
		},
		GenericPaths: []string{
			`^/?$`, `^/home/?$`, `^/contact/?$`, `^/about/?$`,
			`^/events?/?$`, `^/event-list/?$`, `^/calendar/?$`,
			`^/upcoming/?$`, `^/news/?$`, `^/category/`,
			`^/\d{4}/\d{2}/?$`, // month archive
		},
		EventKeywords: []string{
			"conference", "workshop", "seminar", "webinar", "forum",
			"конференція", "семінар", "вебінар", "форум",
		},
		IrrelevantTopics: []string{
			"teacher education", "pedagogy", "teaching methods",
			"spanish language", "latin american studies", "language studies",
			"biotechnology", "biodiversity", "biology",
			"artificial intelligence", "software engineering", "machine learning",
			"multilingual education", "big data",
			"medical research", "healthcare",
			"benefit concert", "film for ukraine",
		},
		LocalCityMarkers: []string{
			"львів", "одеса", "харків", "дніпро", "запоріжжя",
			"lviv", "odesa", "kharkiv", "dnipro", "zaporizhzhia",
		},
		AllowedCities: []string{"київ", "kyiv"},
		NationalQualifiers: []string{
			"всеукраїнськ", "національн", "міжнародн",
			"all-ukrainian", "national", "international", "ukraine-wide",
		},
		StopWords: []string{
			"the", "a", "an", "and", "or", "but", "in", "on", "at",
			"to", "for", "of", "with", "by", "year",
		},
		SemanticEquivalents: map[string][]string{
			"енергоефективності": {"energy efficiency", "energy saving"},
			"енергоменеджер":     {"energy manager", "energy management"},
			"відбудова":          {"recovery", "reconstruction", "rebuild"},
			"форум":              {"forum"},
			"конференція":        {"conference"},
			"семінар":            {"seminar", "workshop"},
			"тиждень":            {"week"},
			"деокуповані":        {"de-occupied", "liberated"},
			"громад":             {"communities", "community"},
			"містобудування":     {"urban planning", "urban development", "city planning"},
			"житло":              {"housing"},
			"будівництво":        {"construction", "building"},
		},
	}
	p.compile()
	return p
}

// Load reads policy tables from a YAML file over the defaults. Lists in the
// file replace the default list of the same name.
func Load(path string) (*Policy, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, err
	}
	p.compile()
	return p, nil
}

func (p *Policy) compile() {
	p.stopWordSet = make(map[string]struct{}, len(p.StopWords))
	for _, w := range p.StopWords {
		p.stopWordSet[w] = struct{}{}
	}
	p.genericPathRes = p.genericPathRes[:0]
	for _, pat := range p.GenericPaths {
		if re, err := regexp.Compile(`(?i)` + pat); err == nil {
			p.genericPathRes = append(p.genericPathRes, re)
		}
	}
}

func hostMatches(rawURL string, domains []string) bool {
	lower := strings.ToLower(rawURL)
	for _, d := range domains {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}

// IsSpam reports whether the URL belongs to a known spam aggregator.
func (p *Policy) IsSpam(rawURL string) bool {
	return hostMatches(rawURL, p.SpamDomains)
}

// IsNews reports whether the URL belongs to a disallowed news domain.
func (p *Policy) IsNews(rawURL string) bool {
	return hostMatches(rawURL, p.NewsDomains)
}

// IsBlocked reports whether a URL may never be selected as canonical,
// regardless of score.
func (p *Policy) IsBlocked(rawURL string) bool {
	return p.IsSpam(rawURL) || p.IsNews(rawURL)
}

// IsSocial reports whether the URL points at a social network.
func (p *Policy) IsSocial(rawURL string) bool {
	return hostMatches(rawURL, p.SocialDomains)
}

// HasEventMarker reports whether the URL carries an explicit event-detail
// marker: an eventdetail path segment, an /event/ slug, or a path segment
// with four or more consecutive digits. Such markers always override a
// generic-path match.
func (p *Policy) HasEventMarker(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if eventDetailRe.MatchString(u.Path) {
		return true
	}
	return !archiveRe.MatchString(u.Path) && eventIDRe.MatchString(u.Path)
}

// IsGenericPath reports whether the URL path matches the generic-page
// table (bare domain, home, contact, listing, month archive) and carries
// no event marker.
func (p *Policy) IsGenericPath(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if p.HasEventMarker(rawURL) {
		return false
	}
	for _, re := range p.genericPathRes {
		if re.MatchString(u.Path) {
			return true
		}
	}
	return false
}

// HasEventKeyword reports whether the text mentions any event-type keyword.
func (p *Policy) HasEventKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range p.EventKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsStopWord reports whether a normalized word carries no identity signal.
func (p *Policy) IsStopWord(w string) bool {
	_, ok := p.stopWordSet[w]
	return ok
}

// CheckRelevance screens a record's title and summary against the topic
// tables. It returns false with a reason when the record is clearly
// off-topic, or when it is a local event outside the allow-listed cities
// with no national or international qualifier.
func (p *Policy) CheckRelevance(title, summary string) (bool, string) {
	combined := strings.ToLower(title + " " + summary)

	for _, topic := range p.IrrelevantTopics {
		if strings.Contains(combined, topic) {
			return false, "off-topic: " + topic
		}
	}

	for _, city := range p.LocalCityMarkers {
		if !strings.Contains(combined, city) {
			continue
		}
		allowed := false
		for _, ok := range p.AllowedCities {
			if strings.Contains(combined, ok) {
				allowed = true
				break
			}
		}
		for _, q := range p.NationalQualifiers {
			if strings.Contains(combined, q) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false, "local event outside coverage area: " + city
		}
	}
	return true, ""
}
