package policy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsBlocked(t *testing.T) {
	p := Default()

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"spam aggregator", "https://conferencealerts.co.in/ukraine", true},
		{"spam aggregator deep path", "https://www.waset.org/conference/2025/kyiv", true},
		{"news domain", "https://www.pravda.com.ua/news/2025/12/4/article/", true},
		{"news subdomain", "https://life.nv.ua/events", true},
		{"ordinary organizer site", "https://ulead.org.ua/eventdetail/4991", false},
		{"government site", "https://mtu.gov.ua/news", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.IsBlocked(tt.url); got != tt.want {
				t.Errorf("IsBlocked(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestIsSocial(t *testing.T) {
	p := Default()

	if !p.IsSocial("https://www.facebook.com/events/123456789") {
		t.Error("IsSocial() = false for facebook event")
	}
	if !p.IsSocial("https://t.me/community_channel/42") {
		t.Error("IsSocial() = false for telegram link")
	}
	if p.IsSocial("https://decentralization.ua/events") {
		t.Error("IsSocial() = true for ordinary site")
	}
}

func TestHasEventMarker(t *testing.T) {
	p := Default()

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"eventdetail segment", "https://ulead.org.ua/eventdetail/4991", true},
		{"event slug", "https://site.ua/event/recovery-forum", true},
		{"events child page", "https://site.ua/events/recovery-forum-2025", true},
		{"numeric ID segment", "https://site.ua/item-20251204", true},
		{"bare events listing", "https://site.ua/events", false},
		{"year archive is not an ID", "https://site.ua/2025/", false},
		{"month archive is not an ID", "https://site.ua/2025/12", false},
		{"home page", "https://site.ua/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.HasEventMarker(tt.url); got != tt.want {
				t.Errorf("HasEventMarker(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestIsGenericPath(t *testing.T) {
	p := Default()

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"bare domain", "https://site.ua/", true},
		{"contact page", "https://site.ua/contact", true},
		{"events listing", "https://site.ua/events/", true},
		{"calendar", "https://site.ua/calendar", true},
		{"month archive", "https://site.ua/2025/12", true},
		{"category listing", "https://site.ua/category/news", true},
		{"marker overrides generic-looking path", "https://site.ua/events/recovery-forum-2025", false},
		{"specific article", "https://site.ua/recovery-forum-announcement", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.IsGenericPath(tt.url); got != tt.want {
				t.Errorf("IsGenericPath(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestCheckRelevance(t *testing.T) {
	p := Default()

	tests := []struct {
		name    string
		title   string
		summary string
		wantOK  bool
	}{
		{
			name:   "on-topic recovery forum",
			title:  "Форум відновлення громад",
			wantOK: true,
		},
		{
			name:   "off-topic machine learning",
			title:  "Machine Learning Summit Kyiv",
			wantOK: false,
		},
		{
			name:    "off-topic in summary only",
			title:   "Annual Conference",
			summary: "A gathering on biotechnology research.",
			wantOK:  false,
		},
		{
			name:   "local city without qualifier",
			title:  "Семінар з енергоефективності у Львові",
			wantOK: false,
		},
		{
			name:   "local city with national qualifier",
			title:  "Всеукраїнський форум у Львові",
			wantOK: true,
		},
		{
			name:   "local city with international qualifier",
			title:  "International Housing Forum in Lviv",
			wantOK: true,
		},
		{
			name:   "allowed city",
			title:  "Житловий форум, Київ",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := p.CheckRelevance(tt.title, tt.summary)
			if ok != tt.wantOK {
				t.Errorf("CheckRelevance(%q) = %v (%q), want %v", tt.title, ok, reason, tt.wantOK)
			}
			if !ok && reason == "" {
				t.Error("CheckRelevance() rejected without a reason")
			}
		})
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	content := "spam_domains:\n  - badsite.example\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write policy file: %v", err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !p.IsSpam("https://badsite.example/page") {
		t.Error("IsSpam() = false for domain from loaded policy")
	}
	if p.IsSpam("https://waset.org/conference") {
		t.Error("IsSpam() = true for default domain replaced by loaded list")
	}
	// Untouched tables keep their defaults.
	if !p.IsNews("https://www.pravda.com.ua/article") {
		t.Error("IsNews() lost its defaults after partial load")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	p, err := Load("/nonexistent/policy.yaml")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !p.IsSpam("https://waset.org/conference") {
		t.Error("Load() with missing file did not fall back to defaults")
	}
}
