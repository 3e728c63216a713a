package harvest

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"leadhunt-engine/internal/domain"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	q := domain.SearchQuery{Category: "bars", Location: "Queens, NY"}

	tests := []struct {
		name string
		card Card
		want *domain.Lead
	}{
		{
			name: "full card",
			card: card("Joe's Bar", "123 Main St, Queens, NY 11368", "4.5 ★", "(718) 555-0199"),
			want: &domain.Lead{
				Name:     "Joe's Bar",
				Address:  "123 Main St, Queens, NY 11368",
				State:    "NY",
				Phone:    "(718) 555-0199",
				Website:  domain.Unknown,
				Category: "bars",
				Rating:   "4.5",
			},
		},
		{
			name: "name only falls back to location state",
			card: card("Mystery Spot"),
			want: &domain.Lead{
				Name:     "Mystery Spot",
				Address:  domain.Unknown,
				State:    "NY",
				Phone:    domain.Unknown,
				Website:  domain.Unknown,
				Category: "bars",
				Rating:   domain.Unknown,
			},
		},
		{
			name: "comma address without street keyword",
			card: card("Corner Deli", "Astoria, Queens", "Rated 4.2 out of 5"),
			want: &domain.Lead{
				Name:     "Corner Deli",
				Address:  "Astoria, Queens",
				State:    "NY",
				Phone:    domain.Unknown,
				Website:  domain.Unknown,
				Category: "bars",
				Rating:   "4.2",
			},
		},
		{
			name: "dot separated phone",
			card: card("Dot Phone Cafe", "9 Elm Ave, Albany, NY 12207", "518.555.0142"),
			want: &domain.Lead{
				Name:     "Dot Phone Cafe",
				Address:  "9 Elm Ave, Albany, NY 12207",
				State:    "NY",
				Phone:    "518.555.0142",
				Website:  domain.Unknown,
				Category: "bars",
				Rating:   domain.Unknown,
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Extract(tt.card, q)
			if got == nil {
				t.Fatal("Extract() = nil, want lead")
			}
			if *got != *tt.want {
				t.Errorf("Extract() = %+v, want %+v", *got, *tt.want)
			}
		})
	}
}

func TestExtractEmptyCard(t *testing.T) {
	t.Parallel()
	for _, text := range []string{"", "   ", "\n\n"} {
		if got := Extract(Card{Text: text}, domain.SearchQuery{}); got != nil {
			t.Errorf("Extract(%q) = %+v, want nil", text, got)
		}
	}
}

func TestExtractFromHTML(t *testing.T) {
	t.Parallel()

	q := domain.SearchQuery{Category: "plumbers", Location: "Austin, TX"}

	t.Run("tel link wins over text", func(t *testing.T) {
		t.Parallel()
		c := Card{
			Text: "Acme Plumbing\n45 Oak Blvd, Austin, TX 78701",
			HTML: `<div><a href="tel:+15125550100">Call</a><span>512-555-9999</span></div>`,
		}
		got := Extract(c, q)
		if got.Phone != "+15125550100" {
			t.Errorf("Phone = %q, want %q", got.Phone, "+15125550100")
		}
	})

	t.Run("labeled button phone", func(t *testing.T) {
		t.Parallel()
		c := Card{
			Text: "Acme Plumbing",
			HTML: `<div><button aria-label="Phone: (512) 555-0147"></button></div>`,
		}
		got := Extract(c, q)
		if got.Phone != "(512) 555-0147" {
			t.Errorf("Phone = %q, want %q", got.Phone, "(512) 555-0147")
		}
	})

	t.Run("external website anchor", func(t *testing.T) {
		t.Parallel()
		c := Card{
			Text: "Acme Plumbing",
			HTML: `<div><a href="https://www.google.com/maps/place/acme">Directions</a><a href="https://acmeplumbing.example.com">Website</a></div>`,
		}
		got := Extract(c, q)
		if got.Website != "https://acmeplumbing.example.com" {
			t.Errorf("Website = %q, want external URL", got.Website)
		}
	})

	t.Run("platform urls never count as website", func(t *testing.T) {
		t.Parallel()
		c := Card{
			Text: "Acme Plumbing",
			HTML: `<div><a href="https://maps.google.com/?cid=1">Map</a><a href="https://g.page/acme">Profile</a></div>`,
		}
		got := Extract(c, q)
		if got.Website != domain.Unknown {
			t.Errorf("Website = %q, want %q", got.Website, domain.Unknown)
		}
	})
}

func TestMineDetailPhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "aria label with prefix",
			html: `<button aria-label="Phone: (212) 555-0134"></button>`,
			want: "(212) 555-0134",
		},
		{
			name: "tel href",
			html: `<a href="tel:+12125550134">call</a>`,
			want: "+12125550134",
		},
		{
			name: "body medium text",
			html: `<button data-item-id="phone:tel:+12125550134"><div class="fontBodyMedium">(212) 555-0134</div></button>`,
			want: "(212) 555-0134",
		},
		{
			name: "nothing present",
			html: `<div>hours: 9-5</div>`,
			want: domain.Unknown,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
			if err != nil {
				t.Fatal(err)
			}
			if got := mineDetailPhone(doc); got != tt.want {
				t.Errorf("mineDetailPhone() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMineDetailWebsite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "authority link",
			html: `<a data-item-id="authority" href="https://cornerdeli.example.com">cornerdeli.example.com</a>`,
			want: "https://cornerdeli.example.com",
		},
		{
			name: "url inside aria label",
			html: `<button aria-label="Website: https://cornerdeli.example.com"></button>`,
			want: "https://cornerdeli.example.com",
		},
		{
			name: "platform link rejected",
			html: `<a aria-label="Website" href="https://www.google.com/maps/place/x">site</a>`,
			want: domain.Unknown,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
			if err != nil {
				t.Fatal(err)
			}
			if got := mineDetailWebsite(doc); got != tt.want {
				t.Errorf("mineDetailWebsite() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStateFromAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address string
		want    string
	}{
		{"123 Main St, New York, NY 10001", "NY"},
		{"123 Main St, Austin, tx 78701", "TX"},
		{"123 Main St, New York", domain.Unknown},
		{"somewhere, 4th district, 11368", domain.Unknown},
		{domain.Unknown, domain.Unknown},
	}

	for _, tt := range tests {
		if got := stateFromAddress(tt.address); got != tt.want {
			t.Errorf("stateFromAddress(%q) = %q, want %q", tt.address, got, tt.want)
		}
	}
}

func TestCleanPhoneLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"tel:+12125550134", "+12125550134"},
		{"Phone: (212) 555-0134", "(212) 555-0134"},
		{"Call: 212-555-0134", "212-555-0134"},
		{"  (212) 555-0134  ", "(212) 555-0134"},
		{"", domain.Unknown},
	}

	for _, tt := range tests {
		if got := cleanPhoneLabel(tt.in); got != tt.want {
			t.Errorf("cleanPhoneLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
