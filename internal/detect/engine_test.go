package detect

import (
	"testing"

	"github.com/raaihank/llm-cloak/internal/entity"
	"github.com/raaihank/llm-cloak/internal/lookup"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	provider := lookup.NewProvider(nil)
	if err := provider.Ensure(); err != nil {
		t.Fatalf("failed to load lookup corpora: %v", err)
	}
	return NewEngine(provider, nil)
}

func assertHas(t *testing.T, c entity.Collection, typ entity.Type, value string) {
	t.Helper()
	if !c.Has(entity.Entity{Type: typ, Value: value}) {
		t.Errorf("missing %s %q in %v", typ, value, c.Values())
	}
}

// TestDetectLocators tests URL, email, and IP detection
func TestDetectLocators(t *testing.T) {
	e := newTestEngine(t)

	t.Run("Email", func(t *testing.T) {
		c := e.Detect("reach me on jane.doe@example.com please")
		assertHas(t, c, entity.TypeEmail, "jane.doe@example.com")
		if c.Len() != 1 {
			t.Errorf("Len() = %d, want 1: %v", c.Len(), c.Values())
		}
	})

	t.Run("URL", func(t *testing.T) {
		c := e.Detect("docs at https://example.com/path?q=1 are public")
		assertHas(t, c, entity.TypeURL, "https://example.com/path?q=1")
	})

	t.Run("IPAddress", func(t *testing.T) {
		c := e.Detect("the server is 192.168.1.1 on the lan")
		assertHas(t, c, entity.TypeIPAddress, "192.168.1.1")
	})

	t.Run("InvalidOctetsIgnored", func(t *testing.T) {
		c := e.Detect("weird token 999.999.999.999 here")
		if counts := c.CountByType(); counts[entity.TypeIPAddress] != 0 {
			t.Errorf("matched invalid IP: %v", c.Values())
		}
	})

	t.Run("IPInsideURLNotDoubleCounted", func(t *testing.T) {
		c := e.Detect("open http://192.168.1.1/admin now")
		assertHas(t, c, entity.TypeURL, "http://192.168.1.1/admin")
		if counts := c.CountByType(); counts[entity.TypeIPAddress] != 0 {
			t.Errorf("IP inside URL counted separately: %v", c.Values())
		}
	})

	t.Run("DuplicateValuesCollapse", func(t *testing.T) {
		c := e.Detect("ping a@b.co or a@b.co twice")
		if c.Len() != 1 {
			t.Errorf("Len() = %d, want 1: %v", c.Len(), c.Values())
		}
	})
}

// TestDetectNumbers tests credit card and phone detection
func TestDetectNumbers(t *testing.T) {
	e := newTestEngine(t)

	t.Run("LuhnValidCard", func(t *testing.T) {
		c := e.Detect("card 4532015112830366 on file")
		assertHas(t, c, entity.TypeCreditCard, "4532015112830366")
	})

	t.Run("SeparatedCard", func(t *testing.T) {
		c := e.Detect("card 4532 0151 1283 0366 on file")
		assertHas(t, c, entity.TypeCreditCard, "4532 0151 1283 0366")
	})

	t.Run("LuhnInvalidCardRejected", func(t *testing.T) {
		c := e.Detect("card 4532 0151 1283 0367 on file")
		if counts := c.CountByType(); counts[entity.TypeCreditCard] != 0 {
			t.Errorf("accepted card failing the checksum: %v", c.Values())
		}
	})

	t.Run("PhonePlain", func(t *testing.T) {
		c := e.Detect("ring 555-123-4567 after lunch")
		assertHas(t, c, entity.TypePhoneNumber, "555-123-4567")
	})

	t.Run("PhoneInternational", func(t *testing.T) {
		c := e.Detect("or +1 (555) 123-4567 works too")
		if counts := c.CountByType(); counts[entity.TypePhoneNumber] != 1 {
			t.Errorf("phone count = %d: %v", counts[entity.TypePhoneNumber], c.Values())
		}
	})
}

// TestDetectWaterfall tests stage ordering and non-interference
func TestDetectWaterfall(t *testing.T) {
	e := newTestEngine(t)

	t.Run("OrganisationBesideURL", func(t *testing.T) {
		c := e.Detect("Visit IBM at https://ibm.com")
		assertHas(t, c, entity.TypeURL, "https://ibm.com")
		assertHas(t, c, entity.TypeOrganisation, "IBM")
		if c.Len() != 2 {
			t.Errorf("Len() = %d, want 2: %v", c.Len(), c.Values())
		}
	})

	t.Run("MixedEverything", func(t *testing.T) {
		c := e.Detect("Contact Jane Kowalski at jane@example.com or 555-123-4567")
		assertHas(t, c, entity.TypeEmail, "jane@example.com")
		assertHas(t, c, entity.TypePhoneNumber, "555-123-4567")
		assertHas(t, c, entity.TypePerson, "Jane Kowalski")
	})

	t.Run("NameCannotBridgeErasedSpan", func(t *testing.T) {
		c := e.Detect("Kowalski jane@example.com Nowak")
		assertHas(t, c, entity.TypeEmail, "jane@example.com")
		assertHas(t, c, entity.TypePerson, "Kowalski")
		assertHas(t, c, entity.TypePerson, "Nowak")
		if c.Has(entity.Entity{Type: entity.TypePerson, Value: "Kowalski Nowak"}) {
			t.Error("candidate bridged an erased span")
		}
	})

	t.Run("NothingSensitive", func(t *testing.T) {
		c := e.Detect("the quick brown fox jumps over the lazy dog")
		if c.Len() != 0 {
			t.Errorf("Len() = %d, want 0: %v", c.Len(), c.Values())
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		if c := e.Detect(""); c.Len() != 0 {
			t.Errorf("Len() = %d for empty input", c.Len())
		}
	})
}

// TestLuhn tests the checksum gate directly
func TestLuhn(t *testing.T) {
	cases := []struct {
		in    string
		valid bool
	}{
		{"4532015112830366", true},
		{"4532 0151 1283 0366", true},
		{"4532-0151-1283-0366", true},
		{"4532015112830367", false},
		{"1234567890123456", false},
		{"", false},
		{"4532x0151", false},
	}
	for _, c := range cases {
		if got := luhnValid(c.in); got != c.valid {
			t.Errorf("luhnValid(%q) = %t, want %t", c.in, got, c.valid)
		}
	}
}
