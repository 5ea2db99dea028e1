package patterns

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLookup(t *testing.T, name string) *Pattern {
	t.Helper()
	p, ok := Lookup(name)
	require.True(t, ok, "pattern %s not registered", name)
	return p
}

func TestLibrary_Order(t *testing.T) {
	var names []string
	for _, p := range Library() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{
		"address", "address_vn", "unit_number", "phone", "email",
		"contact_name", "social_handle", "social_reference", "url",
	}, names)
}

func TestLibrary_ReturnsCopy(t *testing.T) {
	lib := Library()
	lib[0] = nil
	assert.NotNil(t, Library()[0])
}

func TestAddress(t *testing.T) {
	p := mustLookup(t, "address")

	tests := []struct {
		text  string
		match string
	}{
		{"Pick up at 123 Main St today", "123 Main St"},
		{"Deliver to 45 Oak Avenue.", "45 Oak Avenue."},
		{"Meet at 9 Old Mill Pkwy", "9 Old Mill Pkwy"},
		{"Office at 700 Crescent Terrace", "700 Crescent Terrace"},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			got, ok := p.FirstMatch(tc.text)
			require.True(t, ok)
			assert.Equal(t, tc.match, got)
		})
	}
}

func TestAddress_MeasurementFalsePositives(t *testing.T) {
	p := mustLookup(t, "address")

	for _, text := range []string{
		"2 bedroom apartment",
		"150 sqft office",
		"3 story building",
		"5 floor of the tower",
		"Clean 2 Bedroom Way listing",
		"Need 2 people for 3 hours",
	} {
		t.Run(text, func(t *testing.T) {
			_, ok := p.FirstMatch(text)
			assert.False(t, ok)
		})
	}
}

func TestVietnameseStreet(t *testing.T) {
	p := mustLookup(t, "address_vn")

	got, ok := p.FirstMatch("Meet at 12 Nguyen Hue for pickup")
	require.True(t, ok)
	assert.Equal(t, "12 Nguyen Hue", got)

	got, ok = p.FirstMatch("Deliver to 45/2 Tran Hung Dao")
	require.True(t, ok)
	assert.Equal(t, "45/2 Tran Hung Dao", got)

	_, ok = p.FirstMatch("Need 3 people tomorrow")
	assert.False(t, ok)
}

func TestUnitNumber(t *testing.T) {
	p := mustLookup(t, "unit_number")

	for _, text := range []string{"Apt 4B please", "Suite 200", "door #12B", "Unit 7"} {
		t.Run(text, func(t *testing.T) {
			_, ok := p.FirstMatch(text)
			assert.True(t, ok)
		})
	}

	_, ok := p.FirstMatch("2 bedroom apartment with a large room")
	assert.False(t, ok)
}

func TestPhone(t *testing.T) {
	p := mustLookup(t, "phone")

	detected := []string{
		"Call 555-123-4567",
		"Call (555) 123-4567",
		"Whatsapp +84901234567",
		"Text 555.123.4567 after 5pm",
		"Call 555 1234",
		"Call 45-67-8901",
		"Call 2012-5678",
	}
	for _, text := range detected {
		t.Run(text, func(t *testing.T) {
			_, ok := p.FirstMatch(text)
			assert.True(t, ok)
		})
	}

	ignored := []string{
		"Order reference 1234567890",
		"Zip code 94105",
		"150 sqft office",
		"Budget is $5000 for 3 hours",
		"Starts 2025-03-01 14:00",
		"+1234",
		"Move out on 01-06-2025",
		"Cleaning on 31.12.2024 please",
		"Shop hours 9.00-17.30",
		"Meet at 10.762622, 106.660172",
		"Invoice 2024-001234 is attached",
	}
	for _, text := range ignored {
		t.Run(text, func(t *testing.T) {
			_, ok := p.FirstMatch(text)
			assert.False(t, ok)
		})
	}
}

func TestEmail(t *testing.T) {
	p := mustLookup(t, "email")

	got, ok := p.FirstMatch("write to john.doe@example.com today")
	require.True(t, ok)
	assert.Equal(t, "john.doe@example.com", got)
	assert.Equal(t, "jo***@example.com", p.Mask(got))
}

func TestContactName(t *testing.T) {
	p := mustLookup(t, "contact_name")

	for _, text := range []string{"Contact Mr. Smith at the door", "ask for John", "Speak to Mrs Nguyen Lan"} {
		t.Run(text, func(t *testing.T) {
			_, ok := p.FirstMatch(text)
			assert.True(t, ok)
		})
	}

	for _, text := range []string{"see Attached photos", "call Monday morning", "find a plumber", "Looking for a therapist"} {
		t.Run(text, func(t *testing.T) {
			_, ok := p.FirstMatch(text)
			assert.False(t, ok)
		})
	}
}

func TestSocialHandle(t *testing.T) {
	p := mustLookup(t, "social_handle")

	got, ok := p.FirstMatch("ping @johnny_b for details")
	require.True(t, ok)
	assert.Equal(t, "@jo***", p.Mask(got))

	_, ok = p.FirstMatch("reach me @gmail or @Yahoo")
	assert.False(t, ok)

	_, ok = p.FirstMatch("mail john@example.com")
	assert.False(t, ok)
}

func TestSocialReference(t *testing.T) {
	p := mustLookup(t, "social_reference")

	_, ok := p.FirstMatch("my instagram is below")
	assert.True(t, ok)
	_, ok = p.FirstMatch("Find me on Facebook")
	assert.True(t, ok)
	_, ok = p.FirstMatch("post photos on instagram")
	assert.False(t, ok)
}

func TestURL(t *testing.T) {
	p := mustLookup(t, "url")

	got, ok := p.FirstMatch("see https://example.com/path?x=1 for more")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/***", p.Mask(got))

	got, ok = p.FirstMatch("visit www.example.org/abc.")
	require.True(t, ok)
	assert.Equal(t, "www.example.org/***", p.Mask(got))
}

func TestMasks_NeverEchoRawMatch(t *testing.T) {
	samples := map[string]string{
		"address":          "Pick up at 123 Main St today",
		"address_vn":       "Meet at 12 Nguyen Hue",
		"unit_number":      "Apt 4B please",
		"phone":            "Call (555) 123-4567",
		"email":            "ab@example.com",
		"contact_name":     "ask for John",
		"social_handle":    "ping @johnny_b",
		"social_reference": "find me on facebook",
		"url":              "https://example.com",
	}

	for name, text := range samples {
		t.Run(name, func(t *testing.T) {
			p := mustLookup(t, name)
			match, ok := p.FirstMatch(text)
			require.True(t, ok)

			masked := p.Mask(match)
			assert.NotEqual(t, match, masked)
			assert.NotEqual(t, strings.TrimSpace(match), masked)
			assert.Contains(t, masked, Marker)
		})
	}
}

func TestMaskStreetAddress(t *testing.T) {
	assert.Equal(t, "123 Mai*** St", maskStreetAddress("123 Main St"))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "555****567", maskPhone("555-123-4567"))
	assert.Equal(t, "+849*****567", maskPhone("+84901234567"))
}
