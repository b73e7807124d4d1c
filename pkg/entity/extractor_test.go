package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_ContactLine(t *testing.T) {
	e := NewExtractor()

	res := e.Extract("Contact RAHUL SHARMA at rahul.sharma@gmail.com or 9876543210, PAN ABCDE1234F")

	require.Len(t, res.Entities, 4)

	assert.Equal(t, TypePhone, res.Entities[0].Type)
	assert.Equal(t, "9876543210", res.Entities[0].Value)
	assert.Equal(t, 10, res.Entities[0].SearchPriority)
	assert.Equal(t, SearchValueHigh, res.Entities[0].SearchValue)
	assert.InDelta(t, 0.98, res.Entities[0].Confidence, 1e-9)

	assert.Equal(t, TypeEmail, res.Entities[1].Type)
	assert.Equal(t, "rahul.sharma@gmail.com", res.Entities[1].Value)
	assert.Equal(t, 9, res.Entities[1].SearchPriority)

	assert.Equal(t, TypeIDNumber, res.Entities[2].Type)
	assert.Equal(t, "ABCDE1234F", res.Entities[2].Value)
	assert.Equal(t, 8, res.Entities[2].SearchPriority)
	assert.InDelta(t, 0.99, res.Entities[2].Confidence, 1e-9)

	assert.Equal(t, TypeName, res.Entities[3].Type)
	assert.Equal(t, "rahul sharma", res.Entities[3].Value)
	assert.Equal(t, 3, res.Entities[3].SearchPriority)
	assert.Equal(t, SearchValueLow, res.Entities[3].SearchValue)
	assert.InDelta(t, 0.85, res.Entities[3].Confidence, 1e-9)

	assert.Equal(t,
		[]string{"9876543210", "rahul.sharma@gmail.com", "ABCDE1234F"},
		res.UniqueIdentifiers,
	)
}

func TestExtract_EmptyAndGarbageInput(t *testing.T) {
	e := NewExtractor()

	for _, input := range []string{"", "   ", "no entities here", strings.Repeat("x", 4096), "{{{]]]"} {
		res := e.Extract(input)
		assert.NotNil(t, res.Entities, "input %q", input)
		assert.Empty(t, res.Entities, "input %q", input)
		assert.Empty(t, res.UniqueIdentifiers, "input %q", input)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	e := NewExtractor()
	text := "Call 9876543210 or +91 98765 43211, mail test@example.com, acct 123456789012345"

	first := e.Extract(text)
	second := e.Extract(text)

	assert.Equal(t, first, second)
}

func TestExtract_PhoneNormalization(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "reach me on 9876543210 today", "9876543210"},
		{"country code", "reach me on +91-9876543210 today", "9876543210"},
		{"leading zero", "reach me on 09876543210 today", "9876543210"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := e.Extract(tc.text)
			require.NotEmpty(t, res.Entities)
			assert.Equal(t, TypePhone, res.Entities[0].Type)
			assert.Equal(t, tc.want, res.Entities[0].Value)
		})
	}
}

func TestExtract_RejectsInvalidPhones(t *testing.T) {
	e := NewExtractor()

	// landline-shaped and short numbers must not classify as phone
	res := e.Extract("call 1234567890 or 12345")
	for _, ent := range res.Entities {
		assert.NotEqual(t, TypePhone, ent.Type)
	}
}

func TestExtract_DedupWithinCall(t *testing.T) {
	e := NewExtractor()

	res := e.Extract("9876543210 and again 9876543210 and +919876543210")

	keys := make(map[string]int)
	for _, ent := range res.Entities {
		keys[ent.Key()]++
	}
	for k, n := range keys {
		assert.Equal(t, 1, n, "duplicate entity %s", k)
	}
}

func TestExtract_NameStopWords(t *testing.T) {
	e := NewExtractor()

	res := e.Extract("CONTACT DETAILS for Customer Name in NEW DELHI")
	for _, ent := range res.Entities {
		assert.NotEqual(t, TypeName, ent.Type, "stop-word span classified as name: %q", ent.Value)
	}
}

func TestExtract_AadhaarAndAccount(t *testing.T) {
	e := NewExtractor()

	res := e.Extract("Aadhaar 1234 5678 9012 linked to account 345678901234567")

	var id, account *Entity
	for i := range res.Entities {
		switch res.Entities[i].Type {
		case TypeIDNumber:
			id = &res.Entities[i]
		case TypeAccount:
			account = &res.Entities[i]
		}
	}

	require.NotNil(t, id)
	assert.Equal(t, "123456789012", id.Value)
	assert.InDelta(t, 0.98, id.Confidence, 1e-9)

	require.NotNil(t, account)
	assert.Equal(t, "345678901234567", account.Value)
}

func TestExtractFromRecord(t *testing.T) {
	e := NewExtractor()

	res := e.ExtractFromRecord(map[string]any{
		"phone": "9000000000",
		"city":  "Delhi",
	})

	values := make(map[Type]string)
	for _, ent := range res.Entities {
		values[ent.Type] = ent.Value
	}
	assert.Equal(t, "9000000000", values[TypePhone])
	assert.Equal(t, "delhi", values[TypeLocation])
}

func TestMergeResults(t *testing.T) {
	e := NewExtractor()

	a := e.Extract("9876543210")
	b := e.Extract("9876543210 and rahul.sharma@gmail.com")

	merged := e.MergeResults(a, b)

	require.Len(t, merged.Entities, 2)
	assert.Equal(t, TypePhone, merged.Entities[0].Type)
	assert.Equal(t, TypeEmail, merged.Entities[1].Type)
	assert.Equal(t, []string{"9876543210", "rahul.sharma@gmail.com"}, merged.UniqueIdentifiers)
}

func TestUniqueIdentifiers_CapAtFive(t *testing.T) {
	e := NewExtractor()

	res := e.Extract("9876543210 9876543211 9876543212 a@b.com c@d.com e@f.com")
	assert.Len(t, res.UniqueIdentifiers, 5)
	assert.Equal(t, "9876543210", res.UniqueIdentifiers[0])
}
