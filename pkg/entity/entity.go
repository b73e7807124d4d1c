package entity

// Type classifies an extracted value. The set is closed: classification is a
// static lookup on the pattern table, never inferred.
type Type string

const (
	TypePhone    Type = "phone"
	TypeEmail    Type = "email"
	TypeIDNumber Type = "id_number"
	TypeAccount  Type = "account"
	TypeName     Type = "name"
	TypeLocation Type = "location"
	TypeCompany  Type = "company"
)

// SearchValue ranks how useful an entity type is as a search key. It is a
// uniqueness proxy, not a confidence measure: a phone number is presumed
// unique to a person, a city name is not.
type SearchValue string

const (
	SearchValueHigh   SearchValue = "HIGH"
	SearchValueMedium SearchValue = "MEDIUM"
	SearchValueLow    SearchValue = "LOW"
)

// Entity is a typed, normalized value extracted from text. Identity is the
// pair (Type, Value); Original preserves the raw matched span.
type Entity struct {
	Type           Type        `json:"type"`
	Value          string      `json:"value"`
	Original       string      `json:"original"`
	Confidence     float64     `json:"confidence"`
	SearchValue    SearchValue `json:"search_value"`
	SearchPriority int         `json:"search_priority"`
}

// Key returns the dedup identity of the entity.
func (e Entity) Key() string {
	return string(e.Type) + ":" + e.Value
}

// ExtractionResult is the output of a single extraction pass.
type ExtractionResult struct {
	Entities []Entity `json:"entities"`
	// HighValue holds entities worth querying the record store with
	// (HIGH and MEDIUM search value).
	HighValue []Entity `json:"high_value_entities"`
	// LowValue holds common, non-unique entities (names, locations,
	// companies) reserved for post-hoc result filtering.
	LowValue []Entity `json:"low_value_entities"`
	// UniqueIdentifiers is a shortlist of up to five normalized values,
	// collected in the fixed order phone, email, id_number, account.
	UniqueIdentifiers []string `json:"unique_identifiers"`
}
