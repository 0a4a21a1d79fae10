package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ID is a SurrealDB record id. It travels over CBOR as a native record id
// and renders as "table:key" in JSON so clients can echo it back verbatim.
type ID struct {
	surrealmodels.RecordID
}

// NewID builds an id for the given table and key.
func NewID(table string, key any) *ID {
	return &ID{RecordID: surrealmodels.NewRecordID(table, key)}
}

// ParseID parses a "table:key" string. A bare key is accepted when
// defaultTable is non-empty.
func ParseID(s, defaultTable string) (*ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalidID)
	}

	table, key, found := strings.Cut(s, ":")
	if !found {
		if defaultTable == "" {
			return nil, fmt.Errorf("%w: %q has no table", ErrInvalidID, s)
		}
		table, key = defaultTable, s
	}
	key = strings.Trim(key, "⟨⟩`")
	if table == "" || key == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	if defaultTable != "" && table != defaultTable {
		return nil, fmt.Errorf("%w: %q is not a %s id", ErrInvalidID, s, defaultTable)
	}
	return NewID(table, key), nil
}

// String returns the id as "table:key".
func (id *ID) String() string {
	if id == nil {
		return ""
	}
	return fmt.Sprintf("%s:%v", id.Table, id.RecordID.ID)
}

// Equal reports whether both ids name the same record.
func (id *ID) Equal(other *ID) bool {
	if id == nil || other == nil {
		return id == other
	}
	return id.String() == other.String()
}

// MarshalJSON renders the id as a plain string.
func (id *ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON accepts the "table:key" form produced by MarshalJSON.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseID(s, "")
	if err != nil {
		return err
	}
	*id = *parsed
	return nil
}

// IDStrings converts ids to their string form, skipping nils.
func IDStrings(ids []*ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != nil {
			out = append(out, id.String())
		}
	}
	return out
}
