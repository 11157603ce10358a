package domain

// Media describes a playable content source. It is a value type and is never mutated after creation.
type Media struct {
	URI string
	ID  string
}

// NewMedia creates a Media for the given URI.  The URI doubles as the identity.
func NewMedia(uri string) Media {
	return Media{URI: uri, ID: uri}
}

// NewMediaWithID creates a Media with an explicit identity that differs from its URI
func NewMediaWithID(uri, id string) Media {
	if id == "" {
		id = uri
	}
	return Media{URI: uri, ID: id}
}

// Key returns the identity of the media.  Falls back to the URI when no ID was assigned.
func (m Media) Key() string {
	if m.ID != "" {
		return m.ID
	}
	return m.URI
}

// Equal reports whether two media share the same identity fields
func (m Media) Equal(other Media) bool {
	return m.URI == other.URI && m.Key() == other.Key()
}

// IsZero reports whether the media carries no source at all
func (m Media) IsZero() bool {
	return m.URI == "" && m.ID == ""
}
