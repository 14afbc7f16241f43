package ir

// RecordRef identifies an owning record. ID is empty until the record has
// been written for the first time.
type RecordRef struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// Identified reports whether the record has a durable identifier.
func (r RecordRef) Identified() bool {
	return r.ID != ""
}

// String renders the reference as type/id.
func (r RecordRef) String() string {
	if r.ID == "" {
		return r.Type + "/<new>"
	}
	return r.Type + "/" + r.ID
}

// Entity is the payload handed to a record store on save.
type Entity struct {
	Ref  RecordRef `json:"ref"`
	Data Object    `json:"data"`
}

// Attachment is one binary asset tied to a collection.
// Owner is empty for uploads that have not been attached yet.
type Attachment struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Owner      RecordRef `json:"owner"`
	Collection string    `json:"collection"`
	Position   int64     `json:"position"`
	Properties Object    `json:"properties"`
}
