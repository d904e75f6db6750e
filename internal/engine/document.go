package engine

import (
	"encoding/json"
	"time"
)

// Document is the stored envelope. Name is "collection/id"; timestamps are
// millisecond precision, consistent with UUID v7 id timestamps.
type Document struct {
	Name       string         `json:"name"`
	CreateTime time.Time      `json:"create_time"`
	UpdateTime time.Time      `json:"update_time"`
	Fields     map[string]any `json:"fields"`
}

func encodeDocument(doc *Document) ([]byte, error) {
	return json.Marshal(doc)
}

func decodeDocument(data []byte) (*Document, error) {
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	if doc.Fields == nil {
		doc.Fields = map[string]any{}
	}
	return doc, nil
}
