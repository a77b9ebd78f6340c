package mutation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MarshalBatch serialises a Batch to JSON.
func MarshalBatch(b *Batch) ([]byte, error) {
	return json.Marshal(b)
}

// UnmarshalBatch deserialises a Batch from JSON.
func UnmarshalBatch(data []byte) (*Batch, error) {
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// UnmarshalRecords decodes the record array posted by the page bridge.
func UnmarshalRecords(data []byte) ([]Record, error) {
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// ReadBatches decodes a stream of JSON batches (one per line, as a capture
// writes them) until EOF.
func ReadBatches(r io.Reader) ([]Batch, error) {
	dec := json.NewDecoder(r)
	var out []Batch
	for {
		var b Batch
		err := dec.Decode(&b)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("mutation: decode batch %d: %w", len(out)+1, err)
		}
		out = append(out, b)
	}
}
