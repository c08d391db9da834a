package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"knowledge-weaver/backend/internal/notes"
	apperrors "knowledge-weaver/backend/pkg/errors"
)

// Payload is what an import file carries
type Payload struct {
	Records    []notes.Record
	Categories []notes.Category
}

type envelopeIn struct {
	Categories []notes.Category `json:"categories"`
	Notes      []notes.Record   `json:"notes"`
}

// Parse reads a JSON envelope or a bare array of (possibly legacy) note
// records. Records are returned as-is; callers normalize them.
func Parse(r io.Reader) (Payload, error) {
	br := bufio.NewReader(r)
	first, err := firstByte(br)
	if err != nil {
		return Payload{}, apperrors.NewMalformedImport(err)
	}

	dec := json.NewDecoder(br)
	switch first {
	case '[':
		var records []notes.Record
		if err := dec.Decode(&records); err != nil {
			return Payload{}, apperrors.NewMalformedImport(err)
		}
		return Payload{Records: records}, nil
	case '{':
		var env envelopeIn
		if err := dec.Decode(&env); err != nil {
			return Payload{}, apperrors.NewMalformedImport(err)
		}
		return Payload{Records: env.Notes, Categories: env.Categories}, nil
	}
	return Payload{}, apperrors.NewMalformedImport(nil)
}

// Notes normalizes the payload's records, returning the number dropped
func (p Payload) Notes() ([]notes.Note, int) {
	return notes.NormalizeAll(p.Records)
}

// firstByte peeks past whitespace without consuming the document
func firstByte(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if bytes.IndexByte([]byte(" \t\r\n"), b) >= 0 {
			continue
		}
		return b, br.UnreadByte()
	}
}
