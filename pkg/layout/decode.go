package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

func newElement(typ string) Element {
	switch typ {
	case TypePcbTrace:
		return &PcbTrace{}
	case TypePcbSMTPad:
		return &PcbSMTPad{}
	case TypePcbPlatedHole:
		return &PcbPlatedHole{}
	case TypePcbHole:
		return &PcbHole{}
	case TypePcbVia:
		return &PcbVia{}
	case TypePcbKeepout:
		return &PcbKeepout{}
	case TypePcbBoard:
		return &PcbBoard{}
	case TypePcbPort:
		return &PcbPort{}
	case TypePcbComponent:
		return &PcbComponent{}
	case TypeSourceTrace:
		return &SourceTrace{}
	case TypeSourcePort:
		return &SourcePort{}
	case TypeSourceComponent:
		return &SourceComponent{}
	case TypeSourceNet:
		return &SourceNet{}
	}
	return nil
}

// Decode reads a JSON array of records. Records with an unknown type are
// skipped; malformed JSON is an error.
func Decode(r io.Reader) (*Layout, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode layout: %w", err)
	}

	elements := make([]Element, 0, len(raw))
	for i, msg := range raw {
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &head); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		e := newElement(head.Type)
		if e == nil {
			continue
		}
		if err := json.Unmarshal(msg, e); err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, head.Type, err)
		}
		elements = append(elements, e)
	}

	return New(elements...), nil
}

// Encode writes the layout as an indented JSON array with a type field on
// every record.
func Encode(w io.Writer, l *Layout) error {
	out := make([]json.RawMessage, 0, len(l.Elements))
	for _, e := range l.Elements {
		body, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", e.PrimaryID(), err)
		}

		var buf bytes.Buffer
		fmt.Fprintf(&buf, `{"type":%q`, e.ElementType())
		if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
			buf.WriteByte(',')
			buf.Write(inner)
		}
		buf.WriteByte('}')
		out = append(out, buf.Bytes())
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
