package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Scores maps category id to score, remembering the order keys were first set.
// The zero value is ready to use.
type Scores struct {
	keys []string
	vals map[string]float64
}

func (s *Scores) Set(id string, v float64) {
	if s.vals == nil {
		s.vals = make(map[string]float64)
	}
	if _, ok := s.vals[id]; !ok {
		s.keys = append(s.keys, id)
	}
	s.vals[id] = v
}

func (s Scores) Get(id string) (float64, bool) {
	v, ok := s.vals[id]
	return v, ok
}

// Keys returns ids in insertion order.
func (s Scores) Keys() []string {
	return append([]string(nil), s.keys...)
}

func (s Scores) Len() int { return len(s.keys) }

func (s Scores) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range s.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.vals[k])
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (s *Scores) UnmarshalJSON(data []byte) error {
	*s = Scores{}
	return decodeOrdered(data, func(key string, dec *json.Decoder) error {
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("score %q: %w", key, err)
		}
		s.Set(key, v)
		return nil
	})
}

// ScoreGroups maps a group key (device type or url) to its Scores in first-seen order.
type ScoreGroups struct {
	keys   []string
	groups map[string]Scores
}

func (g *ScoreGroups) Set(key string, s Scores) {
	if g.groups == nil {
		g.groups = make(map[string]Scores)
	}
	if _, ok := g.groups[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.groups[key] = s
}

func (g ScoreGroups) Get(key string) (Scores, bool) {
	s, ok := g.groups[key]
	return s, ok
}

func (g ScoreGroups) Keys() []string {
	return append([]string(nil), g.keys...)
}

func (g ScoreGroups) Len() int { return len(g.keys) }

func (g ScoreGroups) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range g.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := g.groups[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (g *ScoreGroups) UnmarshalJSON(data []byte) error {
	*g = ScoreGroups{}
	return decodeOrdered(data, func(key string, dec *json.Decoder) error {
		var s Scores
		if err := dec.Decode(&s); err != nil {
			return fmt.Errorf("group %q: %w", key, err)
		}
		g.Set(key, s)
		return nil
	})
}

// decodeOrdered walks a JSON object key by key so callers keep document order.
func decodeOrdered(data []byte, each func(key string, dec *json.Decoder) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		if err := each(key, dec); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
