// ABOUTME: Tolerant JSON decoding for facet payloads produced by a model
// ABOUTME: Numeric strings, float counts and scalar locations are coerced instead of rejected
package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// maxFrequency bounds rounded counts so float input cannot overflow int
const maxFrequency = 1 << 30

type fields map[string]json.RawMessage

// decodeFields reads a JSON object; anything else cannot be repaired
func decodeFields(data []byte) (fields, error) {
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f == nil {
		f = fields{}
	}
	return f, nil
}

func (f fields) number(name string) float64 {
	var v interface{}
	if err := json.Unmarshal(f[name], &v); err != nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case bool:
		if t {
			return 1
		}
	case string:
		s := strings.TrimSpace(t)
		percent := strings.HasSuffix(s, "%")
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		if percent {
			n /= 100
		}
		return n
	}
	return 0
}

func (f fields) count(name string) int {
	n := math.Round(f.number(name))
	switch {
	case n != n:
		return 0
	case n > maxFrequency:
		return maxFrequency
	case n < -maxFrequency:
		return -maxFrequency
	}
	return int(n)
}

func (f fields) text(name string) string {
	return scalarString(f[name])
}

// texts accepts an array of scalars or a single scalar
func (f fields) texts(name string) []string {
	raw := bytes.TrimSpace(f[name])
	if len(raw) == 0 || raw[0] != '[' {
		if s := scalarString(raw); s != "" {
			return []string{s}
		}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := scalarString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// list returns the elements of an array field; a lone object counts as one element
func (f fields) list(name string) []json.RawMessage {
	raw := bytes.TrimSpace(f[name])
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '{' {
		return []json.RawMessage{raw}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

func scalarString(raw json.RawMessage) string {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// UnmarshalJSON coerces loosely typed fields
func (c *ConflictItem) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*c = ConflictItem{
		Location:    f.text("location"),
		Quote:       f.text("quote"),
		Severity:    f.number("severity"),
		Description: f.text("description"),
	}
	return nil
}

// UnmarshalJSON coerces loosely typed fields
func (a *AgreementItem) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*a = AgreementItem{
		Location:    f.text("location"),
		Quote:       f.text("quote"),
		Strength:    f.number("strength"),
		Description: f.text("description"),
	}
	return nil
}

// UnmarshalJSON coerces loosely typed fields; a float frequency is rounded
func (th *Theme) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*th = Theme{
		Label:     f.text("label"),
		Frequency: f.count("frequency"),
		Locations: f.texts("locations"),
		Sentiment: f.number("sentiment"),
	}
	return nil
}

// UnmarshalJSON coerces loosely typed fields
func (s *SentimentScore) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*s = SentimentScore{Location: f.text("location"), Score: f.number("score")}
	return nil
}

// UnmarshalJSON keeps every conflict that decodes and skips the rest
func (r *ConflictsResult) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	r.Conflicts = []ConflictItem{}
	for _, raw := range f.list("conflicts") {
		var item ConflictItem
		if err := json.Unmarshal(raw, &item); err == nil {
			r.Conflicts = append(r.Conflicts, item)
		}
	}
	return nil
}

// UnmarshalJSON keeps every agreement that decodes and skips the rest
func (r *AgreementsResult) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	r.Agreements = []AgreementItem{}
	for _, raw := range f.list("agreements") {
		var item AgreementItem
		if err := json.Unmarshal(raw, &item); err == nil {
			r.Agreements = append(r.Agreements, item)
		}
	}
	return nil
}

// UnmarshalJSON keeps every theme that decodes and skips the rest
func (r *ThemesResult) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	r.Themes = []Theme{}
	for _, raw := range f.list("themes") {
		var item Theme
		if err := json.Unmarshal(raw, &item); err == nil {
			r.Themes = append(r.Themes, item)
		}
	}
	return nil
}

// UnmarshalJSON coerces the overall score and skips unreadable breakdown entries
func (r *SentimentResult) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	r.Overall = f.number("overall")
	r.Interpretation = f.text("interpretation")
	r.Breakdown = []SentimentScore{}
	for _, raw := range f.list("breakdown") {
		var item SentimentScore
		if err := json.Unmarshal(raw, &item); err == nil {
			r.Breakdown = append(r.Breakdown, item)
		}
	}
	return nil
}
