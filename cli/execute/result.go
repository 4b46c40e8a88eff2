package execute

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"modpanel/cli/style"
)

type Kind int

const (
	KindText Kind = iota
	KindObject
	KindScalar
	KindDetection
)

// Pair is one top-level member of an object result.
type Pair struct {
	Key   string
	Value json.RawMessage
}

type DetectedObject struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

type Detection struct {
	Objects     []DetectedObject
	OutputImage string
}

// Result is a decoded execution result. Kind selects the meaningful field;
// detection results also keep their raw Pairs.
type Result struct {
	Kind      Kind
	Text      string
	Pairs     []Pair
	Scalar    json.RawMessage
	Detection *Detection
}

// DecodeResult classifies a raw result. String results that themselves hold
// JSON are decoded once more; other strings stay literal text.
func DecodeResult(raw json.RawMessage) Result {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Result{Kind: KindScalar, Scalar: json.RawMessage("null")}
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Result{Kind: KindText, Text: string(raw)}
		}
		inner := bytes.TrimSpace([]byte(s))
		if len(inner) == 0 || !json.Valid(inner) {
			return Result{Kind: KindText, Text: s}
		}
		if inner[0] == '"' {
			var t string
			json.Unmarshal(inner, &t)
			return Result{Kind: KindText, Text: t}
		}
		raw = inner
	}

	switch raw[0] {
	case '[':
		// Arrays list like objects, one row per index.
		pairs, err := decodeArray(raw)
		if err != nil {
			return Result{Kind: KindText, Text: string(raw)}
		}
		return Result{Kind: KindObject, Pairs: pairs}
	case '{':
	default:
		return Result{Kind: KindScalar, Scalar: compact(raw)}
	}

	pairs, err := decodeObject(raw)
	if err != nil {
		return Result{Kind: KindText, Text: string(raw)}
	}
	if d, ok := decodeDetection(pairs); ok {
		return Result{Kind: KindDetection, Pairs: pairs, Detection: d}
	}
	return Result{Kind: KindObject, Pairs: pairs}
}

func decodeArray(raw []byte) ([]Pair, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	pairs := make([]Pair, 0, len(items))
	for i, v := range items {
		pairs = append(pairs, Pair{Key: strconv.Itoa(i), Value: v})
	}
	return pairs, nil
}

func decodeObject(raw []byte) ([]Pair, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var pairs []Pair
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("member %q: %w", key, err)
		}
		pairs = append(pairs, Pair{Key: key, Value: v})
	}
	return pairs, nil
}

// decodeDetection reports a detection view only when detected_objects is a
// JSON array of well-formed objects and output_image, if set, is a string.
func decodeDetection(pairs []Pair) (*Detection, bool) {
	d := &Detection{}
	found := false
	for _, p := range pairs {
		v := bytes.TrimSpace(p.Value)
		switch p.Key {
		case "detected_objects":
			if len(v) == 0 || v[0] != '[' {
				return nil, false
			}
			if err := json.Unmarshal(v, &d.Objects); err != nil {
				return nil, false
			}
			found = true
		case "output_image":
			if string(v) == "null" {
				continue
			}
			if err := json.Unmarshal(v, &d.OutputImage); err != nil {
				return nil, false
			}
		}
	}
	return d, found
}

func compact(raw []byte) json.RawMessage {
	var b bytes.Buffer
	if err := json.Compact(&b, raw); err != nil {
		return json.RawMessage(raw)
	}
	return json.RawMessage(b.Bytes())
}

// ImagePath maps a server side output path to its public URL path.
func ImagePath(p string) string {
	return "/uploads/" + strings.ReplaceAll(p, `\`, "/")
}

// Percent formats a 0..1 confidence as a percentage with one decimal.
func Percent(c float64) string {
	return fmt.Sprintf("%.1f%%", c*100)
}

// Rows renders an object result as "key: <compact JSON>" lines.
func (r Result) Rows() []string {
	rows := make([]string, 0, len(r.Pairs))
	for _, p := range r.Pairs {
		rows = append(rows, p.Key+": "+string(compact(p.Value)))
	}
	return rows
}

// Render draws the result. expanded toggles the detection image line.
func (r Result) Render(expanded bool) string {
	var b strings.Builder
	switch r.Kind {
	case KindText:
		b.WriteString(r.Text)
	case KindScalar:
		b.WriteString(string(r.Scalar))
	case KindObject:
		for _, row := range r.Rows() {
			k, v, _ := strings.Cut(row, ": ")
			b.WriteString(style.Bold.Render(k+":") + " " + v + "\n")
		}
	case KindDetection:
		d := r.Detection
		b.WriteString(style.Bold.Render(fmt.Sprintf("Detected objects (%d):", len(d.Objects))))
		b.WriteString("\n")
		for _, o := range d.Objects {
			b.WriteString(fmt.Sprintf("  %s  %s\n", style.TableCell.Render(o.Class), style.Info.Render(Percent(o.Confidence))))
		}
		if d.OutputImage != "" {
			if expanded {
				b.WriteString(style.Bold.Render("Image: ") + ImagePath(d.OutputImage) + "\n")
			} else {
				b.WriteString(style.DimText.Render("image available, press i to expand") + "\n")
			}
		}
	}
	return b.String()
}

// RecordText is the stored form of a raw result: a JSON string as its text,
// anything else as compact JSON.
func RecordText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(compact(raw))
}
