package input

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Frame is the input of one tick, or a gap standing for a block of ticks that
// ran without player input (an automatic map transition).
type Frame struct {
	Keys Keys
	Gap  bool
}

// Recording is an ordered list of frames, one per tick.
type Recording []Frame

const (
	textHeader = "# timewarp inputs v1"
	gapLine    = "|"
)

func (r Recording) Ticks() int {
	n := 0
	for _, f := range r {
		if !f.Gap {
			n++
		}
	}
	return n
}

// WriteText writes one frame per line: key names joined by '+', "-" for no
// keys and "|" for a gap.
func (r Recording) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, textHeader); err != nil {
		return err
	}
	for _, f := range r {
		line := f.Keys.String()
		if f.Gap {
			line = gapLine
		}
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func ReadText(rd io.Reader) (Recording, error) {
	sc := bufio.NewScanner(rd)
	var out Recording
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == gapLine {
			out = append(out, Frame{Gap: true})
			continue
		}
		keys, err := ParseKeys(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out = append(out, Frame{Keys: keys})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarshalJSON encodes the array form: a list of key-name lists with null
// for a gap.
func (r Recording) MarshalJSON() ([]byte, error) {
	raw := make([][]string, len(r))
	for i, f := range r {
		if f.Gap {
			continue
		}
		raw[i] = f.Keys.Names()
	}
	return json.Marshal(raw)
}

func (r *Recording) UnmarshalJSON(b []byte) error {
	var raw []*[]string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Recording, len(raw))
	for i, names := range raw {
		if names == nil {
			out[i] = Frame{Gap: true}
			continue
		}
		var keys Keys
		for _, n := range *names {
			k, err := ParseKey(n)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			keys = keys.With(k)
		}
		out[i] = Frame{Keys: keys}
	}
	*r = out
	return nil
}
