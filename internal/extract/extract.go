// Package extract turns a raw clinical notes dump into test cases.
//
// The notes dump is a single text file in which each patient's clinical
// notes and the physiotherapist's letter are introduced by literal headers
// such as "Patient A Notes:" and "Letter for Patient A:". Extraction tries a
// list of strategies in order and keeps the first one that finds anything.
package extract

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/signalnine/letterbench/internal/result"
)

type section int

const (
	sectionNotes section = iota
	sectionReference
)

// strategy returns the records it finds, or nil when it finds nothing.
type strategy struct {
	name string
	run  func(content string) []result.TestCase
}

var strategies = []strategy{
	{name: "anchored", run: extractAnchored},
	{name: "header scan", run: extractHeaderScan},
	{name: "substring", run: extractSubstring},
}

var rawDataPrefix = regexp.MustCompile(`(?i)^RAW DATA:\s*`)

// Extract finds patient records in content. Records keep discovery order.
func Extract(ctx context.Context, content string) []result.TestCase {
	log := clog.FromContext(ctx)
	content = rawDataPrefix.ReplaceAllString(content, "")
	log.Debugf("Processing %d characters", len(content))

	for _, s := range strategies {
		records := s.run(content)
		if len(records) == 0 {
			log.Debugf("Strategy %q found nothing", s.name)
			continue
		}
		log.Debugf("Strategy %q found %d patients", s.name, len(records))
		for _, r := range records {
			if r.Notes != "" {
				log.Debugf("%s notes: %s", r.ID, preview(r.Notes))
			}
			if r.Reference != "" {
				log.Debugf("%s reference: %s", r.ID, preview(r.Reference))
			}
		}
		return records
	}
	return nil
}

var strayEscape = regexp.MustCompile(`\\([^ntrab'"\\])`)

// Clean drops the backslash from escape sequences that are not one of
// \n \t \r \a \b \' \" \\.
func Clean(text string) string {
	return strayEscape.ReplaceAllString(text, "$1")
}

// ExtractFile cleans and extracts input and writes the records as JSON to
// output, or to test_data_<timestamp>.json when output is empty. It returns
// the path written.
func ExtractFile(ctx context.Context, input, output string) (string, error) {
	data, err := os.ReadFile(input)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", input, err)
	}
	records := Extract(ctx, Clean(string(data)))
	if len(records) == 0 {
		return "", fmt.Errorf("no patient data found in %s", input)
	}
	if output == "" {
		output = fmt.Sprintf("test_data_%s.json", time.Now().Format("20060102_150405"))
	}
	if err := result.WriteJSON(output, records); err != nil {
		return "", err
	}
	clog.FromContext(ctx).Infof("Extracted %d patients from %s", len(records), input)
	clog.FromContext(ctx).Infof("Saved to %s", output)
	return output, nil
}

// records accumulates sections per patient label in first-seen order.
type records struct {
	order   []string
	byLabel map[string]*result.TestCase
}

func newRecords() *records {
	return &records{byLabel: map[string]*result.TestCase{}}
}

func (r *records) set(label string, s section, text string) {
	rec, ok := r.byLabel[label]
	if !ok {
		rec = &result.TestCase{ID: "patient_" + strings.ToLower(label)}
		r.byLabel[label] = rec
		r.order = append(r.order, label)
	}
	text = strings.TrimSpace(text)
	switch s {
	case sectionNotes:
		rec.Notes = text
	case sectionReference:
		rec.Reference = text
	}
}

func (r *records) list() []result.TestCase {
	if len(r.order) == 0 {
		return nil
	}
	out := make([]result.TestCase, 0, len(r.order))
	for _, label := range r.order {
		out = append(out, *r.byLabel[label])
	}
	return out
}

type anchoredPattern struct {
	label   string
	section section
	re      *regexp.Regexp
}

// nextHeader ends A's and B's letters at any later patient header, or at the
// end of the text.
const nextHeader = `(?:Patient [A-Z] Notes:|Patient [A-Z] Letter:|Letter for Patient [A-Z]:|$)`

var anchoredPatterns = []anchoredPattern{
	{"A", sectionNotes, regexp.MustCompile(`(?s)Patient A Notes:(.*?)Letter for Patient A:`)},
	{"A", sectionReference, regexp.MustCompile(`(?s)Letter for Patient A:(.*?)` + nextHeader)},
	{"B", sectionNotes, regexp.MustCompile(`(?s)Patient B Notes:(.*?)Patient B Letter:`)},
	{"B", sectionReference, regexp.MustCompile(`(?s)Patient B Letter:(.*?)` + nextHeader)},
	{"C", sectionNotes, regexp.MustCompile(`(?s)Patient C Notes:(.*?)Patient C Letter:`)},
	{"C", sectionReference, regexp.MustCompile(`(?s)Patient C Letter:(.*?)(?:Patient D|$)`)},
}

func extractAnchored(content string) []result.TestCase {
	recs := newRecords()
	for _, p := range anchoredPatterns {
		m := p.re.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		recs.set(p.label, p.section, m[1])
	}
	return recs.list()
}

var sectionHeader = regexp.MustCompile(`Patient ([A-Z]) Notes:|Letter for Patient ([A-Z]):`)

// extractHeaderScan treats every header as the start of a section that runs
// until the next header of either kind.
func extractHeaderScan(content string) []result.TestCase {
	matches := sectionHeader.FindAllStringSubmatchIndex(content, -1)
	recs := newRecords()
	for i, m := range matches {
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		var label string
		if m[2] >= 0 {
			label = content[m[2]:m[3]]
		} else {
			label = content[m[4]:m[5]]
		}
		s := sectionReference
		if strings.Contains(content[m[0]:m[1]], "Notes") {
			s = sectionNotes
		}
		recs.set(label, s, content[m[1]:end])
	}
	return recs.list()
}

const (
	notesHeaderA  = "Patient A Notes:"
	letterHeaderA = "Letter for Patient A:"
	notesHeaderB  = "Patient B Notes:"
)

func extractSubstring(content string) []result.TestCase {
	start := strings.Index(content, notesHeaderA)
	if start < 0 {
		return nil
	}
	start += len(notesHeaderA)
	recs := newRecords()
	recs.set("A", sectionNotes, content[start:indexFrom(content, letterHeaderA, start)])

	if letter := strings.Index(content, letterHeaderA); letter >= 0 {
		letter += len(letterHeaderA)
		recs.set("A", sectionReference, content[letter:indexFrom(content, notesHeaderB, letter)])
	}
	return recs.list()
}

// indexFrom returns the index of sub in s at or after from, or len(s).
func indexFrom(s, sub string, from int) int {
	if i := strings.Index(s[from:], sub); i >= 0 {
		return from + i
	}
	return len(s)
}

func preview(s string) string {
	if r := []rune(s); len(r) > 50 {
		s = string(r[:50])
	}
	return strings.ReplaceAll(s, "\n", " ") + "..."
}
