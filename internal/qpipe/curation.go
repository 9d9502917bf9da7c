package qpipe

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CurationHelper accumulates hints that let a human curator identify the
// correct URL for each module after the run: every (base URL, sequence
// number, url id) combination observed per module, with occurrence counts,
// plus the candidate resource ids per module URI.
type CurationHelper struct {
	outputDir string

	// module top-level URI -> base URL -> "seq\x00urlID" -> count
	hints map[string]map[string]map[string]int
	// module URI -> distinct (url id, resource id) pairs, in discovery order
	candidates map[string][]resourceCandidate
}

type resourceCandidate struct {
	URLID      string `json:"url_id"`
	ResourceID string `json:"resource_id"`
}

// NewCurationHelper creates a helper that serializes into outputDir.
func NewCurationHelper(outputDir string) *CurationHelper {
	return &CurationHelper{
		outputDir:  outputDir,
		hints:      make(map[string]map[string]map[string]int),
		candidates: make(map[string][]resourceCandidate),
	}
}

// Record stores curation hints for a module-bearing event: the resource id
// as a candidate for the module, and the page/sequence combination under
// which the module was seen.
func (c *CurationHelper) Record(event Event) {
	raw := event.Raw()
	if raw.Module == nil {
		return
	}
	c.addCandidate(raw, event)
	c.addHint(raw, event)
}

func (c *CurationHelper) addCandidate(raw *RawEvent, event Event) {
	uri := raw.Module.URI()
	candidate := resourceCandidate{
		URLID:      event.Get("url_id"),
		ResourceID: event.Get("resource_id"),
	}
	for _, known := range c.candidates[uri] {
		if known == candidate {
			return
		}
	}
	c.candidates[uri] = append(c.candidates[uri], candidate)
}

func (c *CurationHelper) addHint(raw *RawEvent, event Event) {
	if raw.Page == nil {
		return
	}
	moduleURI := raw.Module.TopLevelURI()
	baseURL := raw.Page.BaseURL()
	key := raw.Page.Seq + "\x00" + event.Get("url_id")

	byBase, ok := c.hints[moduleURI]
	if !ok {
		byBase = make(map[string]map[string]int)
		c.hints[moduleURI] = byBase
	}
	byKey, ok := byBase[baseURL]
	if !ok {
		byKey = make(map[string]int)
		byBase[baseURL] = byKey
	}
	byKey[key]++
}

// Serialize writes the collected hints as curation_hints.json plus an
// org-mode review form (curation_hints.org). By picking a base URL and a
// sequence number in the form, the curator identifies the correct URL id
// for each module.
func (c *CurationHelper) Serialize() error {
	if err := c.writeJSON(); err != nil {
		return err
	}
	return c.writeOrg()
}

type hintExport struct {
	Seq   string `json:"seq"`
	URLID string `json:"url_id"`
	Count int    `json:"count"`
}

func (c *CurationHelper) writeJSON() error {
	export := struct {
		Hints      map[string]map[string][]hintExport `json:"hints"`
		Candidates map[string][]resourceCandidate     `json:"candidates"`
	}{
		Hints:      make(map[string]map[string][]hintExport),
		Candidates: c.candidates,
	}
	for module, byBase := range c.hints {
		export.Hints[module] = make(map[string][]hintExport)
		for baseURL, byKey := range byBase {
			for key, count := range byKey {
				seq, urlID, _ := strings.Cut(key, "\x00")
				export.Hints[module][baseURL] = append(export.Hints[module][baseURL],
					hintExport{Seq: seq, URLID: urlID, Count: count})
			}
			sort.Slice(export.Hints[module][baseURL], func(i, j int) bool {
				a, b := export.Hints[module][baseURL][i], export.Hints[module][baseURL][j]
				if a.Seq != b.Seq {
					return a.Seq < b.Seq
				}
				return a.URLID < b.URLID
			})
		}
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(c.outputDir, "curation_hints.json")
	return os.WriteFile(path, data, 0o644)
}

func (c *CurationHelper) writeOrg() error {
	var b strings.Builder

	modules := sortedKeys(c.hints)
	for _, module := range modules {
		fmt.Fprintf(&b, "* Module %s\n", module)
		byBase := c.hints[module]
		for _, baseURL := range sortedKeys(byBase) {
			fmt.Fprintf(&b, "** [[%s]] \n", baseURL)
			byKey := byBase[baseURL]
			for _, key := range sortedKeys(byKey) {
				seq, urlID, _ := strings.Cut(key, "\x00")
				fmt.Fprintf(&b, "- [ ] x%d :: Panel %s :%s: \n", byKey[key], seq, urlID)
			}
		}
	}

	path := filepath.Join(c.outputDir, "curation_hints.org")
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
