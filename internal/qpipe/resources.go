package qpipe

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/MOOC-Learner-Project/MOOC-Learner-Curated/internal/moocdb"
)

// Resource is the payload of a resource hierarchy node: display name plus
// the content/medium classification.
type Resource struct {
	Name    string
	Content string
	Medium  string

	typeID int
}

// NewResourcePayload returns an empty Resource, used for the hierarchy root
// and synthesized intermediate nodes.
func NewResourcePayload() *Resource {
	return &Resource{}
}

// Merge fills the display name from other when this node has none. The
// classification of an already-known node is kept as is.
func (r *Resource) Merge(other *Resource) {
	if other.Name != "" && r.Name == "" {
		r.Name = other.Name
	}
}

type typeRule struct {
	pattern  *regexp.Regexp
	category string
}

// Classification rules, matched in order against the resource URI. More
// specific patterns come first.
var contentRules = []typeRule{
	{regexp.MustCompile(`video`), "lecture"},
	{regexp.MustCompile(`book`), "book"},
	{regexp.MustCompile(`problem`), "problem"},
	{regexp.MustCompile(`combinedopenended`), "problem"},
	{regexp.MustCompile(`open_ended`), "problem"},
	{regexp.MustCompile(`wiki`), "wiki"},
	{regexp.MustCompile(`thread|forum|discussion`), "forum"},
	{regexp.MustCompile(`preview`), "testing"},
	{regexp.MustCompile(`info`), "informational"},
	{regexp.MustCompile(`about`), "informational"},
	{regexp.MustCompile(`progress`), "informational"},
	{regexp.MustCompile(`profile|login|account`), "profile"},
}

var mediumRules = []typeRule{
	{regexp.MustCompile(`video`), "video"},
	{regexp.MustCompile(`book`), "text"},
	{regexp.MustCompile(`problem`), "text"},
	{regexp.MustCompile(`combinedopenended`), "text"},
	{regexp.MustCompile(`open_ended`), "text"},
	{regexp.MustCompile(`wiki`), "text"},
	{regexp.MustCompile(`thread|forum|discussion`), "text"},
	{regexp.MustCompile(`info`), "text"},
	{regexp.MustCompile(`about`), "text"},
	{regexp.MustCompile(`progress`), "text"},
	{regexp.MustCompile(`profile`), "text"},
}

// ResourceManager builds the resource hierarchy from event URIs and emits
// the resources, resource_types, and resources_urls tables.
type ResourceManager struct {
	hierarchy     *Hierarchy[*Resource]
	writer        moocdb.Writer
	resourceTypes *moocdb.DictionaryTable
	resourcesURLs *moocdb.DictionaryTable
}

// NewResourceManager creates a manager writing into db, with the hierarchy
// rooted at rootURI.
func NewResourceManager(db *moocdb.MOOCdb, rootURI string) *ResourceManager {
	return &ResourceManager{
		hierarchy:     NewHierarchy(rootURI, NewResourcePayload),
		writer:        db.Writer("resources"),
		resourceTypes: moocdb.NewDictionaryTable(db, "resource_types"),
		resourcesURLs: moocdb.NewDictionaryTable(db, "resources_urls"),
	}
}

// CreateResource inserts the event's resource into the hierarchy, records
// the resource/url mapping, and returns the assigned resource id. ok is
// false when the event carries no URI, or a URI the hierarchy rejects, and
// no resource is created.
func (m *ResourceManager) CreateResource(event Event) (id int, ok bool) {
	uri := event.URI()
	if uri == "" {
		return 0, false
	}

	resource := &Resource{Name: event.ResourceDisplayName()}
	resource.Content, resource.Medium = classifyResource(uri)

	id = m.hierarchy.Insert(uri, resource)
	if id < 0 {
		return 0, false
	}
	m.resourcesURLs.Insert(strconv.Itoa(id), event.Get("url_id"))
	return id, true
}

// classifyResource resolves the (content, medium) classification for a
// resource URI through the ordered rule lists.
func classifyResource(uri string) (content, medium string) {
	for _, rule := range contentRules {
		if rule.pattern.MatchString(uri) {
			content = rule.category
			break
		}
	}
	for _, rule := range mediumRules {
		if rule.pattern.MatchString(uri) {
			medium = rule.category
			break
		}
	}
	return content, medium
}

// Hierarchy exposes the underlying resource hierarchy.
func (m *ResourceManager) Hierarchy() *Hierarchy[*Resource] { return m.hierarchy }

// Serialize assigns resource type ids over the completed hierarchy, then
// writes the resources table in pre-order plus the resource_types and
// resources_urls dictionaries. When prettyPrintTo is non-empty the hierarchy
// is also rendered there as an indented tree for human review.
func (m *ResourceManager) Serialize(prettyPrintTo string) error {
	m.hierarchy.Walk(func(n *HierarchyNode[*Resource]) {
		n.Payload.typeID = m.resourceTypes.Insert(n.Payload.Content, n.Payload.Medium)
	})

	var storeErr error
	m.hierarchy.Walk(func(n *HierarchyNode[*Resource]) {
		if storeErr != nil {
			return
		}
		storeErr = m.writer.Store(resourceRow(n))
	})
	if storeErr != nil {
		return storeErr
	}

	if err := m.resourceTypes.Serialize(); err != nil {
		return err
	}
	if err := m.resourcesURLs.Serialize(); err != nil {
		return err
	}

	if prettyPrintTo != "" {
		rendered := " Resource Hierarchy : \n" + m.hierarchy.String()
		if err := os.WriteFile(prettyPrintTo, []byte(rendered), 0o644); err != nil {
			return fmt.Errorf("failed to write resource hierarchy: %w", err)
		}
	}
	return nil
}

func resourceRow(n *HierarchyNode[*Resource]) moocdb.Row {
	parentID := ""
	if n.ParentID >= 0 {
		parentID = strconv.Itoa(n.ParentID)
	}
	return moocdb.Row{
		"resource_id":        strconv.Itoa(n.ID),
		"resource_name":      n.Payload.Name,
		"resource_uri":       n.URI,
		"resource_type_id":   strconv.Itoa(n.Payload.typeID),
		"resource_parent_id": parentID,
	}
}
