package model

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrDanglingEdge = errors.New("edge endpoint does not exist")
	ErrNodeNotFound = errors.New("node not found")
)

// NodeType is the label of a graph node.
type NodeType string

const (
	NodeTypePaper    NodeType = "Paper"
	NodeTypeTrial    NodeType = "Trial"
	NodeTypeChemical NodeType = "Chemical"
	NodeTypeDisease  NodeType = "Disease"
	NodeTypeTarget   NodeType = "Target"
	NodeTypeConcept  NodeType = "Concept"
)

// NodeTypes lists all known node types.
var NodeTypes = []NodeType{NodeTypePaper, NodeTypeTrial, NodeTypeChemical, NodeTypeDisease, NodeTypeTarget, NodeTypeConcept}

// Valid checks whether t is a known node type.
func (t NodeType) Valid() bool {
	for _, n := range NodeTypes {
		if n == t {
			return true
		}
	}
	return false
}

// IsEntity reports whether nodes of this type come from extraction.
func (t NodeType) IsEntity() bool {
	return t != NodeTypePaper && t != NodeTypeTrial
}

// Relation is the type of a directed edge.
type Relation string

const (
	RelationMentions     Relation = "MENTIONS"
	RelationInvestigates Relation = "INVESTIGATES"
	RelationRecruitsFor  Relation = "RECRUITS_FOR"
)

// Relations lists all known relation types.
var Relations = []Relation{RelationMentions, RelationInvestigates, RelationRecruitsFor}

// Valid checks whether r is a known relation.
func (r Relation) Valid() bool {
	for _, n := range Relations {
		if n == r {
			return true
		}
	}
	return false
}

var (
	paperNamespace  = uuid.NewSHA1(uuid.NameSpaceURL, []byte("biolink/paper"))
	trialNamespace  = uuid.NewSHA1(uuid.NameSpaceURL, []byte("biolink/trial"))
	entityNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("biolink/entity"))
)

// PaperNodeID derives the node id of a paper from its external id.
func PaperNodeID(paperID string) string {
	return uuid.NewSHA1(paperNamespace, []byte(strings.TrimSpace(paperID))).String()
}

// TrialNodeID derives the node id of a trial from its registry id.
func TrialNodeID(trialID string) string {
	return uuid.NewSHA1(trialNamespace, []byte(strings.ToUpper(strings.TrimSpace(trialID)))).String()
}

// EntityNodeID derives the node id of an entity from its canonical name.
func EntityNodeID(name string) string {
	return uuid.NewSHA1(entityNamespace, []byte(CanonicalName(name))).String()
}

// Node is a typed graph node.
type Node struct {
	ID         string   `json:"id"`
	Type       NodeType `json:"type"`
	Label      string   `json:"label"`
	Attributes Metadata `json:"attributes"`
}

// Title returns the title attribute, falling back to the label.
func (n *Node) Title() string {
	if title := n.Attributes.GetString("title"); title != "" {
		return title
	}
	return n.Label
}

// Edge is a directed typed edge. (SourceID, TargetID, Relation) is unique.
type Edge struct {
	SourceID   string   `json:"source_id"`
	TargetID   string   `json:"target_id"`
	Relation   Relation `json:"relation"`
	Attributes Metadata `json:"attributes,omitempty"`
}

// Key is the uniqueness key of the edge.
func (e *Edge) Key() string {
	return e.SourceID + "|" + string(e.Relation) + "|" + e.TargetID
}

// Neighbor is one match of a neighborhood lookup: a node matching the search
// term, an adjacent node and the edge connecting them.
type Neighbor struct {
	Node     *Node `json:"node"`
	Edge     *Edge `json:"edge"`
	Adjacent *Node `json:"adjacent"`
}

// Fact is a relationship statement between two nodes.
type Fact struct {
	Source   string   `json:"source"`
	Relation Relation `json:"relation"`
	Target   string   `json:"target"`
}

func (f Fact) String() string {
	return "- " + f.Source + " " + string(f.Relation) + " " + f.Target
}

const (
	GraphAnswerHeader = "Knowledge Graph Relationships:"
	NoGraphKnowledge  = "No specific graph knowledge found for this query."
)

// GraphAnswer is the result of a graph query.
type GraphAnswer struct {
	Terms []string `json:"terms"`
	Facts []Fact   `json:"facts"`
}

// Found reports whether any fact was found.
func (a *GraphAnswer) Found() bool {
	return a != nil && len(a.Facts) > 0
}

// String renders the facts or the no knowledge sentinel.
func (a *GraphAnswer) String() string {
	if !a.Found() {
		return NoGraphKnowledge
	}
	lines := make([]string, 0, len(a.Facts)+1)
	lines = append(lines, GraphAnswerHeader)
	for _, f := range a.Facts {
		lines = append(lines, f.String())
	}
	return strings.Join(lines, "\n")
}

const (
	BuildModePapersOnly      = "papers_only"
	BuildModePapersAndTrials = "papers_and_trials"
)

// BuildSummary reports what a graph build ingested.
type BuildSummary struct {
	Topic          string `json:"topic,omitempty"`
	Mode           string `json:"mode"`
	PapersIngested int    `json:"papers_ingested"`
	TrialsIngested int    `json:"trials_ingested"`
	EntityNodes    int    `json:"entity_nodes"`
	Edges          int    `json:"edges"`
}

// VisNode is a node prepared for visualization.
type VisNode struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Tooltip string `json:"title"`
	Color   string `json:"color"`
	Size    int    `json:"size"`
}

// VisEdge is an edge prepared for visualization.
type VisEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// Visualization is a complete visualization payload.
type Visualization struct {
	Nodes []*VisNode `json:"nodes"`
	Edges []*VisEdge `json:"edges"`
}
