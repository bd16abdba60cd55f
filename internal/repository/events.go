package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"fitroom/pkg/schema"

	"gopkg.in/yaml.v3"
)

// JournalFile is the append-only event log inside the journal directory.
const JournalFile = "journal.yaml"

const journalVersion = "v1"

type journalDoc struct {
	Version string      `yaml:"version"`
	Events  []yaml.Node `yaml:"events"`
}

// Journal records studio events in an append-only YAML file.
type Journal struct {
	baseDir string
	mu      sync.Mutex
}

// NewJournal creates a journal rooted at baseDir.
func NewJournal(baseDir string) *Journal {
	return &Journal{baseDir: baseDir}
}

// Append adds events to the journal. The file is rewritten through a FileTx,
// so a failed append leaves the previous journal intact.
func (j *Journal) Append(events []schema.StudioEvent) error {
	if len(events) == 0 {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := BeginFileTx(j.baseDir, JournalFile)
	if err != nil {
		return fmt.Errorf("begin journal write: %w", err)
	}
	defer tx.Rollback()

	data, err := tx.Current()
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	var doc journalDoc
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse journal: %w", err)
		}
	}
	doc.Version = journalVersion

	for _, event := range events {
		node, err := eventToNode(event)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", event.EventID(), err)
		}
		doc.Events = append(doc.Events, *node)
	}

	data, err = yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("marshal journal: %w", err)
	}

	if err := tx.Write(data); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit journal: %w", err)
	}
	return nil
}

// ReadJournal returns every recorded event in chronological order.
func (j *Journal) ReadJournal() ([]schema.StudioEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(j.baseDir, JournalFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read journal: %w", err)
	}

	var doc journalDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse journal: %w", err)
	}

	events := make([]schema.StudioEvent, 0, len(doc.Events))
	for i := range doc.Events {
		event, err := nodeToEvent(&doc.Events[i])
		if err != nil {
			return nil, fmt.Errorf("journal entry %d: %w", i, err)
		}
		events = append(events, event)
	}

	// Stable so same-instant events keep their append order.
	sort.SliceStable(events, func(a, b int) bool {
		return events[a].Timestamp().Before(events[b].Timestamp())
	})
	return events, nil
}

// eventToNode encodes an event as a mapping tagged with its event_type.
func eventToNode(event schema.StudioEvent) (*yaml.Node, error) {
	var node yaml.Node
	if err := node.Encode(event); err != nil {
		return nil, err
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("event %T did not encode to a mapping", event)
	}

	typeKey := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "event_type"}
	typeVal := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: event.EventType()}
	node.Content = append([]*yaml.Node{typeKey, typeVal}, node.Content...)
	return &node, nil
}

// nodeToEvent decodes a journal entry into its typed event.
func nodeToEvent(node *yaml.Node) (schema.StudioEvent, error) {
	var header struct {
		EventType string `yaml:"event_type"`
	}
	if err := node.Decode(&header); err != nil {
		return nil, fmt.Errorf("decode event header: %w", err)
	}

	var event schema.StudioEvent
	switch header.EventType {
	case "BaseModelCreated":
		event = &schema.BaseModelCreated{}
	case "LayerAppended":
		event = &schema.LayerAppended{}
	case "LayerRemoved":
		event = &schema.LayerRemoved{}
	case "CursorMoved":
		event = &schema.CursorMoved{}
	case "PoseRendered":
		event = &schema.PoseRendered{}
	case "SceneChanged":
		event = &schema.SceneChanged{}
	case "TimelineReset":
		event = &schema.TimelineReset{}
	case "":
		return nil, fmt.Errorf("missing or invalid event_type")
	default:
		return nil, fmt.Errorf("unknown event type: %s", header.EventType)
	}

	if err := node.Decode(event); err != nil {
		return nil, fmt.Errorf("decode %s: %w", header.EventType, err)
	}
	return event, nil
}
