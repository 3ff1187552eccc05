package repository

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/spark-support/internal/domain"
	"github.com/spec-kit/spark-support/internal/jsonvalue"
	"github.com/spec-kit/spark-support/internal/priority"
)

// DatasetFormat selects the decoder for a ticket fixture.
type DatasetFormat string

const (
	// FormatJSON also accepts comments and trailing commas.
	FormatJSON DatasetFormat = "json"
	FormatYAML DatasetFormat = "yaml"
)

// Field name candidates per canonical field, first present non-empty wins.
var (
	idKeys          = []string{"id", "ID", "Case Number", "case_number", "caseNumber", "ticket_id", "ticketId"}
	subjectKeys     = []string{"subject", "Subject", "title", "Title"}
	descriptionKeys = []string{"description", "Description", "Case Description", "case_description"}
	resolutionKeys  = []string{"resolution", "Resolution", "Case Resolution"}
	productKeys     = []string{"product", "Product"}
	priorityKeys    = []string{"priority", "Priority"}
	statusKeys      = []string{"status", "Status"}
	departmentKeys  = []string{"department", "Department", "Abteilung"}
	creationKeys    = []string{"creation", "created", "Created", "created_at", "Creation Date"}
)

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) DatasetFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadDatasetFile reads and decodes a ticket fixture from disk.
func LoadDatasetFile(path string) ([]domain.Ticket, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	tickets, err := DecodeDataset(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tickets, nil
}

// DecodeDataset decodes a fixture of any supported top-level shape into
// canonical tickets. Only undecodable bytes produce an error.
func DecodeDataset(data []byte, format DatasetFormat) ([]domain.Ticket, error) {
	var (
		root any
		err  error
	)
	switch format {
	case FormatYAML:
		root, err = decodeYAML(data)
	default:
		root, err = jsonvalue.Decode(jsonc.ToJSON(data))
	}
	if err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}

	records := collectRecords(root, true)
	tickets := make([]domain.Ticket, 0, len(records))
	for _, rec := range records {
		tickets = append(tickets, TicketFromRecord(rec))
	}
	return tickets, nil
}

// collectRecords accepts {tickets: [...]}, a bare array, a single ticket, or
// an object whose values are tickets.
func collectRecords(v any, top bool) []*jsonvalue.Object {
	switch t := v.(type) {
	case []any:
		records := make([]*jsonvalue.Object, 0, len(t))
		for _, item := range t {
			if obj, ok := item.(*jsonvalue.Object); ok {
				records = append(records, obj)
			}
		}
		return records
	case *jsonvalue.Object:
		if inner, ok := t.Get("tickets"); ok && top {
			return collectRecords(inner, false)
		}
		if looksLikeTicket(t) {
			return []*jsonvalue.Object{t}
		}
		var records []*jsonvalue.Object
		for _, k := range t.Keys() {
			child, _ := t.Get(k)
			if obj, ok := child.(*jsonvalue.Object); ok {
				records = append(records, obj)
			}
		}
		return records
	default:
		return nil
	}
}

func looksLikeTicket(obj *jsonvalue.Object) bool {
	for _, k := range idKeys {
		if _, ok := obj.Get(k); ok {
			return true
		}
	}
	return false
}

// TicketFromRecord derives the canonical ticket from one raw record. Each
// field falls back to its default independently.
func TicketFromRecord(rec *jsonvalue.Object) domain.Ticket {
	raw, _ := jsonvalue.ToPlain(rec).(map[string]any)
	ticket := domain.Ticket{
		ID:          strings.TrimSpace(pick(rec, idKeys)),
		Subject:     pick(rec, subjectKeys),
		Description: pick(rec, descriptionKeys),
		Resolution:  pick(rec, resolutionKeys),
		Product:     pick(rec, productKeys),
		Status:      pick(rec, statusKeys),
		Department:  pick(rec, departmentKeys),
		Creation:    pick(rec, creationKeys),
		Raw:         raw,
	}

	if tier, ok := priority.ParseTier(pick(rec, priorityKeys)); ok {
		ticket.Priority = tier
	} else {
		ticket.Priority = domain.PriorityMedium
	}

	if strings.TrimSpace(ticket.Status) == "" {
		ticket.Status = domain.TicketStatusOpen
		if strings.TrimSpace(ticket.Resolution) != "" {
			ticket.Status = domain.TicketStatusClosed
		}
	}
	if strings.TrimSpace(ticket.Department) == "" {
		ticket.Department = domain.UnknownValue
	}
	return ticket
}

func pick(rec *jsonvalue.Object, keys []string) string {
	for _, k := range keys {
		v, ok := rec.Get(k)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if strings.TrimSpace(t) != "" {
				return t
			}
		case float64, bool:
			return jsonvalue.String(t)
		}
	}
	return ""
}

func decodeYAML(data []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, err
	}
	return yamlValue(&doc)
}

func yamlValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlValue(n.Content[0])
	case yaml.AliasNode:
		return yamlValue(n.Alias)
	case yaml.MappingNode:
		obj := jsonvalue.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			value, err := yamlValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.Set(n.Content[i].Value, value)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			value, err := yamlValue(item)
			if err != nil {
				return nil, err
			}
			arr = append(arr, value)
		}
		return arr, nil
	}

	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return b, nil
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return f, nil
	default:
		return n.Value, nil
	}
}
