package app

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"sharesync/internal/sharing"
)

// Host event kinds accepted by ServeEvents.
const (
	EventFileWillBeDeleted = "file_will_be_deleted"
	EventFileDeleted       = "file_deleted"
	EventShareCreated      = "share_created"
	EventAppUpgrade        = "app_upgrade"
)

// maxEventSize bounds a single event line.
const maxEventSize = 1 << 20

//go:embed events.schema.json
var eventSchemaJSON []byte

var (
	eventSchemaOnce sync.Once
	eventSchema     *jsonschema.Schema
	eventSchemaErr  error
)

func compiledEventSchema() (*jsonschema.Schema, error) {
	eventSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(eventSchemaJSON))
		if err != nil {
			eventSchemaErr = fmt.Errorf("parsing event schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("events.schema.json", doc); err != nil {
			eventSchemaErr = fmt.Errorf("loading event schema: %w", err)
			return
		}
		eventSchema, eventSchemaErr = c.Compile("events.schema.json")
	})
	return eventSchema, eventSchemaErr
}

// HostEvent is one line of the host event stream.
type HostEvent struct {
	Kind       string `json:"kind"`
	Path       string `json:"path,omitempty"`
	ItemType   string `json:"item_type,omitempty"`
	FileSource int64  `json:"file_source,omitempty"`
	Owner      string `json:"owner,omitempty"`
	Actor      string `json:"actor,omitempty"`
}

// EventResult is written back for every HostEvent, in order.
type EventResult struct {
	Kind     string   `json:"kind"`
	Path     string   `json:"path,omitempty"`
	Outcome  string   `json:"outcome,omitempty"`
	FileID   int64    `json:"fileid,omitempty"`
	Removed  int64    `json:"removed,omitempty"`
	Users    []string `json:"users,omitempty"`
	From     string   `json:"from,omitempty"`
	To       string   `json:"to,omitempty"`
	Snapshot string   `json:"snapshot,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Outcomes of pre-delete events.
const (
	OutcomeRecorded = "recorded"
	OutcomeIgnored  = "ignored"
)

// ServeEvents reads newline-delimited JSON host events from r and writes one
// JSON result line per event to w. Invalid events produce a result carrying
// an error and do not stop the stream. It returns when r is exhausted, ctx is
// done, or w fails.
func (a *SyncApp) ServeEvents(ctx context.Context, r io.Reader, w io.Writer) error {
	if err := a.persistOperation(ctx, ""); err != nil {
		return a.fail(err)
	}
	schema, err := compiledEventSchema()
	if err != nil {
		return a.fail(err)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxEventSize)
	enc := json.NewEncoder(w)

	var handled int
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return a.fail(err)
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		result := a.handleEventLine(ctx, schema, line)
		if err := enc.Encode(result); err != nil {
			return a.fail(fmt.Errorf("writing event result: %w", err))
		}
		handled++
	}
	if err := scanner.Err(); err != nil {
		return a.fail(fmt.Errorf("reading events: %w", err))
	}

	a.logger.Info("event stream closed", "events", handled, "pending", a.updater.Coordinator().Pending().Len())
	return nil
}

func (a *SyncApp) handleEventLine(ctx context.Context, schema *jsonschema.Schema, line []byte) EventResult {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(line))
	if err != nil {
		return EventResult{Error: fmt.Sprintf("decoding event: %v", err)}
	}
	if err := schema.Validate(inst); err != nil {
		var ev HostEvent
		_ = json.Unmarshal(line, &ev)
		return EventResult{Kind: ev.Kind, Path: ev.Path, Error: fmt.Sprintf("invalid event: %v", err)}
	}

	var ev HostEvent
	if err := json.Unmarshal(line, &ev); err != nil {
		return EventResult{Error: fmt.Sprintf("decoding event: %v", err)}
	}
	return a.HandleEvent(ctx, ev)
}

// HandleEvent dispatches a single validated host event.
func (a *SyncApp) HandleEvent(ctx context.Context, ev HostEvent) EventResult {
	result := EventResult{Kind: ev.Kind, Path: ev.Path}

	switch ev.Kind {
	case EventFileWillBeDeleted:
		entry := a.updater.OnFileWillBeDeleted(ctx, ev.Path)
		if entry == nil {
			result.Outcome = OutcomeIgnored
			return result
		}
		result.Outcome = OutcomeRecorded
		result.FileID = entry.FileID

	case EventFileDeleted:
		cleanup := a.updater.OnFileDeleted(ctx, ev.Path)
		result.Outcome = string(cleanup.Outcome)
		result.FileID = cleanup.FileID
		result.Removed = cleanup.Removed
		if cleanup.Outcome == sharing.OutcomeFailed && cleanup.Err != nil {
			result.Error = cleanup.Err.Error()
		}

	case EventShareCreated:
		result.Users = a.updater.OnShareCreated(ctx, sharing.ShareEvent{
			ItemType:   sharing.ItemType(ev.ItemType),
			FileSource: ev.FileSource,
			Owner:      ev.Owner,
			Actor:      ev.Actor,
		})

	case EventAppUpgrade:
		upgrade, err := a.updater.OnAppUpgrade(ctx)
		if err != nil {
			a.logger.Error("upgrade failed", "error", err)
			result.Error = err.Error()
			return result
		}
		result.From = upgrade.From
		result.To = upgrade.To
		result.Removed = upgrade.Removed
		result.Snapshot = upgrade.Snapshot

	default:
		result.Error = fmt.Sprintf("unknown event kind %q", ev.Kind)
	}

	return result
}
