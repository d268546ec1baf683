package tools

import (
	"context"
)

// SyncMailboxTool pulls recent mail from the configured IMAP mailboxes
type SyncMailboxTool struct {
	deps Deps
}

// NewSyncMailboxTool creates a new sync mailbox tool
func NewSyncMailboxTool(deps Deps) *SyncMailboxTool {
	return &SyncMailboxTool{deps: deps}
}

// Name returns the tool name
func (t *SyncMailboxTool) Name() string {
	return "sync_mailbox"
}

// Description returns the tool description
func (t *SyncMailboxTool) Description() string {
	return "Ingest recent mail from one or all configured mailboxes as gmail conversations"
}

// InputSchema returns the JSON schema for tool inputs
func (t *SyncMailboxTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"mailbox": map[string]interface{}{
				"type":        "string",
				"description": "Optional: mailbox name. All mailboxes are synced when omitted.",
				"enum":        t.deps.Mailboxes.Names(),
			},
		},
	}
}

// Execute executes the tool
func (t *SyncMailboxTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	result := map[string]interface{}{}

	if name := stringParam(params, "mailbox"); name != "" {
		res, err := t.deps.Mailboxes.SyncMailbox(ctx, name)
		if err != nil {
			return nil, err
		}
		result["results"] = []interface{}{res}
	} else {
		results, err := t.deps.Mailboxes.SyncAll(ctx)
		if err != nil {
			result["error"] = err.Error()
		}
		result["results"] = results
	}

	if err := t.deps.Session.Refresh(ctx); err != nil {
		t.deps.Logger.WithError(err).Warn("Refresh after mailbox sync failed")
	}
	return result, nil
}
