package tools

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/brandon/unified-inbox/internal/config"
	"github.com/brandon/unified-inbox/internal/dispatch"
	"github.com/brandon/unified-inbox/internal/email"
	"github.com/brandon/unified-inbox/internal/inbox"
	"github.com/brandon/unified-inbox/internal/store"
	"github.com/brandon/unified-inbox/pkg/types"
)

// ReplyStore is the part of the message store the tools query directly
type ReplyStore interface {
	LatestSuggestedReply(ctx context.Context, threadID string) (string, bool, error)
	DistinctValues(ctx context.Context, field store.Field) ([]string, error)
}

// Sender posts replies
type Sender interface {
	Send(ctx context.Context, conv types.Conversation, history []types.Message, reply dispatch.Reply) (*dispatch.Payload, error)
}

// MailboxSyncer runs mailbox ingest
type MailboxSyncer interface {
	Names() []string
	SyncMailbox(ctx context.Context, name string) (*email.SyncResult, error)
	SyncAll(ctx context.Context) ([]email.SyncResult, error)
}

// Deps bundles what the tools operate on
type Deps struct {
	Config    *config.Config
	Session   *inbox.Session
	Store     ReplyStore
	Sender    Sender
	Mailboxes MailboxSyncer
	Logger    *logrus.Logger
}

// Registry manages MCP tools
type Registry struct {
	deps  Deps
	tools map[string]Tool
}

// Tool represents an MCP tool
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

// NewRegistry creates a new tool registry
func NewRegistry(deps Deps) *Registry {
	reg := &Registry{
		deps:  deps,
		tools: make(map[string]Tool),
	}
	reg.registerTools()
	return reg
}

func (r *Registry) registerTools() {
	toolList := []Tool{
		NewListConversationsTool(r.deps),
		NewGetThreadTool(r.deps),
		NewSuggestedReplyTool(r.deps),
		NewFilterValuesTool(r.deps),
		NewHideThreadsTool(r.deps),
		NewShowThreadsTool(r.deps),
		NewEditHiddenTool(r.deps),
		NewSendReplyTool(r.deps),
		NewRefreshTool(r.deps),
	}
	if r.deps.Mailboxes != nil {
		toolList = append(toolList, NewSyncMailboxTool(r.deps))
	}

	for _, tool := range toolList {
		r.tools[tool.Name()] = tool
		r.deps.Logger.WithField("tool", tool.Name()).Debug("Registered tool")
	}

	r.deps.Logger.WithField("count", len(r.tools)).Info("Registered tools")
}

// GetTool returns a tool by name
func (r *Registry) GetTool(name string) (Tool, bool) {
	tool, exists := r.tools[name]
	return tool, exists
}

// ListTools returns all registered tools sorted by name
func (r *Registry) ListTools() []Tool {
	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// GetToolDefinitions returns tool definitions for MCP
func (r *Registry) GetToolDefinitions() []map[string]interface{} {
	tools := r.ListTools()
	definitions := make([]map[string]interface{}, 0, len(tools))
	for _, tool := range tools {
		definitions = append(definitions, map[string]interface{}{
			"name":        tool.Name(),
			"description": tool.Description(),
			"inputSchema": tool.InputSchema(),
		})
	}
	return definitions
}
