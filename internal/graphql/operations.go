package graphql

// OperationKind distinguishes reads from writes.
type OperationKind int

// Operation kinds.
const (
	KindQuery OperationKind = iota
	KindMutation
)

// Operation is a named GraphQL document. Retry marks writes that are resent
// on transport failures; everything else is sent once.
type Operation struct {
	Name     string
	Document string
	Kind     OperationKind
	Retry    bool
}

// ChatCompletions fetches one page of chat completions at or below a cursor,
// newest first.
var ChatCompletions = Operation{
	Name: "ChatCompletions",
	Kind: KindQuery,
	Document: `query ChatCompletions($cursor: Int!, $limit: Int!) {
  chat_completions(where: {id: {_lte: $cursor}}, limit: $limit, order_by: {start_time: desc}) {
    id
    request
    response
    start_time
    end_time
    total_time
    cost
    model_id
    agent_name
  }
}`,
}

// AgentStatuses fetches one offset page of agent statuses, newest first.
var AgentStatuses = Operation{
	Name: "AgentStatuses",
	Kind: KindQuery,
	Document: `query AgentStatuses($limit: Int!, $offset: Int!) {
  agent_status(limit: $limit, offset: $offset, order_by: {created_at: desc}) {
    agent_id
    agent_name
    created_at
    is_paused
    pause_message
    updated_at
  }
}`,
}

// SetAgentPaused sets the paused flag of the agent with the given id.
var SetAgentPaused = Operation{
	Name: "SetAgentPaused",
	Kind: KindMutation,
	Document: `mutation SetAgentPaused($agentId: String!, $isPaused: Boolean!) {
  update_agent_status(where: {agent_id: {_eq: $agentId}}, _set: {is_paused: $isPaused}) {
    affected_rows
    returning {
      agent_id
      agent_name
      created_at
      is_paused
      pause_message
      updated_at
    }
  }
}`,
}

// InsertChatCompletion records one chat completion and returns the stored row.
var InsertChatCompletion = Operation{
	Name:  "InsertChatCompletion",
	Kind:  KindMutation,
	Retry: true,
	Document: `mutation InsertChatCompletion($object: chat_completions_insert_input!) {
  insert_chat_completions_one(object: $object) {
    id
    request
    response
    start_time
    end_time
    total_time
    cost
    model_id
    agent_name
  }
}`,
}

// InvalidationPolicy maps a mutation name to the query names whose cached
// results it makes stale.
type InvalidationPolicy map[string][]string

// DefaultInvalidation is the policy for the operations in this package.
var DefaultInvalidation = InvalidationPolicy{
	SetAgentPaused.Name:       {AgentStatuses.Name},
	InsertChatCompletion.Name: {ChatCompletions.Name},
}

// Affected returns the queries invalidated by the named mutation.
func (p InvalidationPolicy) Affected(mutation string) []string {
	return p[mutation]
}
