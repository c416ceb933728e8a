// Package chat orchestrates the memory-augmented chat flow: retrieve
// relevant memories, prompt the LLM with them, and write the new
// conversation turns back into the user's namespace.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/memchat/memchat-go/pkg/core"
	"github.com/memchat/memchat-go/pkg/llm"
)

// SearchLimit is the number of memories retrieved for each chat turn.
const SearchLimit = 3

const systemPrompt = `You are a helpful AI assistant with memory capabilities.
Answer the user's question based on the query and any relevant memories.
Be conversational and helpful.`

// Result is the outcome of a chat turn.
type Result struct {
	// Response is the assistant's reply.
	Response string `json:"response"`

	// MemoriesUsed is the number of stored memories included in the prompt.
	MemoriesUsed int `json:"memories_used"`
}

// Service runs memory-augmented chat turns.
type Service struct {
	store    *core.Store
	provider llm.Provider
}

// NewService creates a new chat service.
func NewService(store *core.Store, provider llm.Provider) *Service {
	return &Service{
		store:    store,
		provider: provider,
	}
}

// Chat handles one chat turn for a user.
//
// The flow mirrors the classic memory-chat loop:
//  1. Search the user's namespace for memories relevant to the message
//  2. Build a system prompt carrying those memories
//  3. Generate the assistant reply
//  4. Store both conversation turns as new memories
//
// A blank message is rejected with ErrInvalidInput. Backend failures
// propagate unchanged; the reply is not returned if the write-back fails,
// since a silently forgetting assistant is worse than a visible error.
func (s *Service) Chat(ctx context.Context, userID, message string) (*Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, core.NewStoreError("Chat", core.ErrInvalidInput)
	}

	ns := s.store.Namespace(userID)

	memories, err := ns.QueryMemories(ctx, message, SearchLimit)
	if err != nil {
		return nil, err
	}

	prompt := systemPrompt
	if len(memories) > 0 {
		var lines []string
		for _, mem := range memories {
			lines = append(lines, "- "+mem.Content)
		}
		prompt += "\n\nRelevant User Memories:\n" + strings.Join(lines, "\n")
	}

	messages := []llm.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: message},
	}

	response, err := s.provider.GenerateWithMessages(ctx, messages)
	if err != nil {
		return nil, core.NewStoreError("Chat", err)
	}

	// Write both turns back so future searches can recall this exchange.
	if _, err := ns.AddMemory(ctx, fmt.Sprintf("User: %s", message)); err != nil {
		return nil, err
	}
	if _, err := ns.AddMemory(ctx, fmt.Sprintf("Assistant: %s", response)); err != nil {
		return nil, err
	}

	return &Result{
		Response:     response,
		MemoriesUsed: len(memories),
	}, nil
}
