package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/memchat/memchat-go/pkg/chat"
	"github.com/memchat/memchat-go/pkg/core"
	openaiLLM "github.com/memchat/memchat-go/pkg/llm/openai"
	"github.com/memchat/memchat-go/pkg/server"
)

func main() {
	cfg, err := core.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.LLM.APIKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable is required")
	}

	store, err := core.NewStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize memory store: %v", err)
	}
	defer func() { _ = store.Close() }()

	provider, err := openaiLLM.NewClient(&openaiLLM.Config{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}
	defer func() { _ = provider.Close() }()

	chatSvc := chat.NewService(store, provider)
	router := server.NewRouter(store, chatSvc)

	addr := ":" + cfg.Port
	fmt.Printf("Server starting on port %s (backend: %s)\n", cfg.Port, store.BackendName())

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
