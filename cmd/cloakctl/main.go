// Command cloakctl cloaks a prompt from the command line, optionally sends
// it to an OpenAI-compatible API, and prints the uncloaked response. With no
// API key it performs a dry run: cloaked text plus the entity map.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/raaihank/llm-cloak/internal/cloak"
	"github.com/raaihank/llm-cloak/internal/detect"
	"github.com/raaihank/llm-cloak/internal/entity"
	"github.com/raaihank/llm-cloak/internal/lookup"
)

func main() {
	var (
		baseURL    = flag.String("base-url", "", "OpenAI-compatible API base URL (default: api.openai.com)")
		model      = flag.String("model", openai.GPT3Dot5Turbo, "Model to request")
		streamMode = flag.Bool("stream", false, "Stream the response")
		showMap    = flag.Bool("show-map", false, "Print the entity map to stderr")
		startDelim = flag.String("start", cloak.DefaultStartDelimiter, "Placeholder start delimiter")
		endDelim   = flag.String("end", cloak.DefaultEndDelimiter, "Placeholder end delimiter")
		verbose    = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	prompt, err := readPrompt(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "cloakctl: %v\n", err)
		os.Exit(1)
	}

	logger := zap.NewNop()
	if *verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cloakctl: %v\n", err)
			os.Exit(1)
		}
	}

	provider := lookup.NewProvider(logger)
	if err := provider.Ensure(); err != nil {
		fmt.Fprintf(os.Stderr, "cloakctl: failed to load lookup corpora: %v\n", err)
		os.Exit(1)
	}
	engine := detect.NewEngine(provider, logger)

	shield, err := cloak.New(cloak.Config{
		StartDelimiter: *startDelim,
		EndDelimiter:   *endDelim,
	}, engine, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cloakctl: %v\n", err)
		os.Exit(1)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		dryRun(shield, prompt, *showMap)
		return
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if *baseURL != "" {
		clientConfig.BaseURL = *baseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	ctx := context.Background()
	if *streamMode {
		err = askStreaming(ctx, shield, client, *model, prompt, *showMap)
	} else {
		err = askOnce(ctx, shield, client, *model, prompt, *showMap)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "cloakctl: %v\n", err)
		os.Exit(1)
	}
}

// readPrompt takes the prompt from arguments, or stdin when none are given.
func readPrompt(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("empty prompt")
	}
	return prompt, nil
}

// dryRun prints the cloaked prompt without calling any API.
func dryRun(shield *cloak.Shield, prompt string, showMap bool) {
	cloaked, m := shield.Cloak(prompt)
	fmt.Println(cloaked)
	if showMap {
		printMap(m)
	}
}

func askOnce(ctx context.Context, shield *cloak.Shield, client *openai.Client, model, prompt string, showMap bool) error {
	answer, err := shield.Ask(ctx, prompt, func(ctx context.Context, cloaked string) (string, error) {
		resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: cloaked},
			},
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("empty completion response")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return err
	}
	fmt.Println(answer)
	if showMap {
		printMap(shield.LastMap())
	}
	return nil
}

func askStreaming(ctx context.Context, shield *cloak.Shield, client *openai.Client, model, prompt string, showMap bool) error {
	fragments, err := shield.AskStream(ctx, prompt, func(ctx context.Context, cloaked string) (iter.Seq[string], error) {
		stream, err := client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: cloaked},
			},
			Stream: true,
		})
		if err != nil {
			return nil, err
		}
		return func(yield func(string) bool) {
			defer stream.Close()
			for {
				chunk, err := stream.Recv()
				if errors.Is(err, io.EOF) {
					return
				}
				if err != nil {
					return
				}
				if len(chunk.Choices) == 0 {
					continue
				}
				if !yield(chunk.Choices[0].Delta.Content) {
					return
				}
			}
		}, nil
	})
	if err != nil {
		return err
	}

	for fragment := range fragments {
		fmt.Print(fragment)
	}
	fmt.Println()
	if showMap {
		printMap(shield.LastMap())
	}
	return nil
}

func printMap(m *entity.Map) {
	if m == nil {
		return
	}
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	var indented bytes.Buffer
	if err := json.Indent(&indented, data, "", "  "); err != nil {
		fmt.Fprintln(os.Stderr, string(data))
		return
	}
	fmt.Fprintln(os.Stderr, indented.String())
}
