package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lcrdev/docchat/internal/app"
	"github.com/lcrdev/docchat/internal/chat"
	"github.com/lcrdev/docchat/internal/config"
	"github.com/lcrdev/docchat/internal/document"
	"github.com/lcrdev/docchat/internal/log"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive document-grounded conversation",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := slog.LevelWarn
	if debugFlag {
		level = slog.LevelDebug
	}
	logger := log.NewWithWriter(os.Stderr, log.Config{Level: level})

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Println("docchat — chat with your documents")
	fmt.Println("Commands: /exit  /clear  /doc (load another document)  /help")
	fmt.Println()

	if err := setupSession(ctx, a, scanner); err != nil {
		return err
	}

	renderer := newMarkdownRenderer(80)

	for {
		fmt.Print("\n❯ ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			exit, err := handleCommand(ctx, a, scanner, input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			if exit {
				break
			}
			continue
		}

		fmt.Print("\nAssistant: ")
		reply, err := a.Handler.Submit(ctx, input, func(_ context.Context, fragment string) error {
			fmt.Print(fragment)
			return nil
		})
		if err != nil {
			fmt.Println()
			if errors.Is(err, chat.ErrNotInitialized) {
				fmt.Fprintln(os.Stderr, "No document loaded yet — use /doc first.")
			} else {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			continue
		}
		fmt.Println()

		// Re-print the finished reply with markdown styling when it
		// actually carries markup.
		if rendered := renderer.Render(reply); rendered != reply && strings.ContainsAny(reply, "#*`") {
			fmt.Println()
			fmt.Println(rendered)
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// handleCommand processes a slash command. Returns true when the REPL
// should exit.
func handleCommand(ctx context.Context, a *app.App, scanner *bufio.Scanner, input string) (bool, error) {
	switch input {
	case "/exit", "/quit":
		fmt.Println("Goodbye!")
		return true, nil
	case "/clear":
		a.State.ClearHistory()
		fmt.Println("Conversation history cleared.")
		return false, nil
	case "/doc":
		return false, setupSession(ctx, a, scanner)
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /exit   quit")
		fmt.Println("  /clear  discard conversation history")
		fmt.Println("  /doc    load a different document or switch model")
		fmt.Println("  /help   this message")
		return false, nil
	default:
		fmt.Printf("Unknown command %q — try /help\n", input)
		return false, nil
	}
}

// setupSession walks the user through document, provider and model
// selection and installs the resulting pipeline into the session.
func setupSession(ctx context.Context, a *app.App, scanner *bufio.Scanner) error {
	docReq, err := promptDocument(scanner)
	if err != nil {
		return err
	}

	fmt.Println("Loading document...")
	doc, err := a.Loader.Load(ctx, docReq)
	if err != nil {
		return fmt.Errorf("loading document: %w", err)
	}
	fmt.Printf("Loaded %s document (%d characters).\n", doc.SourceType, len(doc.Content))

	providerName, modelID, err := promptModel(a, scanner)
	if err != nil {
		return err
	}

	apiKey, _ := a.State.APIKey(providerName)

	client, err := a.Registry.NewClient(ctx, providerName, modelID, apiKey)
	if err != nil {
		return fmt.Errorf("constructing %s client: %w", providerName, err)
	}

	pipeline, err := chat.NewPipeline(chat.PipelineConfig{
		Client: client,
		Logger: a.Logger,
	})
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	a.State.Initialize(pipeline, doc)
	fmt.Printf("Ready — chatting with %s/%s. Ask away!\n", providerName, modelID)
	return nil
}

// promptDocument asks for a source type and its URL or file path.
func promptDocument(scanner *bufio.Scanner) (document.Request, error) {
	types := document.SourceTypes()
	options := make([]string, len(types))
	for i, t := range types {
		options[i] = string(t)
	}

	idx, err := promptChoice(scanner, "Document source", options)
	if err != nil {
		return document.Request{}, err
	}
	st := types[idx]

	if st.URLBased() {
		url, err := promptLine(scanner, "URL")
		if err != nil {
			return document.Request{}, err
		}
		return document.Request{Type: st, URL: url}, nil
	}

	path, err := promptLine(scanner, "File path")
	if err != nil {
		return document.Request{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Request{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return document.Request{Type: st, Bytes: data, Filename: filepath.Base(path)}, nil
}

// promptModel asks for a provider and model, collecting an API key if
// one is needed and not already in the session.
func promptModel(a *app.App, scanner *bufio.Scanner) (providerName, modelID string, err error) {
	infos := a.Registry.List()
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}

	pIdx, err := promptChoice(scanner, "Provider", names)
	if err != nil {
		return "", "", err
	}
	info := infos[pIdx]

	mIdx, err := promptChoice(scanner, "Model", info.Models)
	if err != nil {
		return "", "", err
	}

	if info.RequiresKey {
		if _, ok := a.State.APIKey(info.Name); !ok {
			key, err := promptLine(scanner, fmt.Sprintf("API key for %s", info.Name))
			if err != nil {
				return "", "", err
			}
			a.State.SetAPIKey(info.Name, key)
		}
	}

	return info.Name, info.Models[mIdx], nil
}

// promptChoice displays numbered options and reads a selection.
func promptChoice(scanner *bufio.Scanner, label string, options []string) (int, error) {
	fmt.Printf("%s:\n", label)
	for i, opt := range options {
		fmt.Printf("  %d) %s\n", i+1, opt)
	}

	for {
		fmt.Printf("Choose [1-%d]: ", len(options))
		if !scanner.Scan() {
			return 0, io.EOF
		}
		choice := strings.TrimSpace(scanner.Text())
		n, err := strconv.Atoi(choice)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Printf("Invalid choice %q.\n", choice)
	}
}

// promptLine reads one non-empty line.
func promptLine(scanner *bufio.Scanner, label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		if !scanner.Scan() {
			return "", io.EOF
		}
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			return line, nil
		}
	}
}
