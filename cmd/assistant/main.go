package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/stupiduntilnot/notesassist/internal/config"
	"github.com/stupiduntilnot/notesassist/internal/dataset"
	"github.com/stupiduntilnot/notesassist/internal/sampler"
	"github.com/stupiduntilnot/notesassist/internal/session"
	"github.com/stupiduntilnot/notesassist/internal/transcript"
	"github.com/stupiduntilnot/notesassist/internal/wiring"
)

const helpText = `Type a post and press enter to get a reply. Commands:
  :load [n]   sample n examples from the loaded table (default NOTES_EXAMPLE_COUNT)
  :reload     reload the dataset and resample examples
  :examples   show the current examples
  :log        show the chat log
  :clear      clear the chat log (examples are kept)
  :help       show this help
  :quit       exit`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[assistant] no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[assistant] %v", err)
	}

	app, err := wiring.Open(cfg)
	if err != nil {
		log.Fatalf("[assistant] %v", err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("[assistant] session=%s provider=%s examples=%d", app.Session.ID(), cfg.ModelProvider, cfg.ExampleCount)
	r := &repl{
		sess:         app.Session,
		reloader:     app,
		defaultCount: cfg.ExampleCount,
		out:          os.Stdout,
	}
	r.reload(ctx)
	if err := r.run(ctx, os.Stdin); err != nil {
		log.Printf("[assistant] %v", err)
	}
}

type reloader interface {
	Reload(ctx context.Context) (dataset.Result, error)
}

type repl struct {
	sess         *session.Session
	reloader     reloader
	defaultCount int
	out          io.Writer
}

// run reads lines until EOF, :quit or ctx is done.
func (r *repl) run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	fmt.Fprintln(r.out, helpText)
	r.prompt()
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			r.prompt()
			continue
		}
		if strings.HasPrefix(line, ":") {
			if quit := r.command(ctx, line); quit {
				return nil
			}
		} else {
			r.submit(ctx, line)
		}
		r.prompt()
	}
	return sc.Err()
}

func (r *repl) prompt() {
	fmt.Fprint(r.out, "> ")
}

func (r *repl) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		fmt.Fprintln(r.out, helpText)
	case ":reload":
		r.reload(ctx)
	case ":load":
		n := r.defaultCount
		if len(fields) > 1 {
			v, err := strconv.Atoi(fields[1])
			if err != nil || v < 0 || v > config.MaxExampleCount {
				fmt.Fprintf(r.out, "count must be a number between 0 and %d\n", config.MaxExampleCount)
				return false
			}
			n = v
		}
		r.load(n)
	case ":examples":
		r.printExamples()
	case ":log":
		r.printLog()
	case ":clear":
		r.sess.ClearLog()
		fmt.Fprintln(r.out, "Chat log cleared.")
	default:
		fmt.Fprintf(r.out, "unknown command %s (try :help)\n", fields[0])
	}
	return false
}

func (r *repl) reload(ctx context.Context) {
	res, err := r.reloader.Reload(ctx)
	if err != nil {
		log.Printf("[assistant] dataset reload failed: %v", err)
		fmt.Fprintf(r.out, "Error loading data: %v\n", err)
		return
	}
	fmt.Fprintf(r.out, "Loaded %d valid rows from %s (%d skipped).\n", len(res.Pairs), res.Source, res.Skipped)
	if res.Coerced {
		fmt.Fprintln(r.out, "Columns renamed to tweet_content and summary.")
	}
	fmt.Fprintf(r.out, "Using %d context examples.\n", len(r.sess.Examples()))
}

func (r *repl) load(n int) {
	picked, err := r.sess.SampleExamples(n)
	if errors.Is(err, sampler.ErrEmptyTable) {
		fmt.Fprintln(r.out, "No usable examples loaded; continuing without context.")
		return
	}
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(r.out, "Generated %d new context examples.\n", len(picked))
}

func (r *repl) submit(ctx context.Context, input string) {
	reply, err := r.sess.Submit(ctx, input)
	if err != nil {
		log.Printf("[assistant] submission failed: %v", err)
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(r.out, "Assistant: %s\n", reply)
}

func (r *repl) printExamples() {
	examples := r.sess.Examples()
	if len(examples) == 0 {
		fmt.Fprintln(r.out, "No context examples.")
		return
	}
	for i, p := range examples {
		fmt.Fprintf(r.out, "Example %d\n%s%s\n%s%s\n%s\n", i+1,
			transcript.UserPrefix, p.Input, transcript.AssistantPrefix, p.Response, transcript.Separator)
	}
}

func (r *repl) printLog() {
	entries := r.sess.Log()
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "Chat log is empty.")
		return
	}
	for _, e := range entries {
		label := "User"
		if e.Role == transcript.RoleAssistant {
			label = "Assistant"
		}
		fmt.Fprintf(r.out, "%s:\n%s\n", label, e.Content)
		if e.Error != "" {
			fmt.Fprintf(r.out, "(failed: %s)\n", e.Error)
		}
		if e.Role == transcript.RoleAssistant {
			fmt.Fprintln(r.out, "---")
		}
	}
}
