// sparkctl is an operator tool for the SparkAI support assistant. It reads
// the same configuration as the API server and works directly against the
// ticket dataset and the text endpoints.
//
// Usage:
//
//	sparkctl [flags] lookup <ticket-id>
//	sparkctl [flags] search <query>
//	sparkctl [flags] normalize < response.json
//	sparkctl [flags] translate --subject S --description D
//	sparkctl [flags] upgrade --from 7.1 --to 8.0 [--addon HA]
//	sparkctl [flags] session <device>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/spark-support/assets"
	"github.com/spec-kit/spark-support/internal/config"
	"github.com/spec-kit/spark-support/internal/jsonvalue"
	"github.com/spec-kit/spark-support/internal/normalize"
	"github.com/spec-kit/spark-support/internal/repository"
	"github.com/spec-kit/spark-support/internal/session"
	"github.com/spec-kit/spark-support/internal/sparkai"
)

// usageError exits with status 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }
func (e usageError) ExitCode() int { return 2 }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

type options struct {
	envFile     string
	ticketsPath string
	limit       int
	subject     string
	description string
	from        string
	to          string
	addon       string
	sessionDir  string
}

func run(argv []string, stdin io.Reader, stdout io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("sparkctl", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&opts.envFile, "env-file", "", "dotenv file to load")
	flagSet.StringVar(&opts.ticketsPath, "tickets", "", "ticket dataset file (default: embedded dataset)")
	flagSet.IntVarP(&opts.limit, "limit", "n", 20, "maximum search results")
	flagSet.StringVar(&opts.subject, "subject", "", "subject to translate")
	flagSet.StringVar(&opts.description, "description", "", "description to translate")
	flagSet.StringVar(&opts.from, "from", "", "current product version")
	flagSet.StringVar(&opts.to, "to", "", "target product version")
	flagSet.StringVar(&opts.addon, "addon", "", "installed add-on")
	flagSet.StringVar(&opts.sessionDir, "session-dir", ".sparkctl/sessions", "directory holding session ids")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stdout, flagSet)
			return nil
		}
		return usagef("%v", err)
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stdout, flagSet)
		return nil
	}

	args := flagSet.Args()
	if len(args) == 0 {
		printHelp(stdout, flagSet)
		return usagef("missing command")
	}

	var envFiles []string
	if opts.envFile != "" {
		envFiles = append(envFiles, opts.envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}
	if opts.ticketsPath != "" {
		cfg.Dataset.TicketsPath = opts.ticketsPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd, rest := args[0], args[1:]; cmd {
	case "lookup":
		if len(rest) != 1 {
			return usagef("lookup takes exactly one ticket id")
		}
		return lookup(cfg.Dataset, rest[0], stdout)
	case "search":
		return search(cfg.Dataset, strings.Join(rest, " "), opts.limit, stdout)
	case "normalize":
		return normalizeStdin(stdin, stdout)
	case "translate":
		if opts.subject == "" && opts.description == "" {
			return usagef("translate needs --subject or --description")
		}
		res, err := newClient(cfg).Translate(ctx, opts.subject, opts.description)
		if err != nil {
			return err
		}
		return printJSON(stdout, res)
	case "upgrade":
		if opts.from == "" || opts.to == "" {
			return usagef("upgrade needs --from and --to")
		}
		answer, err := newClient(cfg).UpgradePath(ctx, opts.from, opts.to, opts.addon)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, answer)
		return err
	case "session":
		if len(rest) != 1 {
			return usagef("session takes exactly one device id")
		}
		provider := session.NewProvider(session.NewFileStore(opts.sessionDir), zap.NewNop())
		_, err := fmt.Fprintln(stdout, provider.SessionID(ctx, rest[0]))
		return err
	default:
		return usagef("unknown command %q", cmd)
	}
}

func loadTickets(cfg config.DatasetConfig) (repository.TicketRepository, error) {
	if cfg.TicketsPath != "" {
		return repository.NewTicketRepositoryFromFile(cfg.TicketsPath)
	}
	return repository.NewTicketRepositoryFromBytes(assets.Tickets, repository.FormatJSON)
}

func lookup(cfg config.DatasetConfig, id string, stdout io.Writer) error {
	tickets, err := loadTickets(cfg)
	if err != nil {
		return err
	}
	ticket, ok := tickets.FindByID(id)
	if !ok {
		return fmt.Errorf("ticket %q not found", strings.TrimSpace(id))
	}
	return printJSON(stdout, ticket)
}

func search(cfg config.DatasetConfig, query string, limit int, stdout io.Writer) error {
	tickets, err := loadTickets(cfg)
	if err != nil {
		return err
	}
	for _, t := range tickets.Search(query, limit) {
		if _, err := fmt.Fprintf(stdout, "%-14s %-8s %-8s %s\n", t.ID, t.Priority, t.Status, t.Subject); err != nil {
			return err
		}
	}
	return nil
}

func normalizeStdin(stdin io.Reader, stdout io.Writer) error {
	v, err := jsonvalue.DecodeReader(stdin)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	_, err = fmt.Fprintln(stdout, normalize.Normalize(v))
	return err
}

func newClient(cfg *config.Config) *sparkai.Client {
	return sparkai.NewClient(cfg.Endpoints, zap.NewNop())
}

func printJSON(w io.Writer, v any) error {
	out, err := jsonvalue.Indent(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `sparkctl: operator tool for the support assistant.

Commands:
  lookup <ticket-id>   print one ticket as JSON
  search <query>       list tickets whose id, subject or description match
  normalize            read an endpoint response on stdin and print its text
  translate            translate --subject/--description via the endpoint
  upgrade              ask for an upgrade path --from/--to [--addon]
  session <device>     print (and persist) the device's session id

Flags:
%s`, flagSet.FlagUsages())
}
