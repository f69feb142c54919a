package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/AndrewLester/ntpal-client/internal/sugar"
	"github.com/AndrewLester/ntpal-client/internal/ui"
	"github.com/AndrewLester/ntpal-client/pkg/ntpal"
	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

type queryOptions struct {
	port       int
	version    int
	timeout    time.Duration
	retries    int
	stamp      bool
	extensions bool
	compare    bool
	json       bool
	plain      bool
}

func newQueryCommand() *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query <host>",
		Short: "Send one NTP request to host and print the reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.port, "port", "p", defaultPort(), "Server port.")
	flags.IntVar(&opts.version, "version", defaultVersion(), "NTP version to request (3 or 4).")
	flags.DurationVarP(&opts.timeout, "timeout", "t", 5*time.Second, "Time to wait for each reply.")
	flags.IntVarP(&opts.retries, "retries", "r", 0, "Retries with exponential backoff after a failed exchange.")
	flags.BoolVar(&opts.stamp, "stamp", false, "Send the local time as transmit timestamp and report offset and delay.")
	flags.BoolVar(&opts.extensions, "extensions", false, "Accept replies carrying extension, key or digest bytes.")
	flags.BoolVar(&opts.compare, "compare", false, "Also query the server with an independent client.")
	flags.BoolVar(&opts.json, "json", false, "Print the record as JSON.")
	flags.BoolVar(&opts.plain, "plain", false, "Print the record without the interactive view.")

	return cmd
}

func (opts *queryOptions) validate() error {
	if opts.version < 0 || opts.version > 255 || !ntpal.Version(opts.version).Valid() {
		return fmt.Errorf("%w: unsupported NTP version %d", ntpal.ErrInvalidArgument, opts.version)
	}
	if opts.retries < 0 {
		return fmt.Errorf("%w: retries must not be negative", ntpal.ErrInvalidArgument)
	}
	if opts.timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ntpal.ErrInvalidArgument)
	}
	return nil
}

type queryOutput struct {
	Host        string             `json:"host"`
	Record      ntpal.Record       `json:"record"`
	Independent *independentRecord `json:"independent,omitempty"`
}

func runQuery(ctx context.Context, host string, opts *queryOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}

	log := newLogger()
	client := ntpal.NewClient(&ntpal.ClientConfig{
		Logger:          log,
		StampTransmit:   opts.stamp,
		AllowExtensions: opts.extensions,
	})
	query := func(ctx context.Context) (*ntpal.Result, error) {
		return requestWithRetry(ctx, log, client, host, opts)
	}

	var result *ntpal.Result
	var err error
	if opts.json || opts.plain {
		result, err = query(ctx)
	} else {
		result, err = runQueryView(ctx, host, query)
	}
	if err != nil {
		return err
	}

	var independent *independentRecord
	if opts.compare {
		independent, err = queryIndependent(host, opts, result)
		if err != nil {
			return err
		}
	}

	if opts.json {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(queryOutput{Host: host, Record: result.Record(), Independent: independent})
	}

	if opts.plain {
		fmt.Print(renderResult(host, result))
	}
	if independent != nil {
		fmt.Print("\n" + renderIndependent(independent))
	}
	return nil
}

// requestWithRetry is the caller-side retry policy; the client itself never
// retries. Bad arguments are not worth another attempt.
func requestWithRetry(ctx context.Context, log *slog.Logger, client *ntpal.Client, host string, opts *queryOptions) (*ntpal.Result, error) {
	operation := func() (*ntpal.Result, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, opts.timeout)
		defer cancel()

		result, err := client.RequestTime(attemptCtx, host, opts.port, ntpal.Version(opts.version))
		if errors.Is(err, ntpal.ErrInvalidArgument) {
			return nil, backoff.Permanent(err)
		}
		return result, err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(opts.retries)), ctx)
	return backoff.RetryNotifyWithData(operation, policy, func(err error, next time.Duration) {
		log.Warn("ntp query failed, retrying", "host", host, "error", err, "backoff", next)
	})
}

func runQueryView(ctx context.Context, host string, query func(context.Context) (*ntpal.Result, error)) (*ntpal.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := queryCommandModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(ui.SpinnerColor))),
		host:    host,
		query:   query,
		ctx:     ctx,
		cancel:  cancel,
	}

	resultModel, err := sugar.RunProgramWithErrors(m)
	if err != nil {
		return nil, err
	}
	return resultModel.(queryCommandModel).result, nil
}

type queryCommandModel struct {
	spinner spinner.Model
	host    string
	query   func(context.Context) (*ntpal.Result, error)
	ctx     context.Context
	cancel  context.CancelFunc

	result *ntpal.Result
	err    error
}

type ntpQueryMessage struct{ result *ntpal.Result }
type ntpQueryError struct{ err error }

func ntpQueryCommand(m queryCommandModel) tea.Cmd {
	return func() tea.Msg {
		result, err := m.query(m.ctx)
		if err != nil {
			return ntpQueryError{err}
		}
		return ntpQueryMessage{result}
	}
}

func (m queryCommandModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, ntpQueryCommand(m))
}

func (m queryCommandModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancel()
			m.err = sugar.ErrAborted
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case ntpQueryMessage:
		m.result = msg.result
		return m, tea.Quit
	case ntpQueryError:
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m queryCommandModel) View() (s string) {
	if m.err != nil {
		return
	}

	if m.result == nil {
		s += ui.Title("NTPal - Query") + "\n\n"
		s += m.spinner.View() + " waiting for " + m.host + "\n\n"
		s += ui.Help("q: exit") + "\n"
	} else {
		s += renderResult(m.host, m.result)
	}
	return
}

func (m queryCommandModel) GetError() error {
	return m.err
}
