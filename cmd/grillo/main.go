// Command grillo sends text, clipboard contents, or files to another
// computer over a lossy fixed-size-packet channel, and listens for them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/fisadev/grillo/internal/chunk"
	"github.com/fisadev/grillo/internal/config"
	"github.com/fisadev/grillo/internal/grillo"
	"github.com/fisadev/grillo/internal/logging"
	"github.com/fisadev/grillo/internal/observability"
	"github.com/fisadev/grillo/internal/reliability"
	"github.com/fisadev/grillo/internal/transport"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, friendly(err))
		os.Exit(1)
	}
}

type app struct {
	cfgPath string
	brave   bool

	cfg config.App
	svc *grillo.Service
	udp *transport.UDP
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "grillo",
		Short:         "Send data to another computer over a lossy packet channel",
		Long:          "Grillo delivers text, clipboard contents, and files between two computers connected by a channel that only carries small, occasionally lost packets.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "grillo.toml", "path to the config file")
	root.PersistentFlags().BoolVar(&a.brave, "brave", false,
		"disable acknowledgments; if a packet is lost the whole message won't be received")

	root.AddCommand(a.listenCmd(), a.textCmd(), a.clipCmd(), a.fileCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	logging.ConfigureRuntime()

	explicit := cmd.Root().PersistentFlags().Changed("config")
	cfg, err := resolveConfig(a.cfgPath, explicit)
	if err != nil {
		return err
	}
	cfg.Reliability.Confirmed = !a.brave
	a.cfg = cfg

	if cfg.MetricsAddr != "" {
		go func() {
			if err := observability.Serve(cfg.MetricsAddr); err != nil {
				logger := logging.Component("metrics")
				logger.Error().Err(err).Msg("metrics endpoint failed")
			}
		}()
	}

	udp, err := transport.DialUDP(cfg.BindAddr, cfg.PeerAddr)
	if err != nil {
		return err
	}
	a.udp = udp
	a.svc = grillo.NewService(cfg, udp, os.Stdout)
	return nil
}

// resolveConfig loads the config file over defaults. A missing file is
// only tolerated when the path is the built-in default; a path the user
// asked for must exist.
func resolveConfig(path string, explicit bool) (config.App, error) {
	if _, err := os.Stat(path); err != nil {
		if explicit {
			return config.App{}, fmt.Errorf("load config: %w", err)
		}
		return config.Default(), nil
	}
	return config.Load(path)
}

func (a *app) teardown() {
	if a.udp != nil {
		_ = a.udp.Close()
	}
}

// signalContext cancels on Ctrl-C so long waits detach promptly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func (a *app) listenCmd() *cobra.Command {
	var forever bool
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Receive whatever data is being sent from the source computer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.teardown()

			ctx, stop := signalContext()
			defer stop()

			err := a.svc.Listen(ctx, forever)
			if errors.Is(err, context.Canceled) {
				fmt.Println("Grillo was killed. Poor little grillo.")
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&forever, "forever", false,
		"keep listening for more messages instead of stopping after the first")
	return cmd
}

func (a *app) textCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "text <text>",
		Short: "Send a text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSend(cmd, func(ctx context.Context) (reliability.Result, error) {
				return a.svc.SendText(ctx, args[0])
			})
		},
	}
}

func (a *app) clipCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "clip",
		Aliases: []string{"clipboard"},
		Short:   "Send the contents of the clipboard",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSend(cmd, func(ctx context.Context) (reliability.Result, error) {
				return a.svc.SendClipboard(ctx)
			})
		},
	}
}

func (a *app) fileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "file <path>",
		Short: "Send a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSend(cmd, func(ctx context.Context) (reliability.Result, error) {
				return a.svc.SendFile(ctx, args[0])
			})
		},
	}
}

func (a *app) runSend(cmd *cobra.Command, send func(context.Context) (reliability.Result, error)) error {
	if err := a.setup(cmd); err != nil {
		return err
	}
	defer a.teardown()

	ctx, stop := signalContext()
	defer stop()

	result, err := send(ctx)
	if err != nil {
		return err
	}
	switch {
	case result == reliability.ResultConfirmed:
		fmt.Println("Sent, the other side confirmed it got everything.")
	case a.brave:
		fmt.Println("Sent bravely, hoping every packet made it.")
	default:
		fmt.Println("Sent, but no confirmation arrived.")
	}
	return nil
}

func friendly(err error) string {
	switch {
	case errors.Is(err, chunk.ErrMessageTooLarge):
		return "Contents are too long to send, Grillo can't handle them :("
	case errors.Is(err, chunk.ErrAckCorrupted):
		return "grillo: a corrupted confirmation arrived, the send was aborted"
	case errors.Is(err, reliability.ErrReceiveTimeout):
		return "grillo: gave up waiting, the message never completed"
	default:
		return fmt.Sprintf("grillo: %v", err)
	}
}
