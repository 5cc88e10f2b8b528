package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/wmglue/internal/clip"
	"go.klb.dev/wmglue/internal/crypto"
	"go.klb.dev/wmglue/internal/metrics"
	"go.klb.dev/wmglue/internal/relay"
	"go.klb.dev/wmglue/internal/shell"
)

const defaultRelayServer = "localhost:8667"

func newRelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Share one clipboard value between hosts",
	}
	cmd.AddCommand(
		newRelayServeCmd(),
		newRelayClientCmd(),
		newRelayGetCmd(),
		newRelayPutCmd(),
	)
	return cmd
}

func newRelayServeCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay server (HTTP and gRPC on one port)",
		Long: `Holds the shared clipboard value in memory. POST /get and POST /put speak
JSON; the same port also serves the wmglue.relay.v1.Relay gRPC service.

Precedence (lowest → highest): defaults → config file → WMGLUE_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runRelayServe(v) },
	}

	f := cmd.Flags()
	f.String("addr", relay.DefaultAddr, "listen address")
	f.String("token", "", "bearer token required by clients (empty = no auth)")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runRelayServe(v *viper.Viper) error {
	setupLogging(v)
	ctx, stop := signalContext()
	defer stop()

	addr := v.GetString("addr")
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	slog.Info("wmglue relay starting", "version", Version, "addr", ln.Addr())
	return relay.NewServer(v.GetString("token"), metrics.NewRegistry()).Serve(ctx, ln)
}

// addRelayClientFlags adds the flags shared by every relay client command.
func addRelayClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("server", defaultRelayServer, "relay address (host:port)")
	f.String("token", "", "bearer token; also the content encryption passphrase")
	f.Bool("grpc", false, "talk gRPC instead of HTTP")
	f.Bool("no-encrypt", false, "send content in plaintext even when --token is set")
	f.Duration("timeout", relay.DefaultClientTimeout, "per-request HTTP timeout, retries included")
	addConfigFlag(cmd)
}

// relayConn is a Remote plus whatever must be closed afterwards.
type relayConn struct {
	relay.Remote
	grpc *relay.GRPCClient
}

func (c *relayConn) Close() {
	if c.grpc != nil {
		_ = c.grpc.Close()
	}
}

func dialRelay(v *viper.Viper) (*relayConn, error) {
	server, token := v.GetString("server"), v.GetString("token")
	if !v.GetBool("grpc") {
		return &relayConn{Remote: relay.NewClient(server, token, relay.WithTimeout(v.GetDuration("timeout")))}, nil
	}
	gc, err := relay.DialGRPC(server, token)
	if err != nil {
		return nil, err
	}
	return &relayConn{Remote: gc, grpc: gc}, nil
}

func relayKey(v *viper.Viper) (*crypto.Key, error) {
	token := v.GetString("token")
	if token == "" || v.GetBool("no-encrypt") {
		return nil, nil
	}
	key, err := crypto.DeriveKey(token)
	if err != nil {
		return nil, fmt.Errorf("key derivation: %w", err)
	}
	return key, nil
}

func newRelayClientCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Keep the local selection in sync with the relay",
		Long: `Polls the local selection and the relay. New local selections are pushed,
newer relay values are written back to the local selection.

--server may omit the scheme (http:// is assumed). Over HTTP, each request
is bounded by --timeout and connection errors or 5xx replies are retried
twice with backoff.

--selection picks the local side:
  xclip   read PRIMARY, write CLIPBOARD and PRIMARY (via xclip)
  system  the CLIPBOARD selection via the native clipboard library`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runRelayClient(v) },
	}

	f := cmd.Flags()
	f.String("selection", "xclip", "local selection backend: xclip|system")
	f.Duration("interval", relay.DefaultInterval, "polling interval")
	addRelayClientFlags(cmd)
	addLoggingFlags(cmd)

	return cmd
}

func localBackend(kind string) (clip.Backend, error) {
	switch kind {
	case "xclip":
		r := shell.New()
		return clip.NewMulti(
			clip.NewXclip(clip.Primary, r),
			clip.NewXclip(clip.Clipboard, r),
			clip.NewXclip(clip.Primary, r),
		), nil
	case "system":
		return clip.NewSystem(), nil
	}
	return nil, fmt.Errorf("unknown selection backend %q", kind)
}

func runRelayClient(v *viper.Viper) error {
	setupLogging(v)
	ctx, stop := signalContext()
	defer stop()

	key, err := relayKey(v)
	if err != nil {
		return err
	}
	local, err := localBackend(v.GetString("selection"))
	if err != nil {
		return err
	}
	defer local.Close()

	conn, err := dialRelay(v)
	if err != nil {
		return err
	}
	defer conn.Close()

	s := relay.NewSyncer(conn, local, key)
	if d := v.GetDuration("interval"); d > 0 {
		s.Interval = d
	}
	slog.Info("wmglue relay client starting", "version", Version, "server", v.GetString("server"), "grpc", v.GetBool("grpc"))
	s.Run(ctx)
	return nil
}

func newRelayGetCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the relay's clipboard value",
		Long: `Prints the current relay value to stdout. With --follow (gRPC only) every
accepted write is printed as it arrives, one value per line.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runRelayGet(cmd.OutOrStdout(), v) },
	}

	cmd.Flags().Bool("follow", false, "keep printing new values (requires --grpc)")
	addRelayClientFlags(cmd)

	return cmd
}

func runRelayGet(w io.Writer, v *viper.Viper) error {
	key, err := relayKey(v)
	if err != nil {
		return err
	}
	conn, err := dialRelay(v)
	if err != nil {
		return err
	}
	defer conn.Close()

	if !v.GetBool("follow") {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		st, err := conn.Get(ctx)
		if err != nil {
			return fmt.Errorf("get: %w", err)
		}
		text, err := openContent(key, st.Content)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, text)
		return err
	}

	if conn.grpc == nil {
		return errors.New("--follow requires --grpc")
	}
	ctx, stop := signalContext()
	defer stop()
	for st := range conn.grpc.Watch(ctx) {
		text, err := openContent(key, st.Content)
		if err != nil {
			slog.Warn("skipping undecryptable value", "err", err)
			continue
		}
		fmt.Fprintln(w, text)
	}
	return nil
}

func openContent(key *crypto.Key, content string) (string, error) {
	if key == nil || content == "" {
		return content, nil
	}
	text, err := key.OpenString(content)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return text, nil
}

func newRelayPutCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "put [text...]",
		Short: "Set the relay's clipboard value",
		Long: `Sends the arguments joined by spaces, or stdin when no arguments are
given, to the relay. Exits non-zero when the relay rejects the write as stale.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelayPut(cmd.InOrStdin(), cmd.OutOrStdout(), args, v)
		},
	}

	addRelayClientFlags(cmd)

	return cmd
}

func runRelayPut(in io.Reader, w io.Writer, args []string, v *viper.Viper) error {
	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		b, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		text = string(b)
	}
	if len(text) > relay.MaxContentSize {
		return fmt.Errorf("content is %d bytes, limit is %d", len(text), relay.MaxContentSize)
	}

	key, err := relayKey(v)
	if err != nil {
		return err
	}
	if key != nil {
		if text, err = key.SealString(text); err != nil {
			return fmt.Errorf("encrypt: %w", err)
		}
	}

	conn, err := dialRelay(v)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	now := float64(time.Now().UnixNano()) / 1e9
	res, err := conn.Put(ctx, text, now)
	if err != nil {
		return fmt.Errorf("put: %w", err)
	}
	if !res.Accepted() {
		return errors.New("relay holds a newer value")
	}
	fmt.Fprintf(w, "stored at %.6f\n", res.Time)
	return nil
}
