package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/momentics/hioload-reactor/codec"
	"github.com/spf13/cobra"
)

func queryCmd() *cobra.Command {
	var (
		addr    string
		order   string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Send one request to a running time server and print the answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			resp, err := query(ctx, addr, order)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:8080", "Server address")
	cmd.Flags().StringVarP(&order, "order", "o", codec.QueryTimeOrder, "Request to send")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 3*time.Second, "Overall deadline")
	return cmd
}

// query sends order and returns the first response chunk. The protocol has no
// delimiter, so the answer is whatever arrives in one read.
func query(ctx context.Context, addr, order string) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(dl); err != nil {
			return "", err
		}
	}
	if _, err := io.WriteString(conn, order); err != nil {
		return "", err
	}
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if n > 0 {
		return string(buf[:n]), nil
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return "", fmt.Errorf("no answer from %s: %w", addr, err)
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return "", err
}
