package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/JustinBeckwith/flem/pkg/lib/healthserver"
)

func newStatusCmd(cfg *config) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Ask a running flem whether its container is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			conn, err := dial(addr)
			if err != nil {
				return err
			}
			defer conn.Close()

			client := healthpb.NewHealthClient(conn)
			resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: healthserver.ServiceName})
			if err != nil {
				if grpcCode(err) == codes.Unavailable {
					return fmt.Errorf("no flem health endpoint at %s; start flem with --health-addr", conn.Target())
				}
				return err
			}
			printStatusTable(cmd.OutOrStdout(), conn.Target(), resp.GetStatus())
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", cfg.HealthAddr, "health endpoint address (default "+healthserver.DefaultAddress+")")
	return cmd
}
